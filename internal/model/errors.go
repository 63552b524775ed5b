package model

import "errors"

// Error taxonomy shared by every layer. Callers wrap these with fmt.Errorf("%w: ...")
// and the transport maps them to status codes with errors.Is.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrUpstream       = errors.New("upstream error")
	ErrParse          = errors.New("parse error")
	ErrInvalidSession = errors.New("invalid or expired interview session")
)

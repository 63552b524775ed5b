package service

import (
	"errors"
	"fmt"

	"github.com/imsebeom/ai-survey/internal/model"
)

// storeErr classifies a repository failure. Classified errors pass through;
// anything else is a failed database call.
func storeErr(err error) error {
	for _, known := range []error{model.ErrNotFound, model.ErrParse, model.ErrValidation} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", model.ErrUpstream, err)
}

func notFound(surveyID string) error {
	return fmt.Errorf("%w: survey %s", model.ErrNotFound, surveyID)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/imsebeom/ai-survey/internal/model"
	"github.com/imsebeom/ai-survey/internal/transport/rest/middleware"
)

const maxJSONBody = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// envelope is merged into every success body
type envelope map[string]interface{}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data envelope) {
	body := envelope{"success": true}
	for k, v := range data {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{"success": false, "error": message})
}

// writeServiceError maps the error taxonomy to a status code
func writeServiceError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, model.ErrInvalidSession.Error())
	case errors.Is(err, model.ErrConfiguration), errors.Is(err, model.ErrParse), errors.Is(err, model.ErrUpstream):
		logRequestError(r, log, err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		logRequestError(r, log, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func logRequestError(r *http.Request, log logrus.FieldLogger, err error) {
	log.WithError(err).WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"trace_id": middleware.GetTraceID(r.Context()),
	}).Error("Request failed")
}

// decodeJSON reads a JSON body into req and runs its validate tags
func decodeJSON(w http.ResponseWriter, r *http.Request, req interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(req); err != nil {
		return fmt.Errorf("%w: invalid request body", model.ErrValidation)
	}
	return validateRequest(req)
}

func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: invalid input", model.ErrValidation)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

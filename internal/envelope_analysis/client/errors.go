package client

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/go-playground/validator/v10"
)

// Display texts for failures that carry no server message
const (
	GenericFailure   = "operation failed"
	TransportFailure = "request failed"
)

// APIError is a request the server answered and rejected. Message is the server's
// text, or GenericFailure when it sent none.
type APIError struct {
	Status  int
	Message string
	cause   error
}

func (e *APIError) Error() string { return e.Message }

// Unwrap exposes the domain sentinel matching the status, so callers can use
// errors.Is(err, domain.ErrTempNotFound) on a stale temp id.
func (e *APIError) Unwrap() error { return e.cause }

// TransportError is a request that never got a usable answer: connection
// failures, timeouts, malformed responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", TransportFailure, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Message returns the user-visible text of err
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return TransportFailure
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func newAPIError(status int, message string, notFound error) *APIError {
	if strings.TrimSpace(message) == "" {
		message = GenericFailure
	}
	e := &APIError{Status: status, Message: message}
	switch status {
	case http.StatusNotFound:
		e.cause = notFoundCause(message, notFound)
	case http.StatusConflict:
		e.cause = domain.ErrDuplicateName
	case http.StatusBadRequest:
		e.cause = domain.ErrValidation
	}
	return e
}

// notFoundCause picks the sentinel the server named in its message. A 404 the
// server did not explain falls back to the one the endpoint usually means.
func notFoundCause(message string, fallback error) error {
	for _, sentinel := range []error{domain.ErrTempNotFound, domain.ErrTypeNotFound, domain.ErrDatasetNotFound} {
		if strings.Contains(message, sentinel.Error()) {
			return sentinel
		}
	}
	return fallback
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest checks the validate tags of a request record before any
// network call is made.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s item(s)", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}

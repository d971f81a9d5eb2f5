package services

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("wrong email and/or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingAuth        = errors.New("authorization header is required")
	ErrMalformedAuth      = errors.New("authorization header must be of the form 'Bearer <token>'")
	ErrIdentityConflict   = errors.New("this external identity already belongs to another account")
	ErrUserNotFound       = errors.New("user not found")
	ErrUpstreamProvider   = errors.New("identity provider request failed")
	ErrMissingTokenSecret = errors.New("token secret is required")
)

// ValidationError carries every rejected field with its messages.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// OrNil returns nil when no field was rejected.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// ProviderError wraps any failure talking to an identity provider.
type ProviderError struct {
	Provider   models.Provider
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrUpstreamProvider }

// StatusCode maps a service error onto the HTTP status handlers respond with.
func StatusCode(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrMissingAuth),
		errors.Is(err, ErrMalformedAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrIdentityConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

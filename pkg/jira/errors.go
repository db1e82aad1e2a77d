package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrBaseURLRequired      = errors.New("base URL is required")
	ErrNoSuchField          = errors.New("no such field")
	ErrNoSelfLink           = errors.New("resource has no self link")
	ErrRegistryFrozen       = errors.New("registry is frozen")
	ErrKindAlreadyDefined   = errors.New("resource kind already registered")
	ErrEmptyResponse        = errors.New("empty response body")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
	ErrCacheMiss            = errors.New("key not found in any cache")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrValueTooLarge        = errors.New("cache value exceeds maximum size")
)

// APIError represents a failed request against the tracker API. It is
// returned for network-level failures (after retries are exhausted) and for
// any non-2xx response that does not map to a more specific error type.
type APIError struct {
	// StatusCode is the HTTP status of the failing response, or 0 when the
	// request never produced one (connection failures, timeouts).
	StatusCode int
	// Message is a short description of the failure.
	Message string
	// URL is the request URL that produced the error.
	URL string
	// Messages holds the server-supplied error strings decoded from a
	// structured error body, when present.
	Messages []string
	// Body is the raw response body, preserved for debugging.
	Body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder

	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	} else {
		b.WriteString("request failed")
	}

	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}

	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}

	if e.URL != "" {
		fmt.Fprintf(&b, " (%s)", e.URL)
	}

	return b.String()
}

// AuthError indicates that credentials were rejected after the single
// permitted re-authentication retry.
type AuthError struct {
	APIError
}

// NotFoundError indicates a 404 on a resource fetch.
type NotFoundError struct {
	APIError
}

// ValidationError indicates a 4xx response with structured, field-level
// server error details on an update or create operation.
type ValidationError struct {
	APIError

	// FieldErrors maps field names to the server's complaint about them,
	// when the error body carried a per-field breakdown.
	FieldErrors map[string]string
}

// StaleResourceError indicates access to a Resource after Delete.
type StaleResourceError struct {
	Kind     string
	SelfLink string
}

// Error implements the error interface.
func (e *StaleResourceError) Error() string {
	return fmt.Sprintf("stale %s resource: %s was deleted", e.Kind, e.SelfLink)
}

// ReservedFieldCollisionError indicates a payload key that would shadow one
// of the Resource's bookkeeping accessors. The original payload remains
// reachable through Resource.Raw.
type ReservedFieldCollisionError struct {
	Kind  string
	Field string
}

// Error implements the error interface.
func (e *ReservedFieldCollisionError) Error() string {
	return fmt.Sprintf("field %q collides with a reserved resource accessor (kind %s)", e.Field, e.Kind)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	notFound := &NotFoundError{}

	return errors.As(err, &notFound)
}

// IsAuth checks if the error is an authentication error.
func IsAuth(err error) bool {
	authErr := &AuthError{}

	return errors.As(err, &authErr)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	valErr := &ValidationError{}

	return errors.As(err, &valErr)
}

// IsStale checks if the error is a stale resource error.
func IsStale(err error) bool {
	staleErr := &StaleResourceError{}

	return errors.As(err, &staleErr)
}

// ParseErrorBody extracts the server-supplied error strings from a failed
// response. The server reports errors in one of three shapes: a single
// "message", an "errorMessages" array, or an "errors" object keyed by field
// name. A 403 may additionally carry an X-Authentication-Denied-Reason
// header that takes precedence over the body.
func ParseErrorBody(statusCode int, headers http.Header, body []byte) (messages []string, fieldErrors map[string]string) {
	if statusCode == http.StatusForbidden && headers != nil {
		if reason := headers.Get("X-Authentication-Denied-Reason"); reason != "" {
			return []string{reason}, nil
		}
	}

	if len(body) == 0 {
		return nil, nil
	}

	var decoded struct {
		Message       string            `json:"message"`
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}

	err := json.Unmarshal(body, &decoded)
	if err != nil {
		return []string{string(body)}, nil
	}

	switch {
	case decoded.Message != "":
		messages = []string{decoded.Message}
	case len(decoded.ErrorMessages) > 0:
		messages = decoded.ErrorMessages
	case len(decoded.Errors) > 0:
		for field, msg := range decoded.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, msg))
		}
	default:
		messages = []string{string(body)}
	}

	if len(decoded.Errors) > 0 {
		fieldErrors = decoded.Errors
	}

	return messages, fieldErrors
}

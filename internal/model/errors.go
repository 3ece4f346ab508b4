package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstreamError  = errors.New("upstream error")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnresolvedID   = errors.New("created but identifier unresolvable")
	ErrVersionTooOld  = errors.New("upstream API version unsupported")
)

// UpstreamDetail carries the upstream platform's status and payload when a
// failure crossed the platform boundary. Serialized into the error envelope
// so callers can see what the platform actually said.
type UpstreamDetail struct {
	Status int    `json:"status"`
	Body   string `json:"body,omitempty"`
}

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	StatusCode int             `json:"-"` // HTTP status, not serialized
	Upstream   *UpstreamDetail `json:"upstream,omitempty"`
	Err        error           `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
// No upstream call has been made when this is returned.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for auth failures.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError creates an error for platform call failures.
// When the upstream responded, its status is reused as the inbound status
// so callers see what actually happened; transport-level failures (timeout,
// connection reset) carry no upstream status and map to 502.
func NewUpstreamError(service string, status int, body string, err error) *APIError {
	apiErr := &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
	if status > 0 {
		apiErr.StatusCode = status
		apiErr.Upstream = &UpstreamDetail{Status: status, Body: body}
	}
	return apiErr
}

// NewRateLimitError creates a 429 error for upstream rate limiting.
// resetSeconds is taken from the platform's RateLimit header when present;
// zero means unknown.
func NewRateLimitError(service string, resetSeconds int) *APIError {
	msg := fmt.Sprintf("%s rate limit exceeded, please retry later", service)
	if resetSeconds > 0 {
		msg = fmt.Sprintf("%s rate limit exceeded, retry in %ds", service, resetSeconds)
	}
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    msg,
		StatusCode: 429,
		Upstream:   &UpstreamDetail{Status: 429},
		Err:        ErrRateLimited,
	}
}

// NewUnresolvedAddressError creates an error for the create-then-refetch
// protocol failing its second step: the record was submitted but no entry
// with a matching identity key appeared in the refreshed address book.
func NewUnresolvedAddressError(summary string) *APIError {
	return &APIError{
		Code:       "ADDRESS_UNRESOLVED",
		Message:    fmt.Sprintf("address created but identifier unresolvable: %s", summary),
		StatusCode: 502,
		Err:        ErrUnresolvedID,
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}

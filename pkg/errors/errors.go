package apperrors

import (
	"errors"
	"fmt"
)

// Standardized gateway errors
var (
	ErrNetwork          = errors.New("network error")
	ErrTimeout          = errors.New("upstream timeout")
	ErrUpstreamBusiness = errors.New("upstream business error")
	ErrEmptyResponse    = errors.New("empty upstream response")
	ErrInvalidRequest   = errors.New("invalid request")
)

// TransportError wraps a failure below the HTTP layer (DNS, connect, timeout)
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrNetwork
func (e *TransportError) Is(target error) bool {
	return target == ErrNetwork
}

// BusinessError is raised when an exchange's success envelope reports failure.
// Envelope carries the decoded upstream payload unchanged.
type BusinessError struct {
	Status   int
	Code     string
	Msg      string
	Envelope any
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("upstream business error: code=%s msg=%s status=%d", e.Code, e.Msg, e.Status)
}

// Is matches ErrUpstreamBusiness
func (e *BusinessError) Is(target error) bool {
	return target == ErrUpstreamBusiness
}

// EmptyResponseError is raised when a body was expected but none arrived
type EmptyResponseError struct {
	Status int
	Detail string
}

func (e *EmptyResponseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("malformed upstream response (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("empty upstream response (HTTP %d)", e.Status)
}

// Is matches ErrEmptyResponse
func (e *EmptyResponseError) Is(target error) bool {
	return target == ErrEmptyResponse
}

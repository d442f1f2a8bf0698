package youtrack

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid connection configuration
	ErrInvalidConfig = errors.New("invalid youtrack configuration")
	// ErrAuthenticationFailed indicates the server rejected the supplied credentials
	ErrAuthenticationFailed = errors.New("Authentication failed") //nolint:staticcheck // message is shown to users verbatim
	// ErrInsufficientRights is the reason attached to a 403 on any GET path
	ErrInsufficientRights = errors.New("Insufficient rights") //nolint:staticcheck // message is shown to users verbatim
	// ErrNotFound indicates the server answered without a body where one was expected
	ErrNotFound = errors.New("resource not found")
)

// HTTPError represents a non-2xx response the connection did not map itself
type HTTPError struct {
	Method      string
	Path        string
	StatusCode  int
	Description string
	Body        string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("youtrack API error: status %d: %s", e.StatusCode, e.Description)
}

// IsNotFound checks if the error indicates a not found response
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsForbidden checks if the error indicates missing permissions
func (e *HTTPError) IsForbidden() bool {
	return e.StatusCode == 403
}

// AuthenticationError is returned by Authenticate for every failure mode.
// Message is the server's status description, the transport error text, or
// "Authentication failed" when the credentials were rejected.
type AuthenticationError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is makes every AuthenticationError match ErrAuthenticationFailed.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// InvalidRequestError is the error kind for requests the server refused or
// could not satisfy. Reason tells the cases apart (ErrInsufficientRights,
// ErrNotFound, or a wrapper-defined reason); Err carries the underlying
// HTTP error when there is one.
type InvalidRequestError struct {
	Reason error
	Err    error
}

func (e *InvalidRequestError) Error() string {
	if e.Reason == nil {
		return "invalid request"
	}
	return e.Reason.Error()
}

func (e *InvalidRequestError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

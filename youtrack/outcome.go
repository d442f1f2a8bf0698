package youtrack

import "errors"

// Outcome classifies the result of a call so callers can branch without
// looking at error messages.
type Outcome int

const (
	// OutcomeOK means the call succeeded
	OutcomeOK Outcome = iota
	// OutcomeNotFound means the requested record does not exist
	OutcomeNotFound
	// OutcomeInsufficientRights means the server refused access (403)
	OutcomeInsufficientRights
	// OutcomeAuthenticationFailed means logging in failed
	OutcomeAuthenticationFailed
	// OutcomeFailed covers every other error
	OutcomeFailed
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeNotFound:
		return "NOT_FOUND"
	case OutcomeInsufficientRights:
		return "INSUFFICIENT_RIGHTS"
	case OutcomeAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	default:
		return "FAILED"
	}
}

// Classify maps an error returned by this package (or a wrapper built on
// it) to an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrAuthenticationFailed):
		return OutcomeAuthenticationFailed
	case errors.Is(err, ErrInsufficientRights):
		return OutcomeInsufficientRights
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.IsNotFound():
			return OutcomeNotFound
		case httpErr.IsForbidden():
			return OutcomeInsufficientRights
		}
	}
	return OutcomeFailed
}

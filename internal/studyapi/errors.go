package studyapi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("study api unavailable")

	// ErrTimeout indicates a request exceeded its deadline.
	ErrTimeout = errors.New("study api request timed out")

	// ErrRejected indicates the backend refused the request (4xx). Retrying
	// the same payload will not help.
	ErrRejected = errors.New("study api rejected request")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("study api server error")

	// ErrInvalidResponse indicates a 2xx body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid study api response")
)

// StatusError carries the status and body of a non-2xx response. It
// unwraps to ErrRejected or ErrServer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("study api returned status %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Status >= 500 {
		return ErrServer
	}
	return ErrRejected
}

// Retryable reports whether err is transient and the same request may
// succeed later.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrRejected):
		return "REJECTED"
	case errors.Is(err, ErrServer):
		return "SERVER"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

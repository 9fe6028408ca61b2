package drift

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout is the cause attached to calls aborted by the client's own
// timeout. Match it with errors.Is.
var ErrTimeout = errors.New("drift: request timed out")

// ErrNoData is wrapped by the DecodeError returned when a successful envelope
// carries no data or null data.
var ErrNoData = errors.New("drift: response carries no data")

// APIError is a failure reported by the backend, either through a non-2xx
// status or an envelope with success set to false.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed: %d", e.StatusCode)
}

// DecodeError is returned when a response body is not a valid JSON envelope
// or a successful envelope has no usable data.
type DecodeError struct {
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding drift response (status %d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsAPIError reports whether err carries a backend-reported failure.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsTimeout reports whether err was caused by the client's own timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

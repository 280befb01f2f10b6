package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrEventNotFound      = fmt.Errorf("event not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Feed client error taxonomy
	ErrValidation = fmt.Errorf("validation failed")
	ErrNetwork    = fmt.Errorf("network error")
	ErrDecode     = fmt.Errorf("failed to decode response")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// HTTPError reports a non-2xx response from a remote API.
//
// It matches [ErrAPIRequest] with errors.Is, and carries the status for callers that branch on it via errors.As.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: status %d", ErrAPIRequest, e.Status)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrAPIRequest, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrAPIRequest }

package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError wraps every failure talking to the API: network errors,
// non-2xx replies and undecodable bodies.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("apiclient: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("apiclient: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether retrying may help.
func (e *TransportError) Temporary() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// IsUnauthorized reports whether err is a 401 reply.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 reply.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

func statusOf(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

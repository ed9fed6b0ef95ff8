package api

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means no response was received: connection failure, transport
// timeout, or the caller's context ending first.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError means the backend answered with a non-2xx status.
type HTTPError struct {
	Op     string
	Status int
	Body   string
	// Message and Code come from the backend's ErrorResponse when the body is one.
	Message string
	Code    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
}

// DecodeError means a 2xx response body could not be parsed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

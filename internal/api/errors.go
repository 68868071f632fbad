package api

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a response whose envelope decoded but whose
// payload did not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response payload")

// TransportError wraps a network-level failure: the request never produced a
// usable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a business-rule rejection delivered by the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api rejection %s (%d): %s", e.Code, e.Status, e.Message)
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func AsTransportError(err error) (*TransportError, bool) {
	var trErr *TransportError
	if errors.As(err, &trErr) {
		return trErr, true
	}
	return nil, false
}

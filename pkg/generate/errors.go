package generate

import "fmt"

// TransportError means the call could not complete (service unreachable,
// connection refused, timeout).
type TransportError struct {
	BaseURL string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Failed to connect to the server. Make sure the backend is running at %s", e.BaseURL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError means the service answered but did not deliver a map.
type ApplicationError struct {
	Status  int
	Message string
	Err     error
}

func (e *ApplicationError) Error() string {
	return e.Message
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

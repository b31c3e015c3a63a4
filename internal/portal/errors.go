package portal

import "fmt"

// TransportError wraps a connection/DNS/timeout failure issuing a request.
// It is always fatal to the operation in progress and never retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("portal: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response status differing from the expected one.
type StatusError struct {
	URL      string
	Status   int
	Expected int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal: %s returned HTTP %d, expected %d", e.URL, e.Status, e.Expected)
}

// AuthError reports rejected credentials or a missing token in the login chain.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "portal: authentication failed: " + e.Reason
}

// UnknownCustomerError reports a selection attempt for a customer id that is
// not part of the authenticated account's relations.
type UnknownCustomerError struct {
	CustomerID string
}

func (e *UnknownCustomerError) Error() string {
	return "portal: unknown customer " + e.CustomerID
}

// BadDateError reports a date string that does not match YYYY-MM-DD.
type BadDateError struct {
	Input string
}

func (e *BadDateError) Error() string {
	return fmt.Sprintf("portal: date %q does not match YYYY-MM-DD", e.Input)
}

package dispatch

import "fmt"

// Failure kinds carried in Failure.Kind.
const (
	FailureNotFound   = "not_found"
	FailureDisabled   = "disabled"
	FailureValidation = "validation"
	FailureHandler    = "handler"
)

// NotFoundError reports a request for an unregistered capability.
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// DisabledError reports a capability switched off by configuration.
type DisabledError struct {
	Kind Kind
	Name string
	Key  string // configuration key that disabled it
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("%s %q is disabled (%s)", e.Kind, e.Name, e.Key)
}

// HandlerError wraps a failure raised by a capability handler or one of
// its backends.
type HandlerError struct {
	Kind Kind
	Name string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Kind, e.Name, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError is the HandlerError cause when a handler panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

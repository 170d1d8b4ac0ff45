package core

import "github.com/pkg/errors"

// FieldError reports a problem with a single input field, keyed by the
// field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field failures raised by the domain services,
// e.g. a sponsor reference pointing at a non-primary member. The API layer
// renders Fields as a field-to-message map.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks an error the process cannot recover from, such as a
// poisoned DB connection pool.
type shutdown struct {
	msg string
}

// NewShutdownError returns an error that instructs the server to stop
// gracefully. Detected with IsShutdown.
func NewShutdownError(msg string) error {
	return &shutdown{msg: msg}
}

func (s shutdown) Error() string { return s.msg }

// IsShutdown reports whether err, at its cause, requests a graceful stop.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

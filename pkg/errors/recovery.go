package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError represents an error that was created from a recovered panic.
// It includes the original panic value and stack trace information.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use it with defer:
//
//	func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "LogisticRegression.Fit")
//	    ...
//	}
//
// When *err is already set the panic is attached to it as a secondary error.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		if *err != nil {
			*err = errors.WithSecondaryError(*err, panicErr)
			return
		}
		*err = panicErr
	}
}

// SafeExecute executes fn and converts any panic into a PanicError.
//
//	err := errors.SafeExecute("pipeline.fit", func() error {
//	    return model.Fit(X, y)
//	})
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}

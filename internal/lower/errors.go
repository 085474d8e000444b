package lower

import (
	"errors"
	"fmt"

	"github.com/roach88/tinypy/internal/ir"
)

// TranslationError reports why lowering aborted. There is no partial
// output: a module either lowers completely or not at all.
type TranslationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Kind is the node kind being translated when the error occurred.
	Kind ir.Kind

	// Name is the variable or callee involved, if any.
	Name string

	// Function is the enclosing function, filled in on the way out.
	Function string
}

// ErrorCode categorizes translation errors.
type ErrorCode string

const (
	// ErrCodeUnsupported indicates no dispatch case matches a statement,
	// expression or operator.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_CONSTRUCT"

	// ErrCodeUnbound indicates a name was read before any reachable binding.
	ErrCodeUnbound ErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeDefiniteAssignment indicates a loop-carried variable has no
	// binding before the loop.
	ErrCodeDefiniteAssignment ErrorCode = "DEFINITE_ASSIGNMENT_VIOLATION"
)

// Error implements the error interface.
func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Function != "" {
		msg += fmt.Sprintf(" (function=%s)", e.Function)
	}
	return msg
}

// IsUnsupported returns true if err is an unsupported-construct error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupported)
}

// IsUnbound returns true if err is an unbound-variable error.
func IsUnbound(err error) bool {
	return hasCode(err, ErrCodeUnbound)
}

// IsDefiniteAssignment returns true if err is a definite-assignment error.
func IsDefiniteAssignment(err error) bool {
	return hasCode(err, ErrCodeDefiniteAssignment)
}

// CodeOf returns the translation error code carried by err, or "".
func CodeOf(err error) ErrorCode {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func unsupported(kind ir.Kind, format string, args ...any) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
	}
}

func unbound(name string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeUnbound,
		Message: fmt.Sprintf("variable %q referenced before assignment", name),
		Kind:    ir.KindVar,
		Name:    name,
	}
}

func definiteAssignment(loopVar, name string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeDefiniteAssignment,
		Message: fmt.Sprintf("variable %q is assigned in loop %q but has no binding before it", name, loopVar),
		Kind:    ir.KindLoop,
		Name:    name,
	}
}

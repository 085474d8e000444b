package rewrite

import (
	"errors"
	"fmt"
)

// RewriteError reports a failed rewrite. The tree may already be partially
// rewritten when it is returned and must be discarded.
type RewriteError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Rule names the rule that failed, if any.
	Rule string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes rewrite errors.
type ErrorCode string

const (
	// ErrCodeAmbiguousReduction indicates the strict reduction policy found
	// a candidate instruction with no block parameter operand.
	ErrCodeAmbiguousReduction ErrorCode = "AMBIGUOUS_REDUCTION"

	// ErrCodeVerification indicates a rule produced a node that failed
	// structural verification.
	ErrCodeVerification ErrorCode = "VERIFICATION_FAILED"

	// ErrCodeNoConvergence indicates fixed-point mode hit its iteration cap
	// while rules were still changing the tree.
	ErrCodeNoConvergence ErrorCode = "NO_CONVERGENCE"
)

// Error implements the error interface.
func (e *RewriteError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Rule != "" {
		msg += fmt.Sprintf(" (rule=%s)", e.Rule)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RewriteError) Unwrap() error { return e.Err }

// IsAmbiguousReduction returns true if err is an ambiguous-reduction error.
// Uses errors.As to handle wrapped errors.
func IsAmbiguousReduction(err error) bool {
	return CodeOf(err) == ErrCodeAmbiguousReduction
}

// CodeOf returns the rewrite error code carried by err, or "".
func CodeOf(err error) ErrorCode {
	var re *RewriteError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func verificationFailed(rule string, err error) *RewriteError {
	return &RewriteError{
		Code:    ErrCodeVerification,
		Rule:    rule,
		Message: "rewritten node failed verification",
		Err:     err,
	}
}

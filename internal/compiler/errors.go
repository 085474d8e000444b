package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/tinypy/internal/config"
	"github.com/roach88/tinypy/internal/frontend"
	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/llvmgen"
	"github.com/roach88/tinypy/internal/lower"
	"github.com/roach88/tinypy/internal/rewrite"
)

// PipelineError reports a pipeline failure. Err carries the failing pass's
// own error (a *lower.TranslationError, *rewrite.RewriteError or
// *ir.VerifyError) when there is one.
type PipelineError struct {
	Code    ErrorCode
	Pass    string
	Message string
	Err     error
}

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	// ErrCodeUnknownPass indicates a pass name outside the registry.
	ErrCodeUnknownPass ErrorCode = "UNKNOWN_PASS"

	// ErrCodeWrongLevel indicates a pass received IR of the wrong level.
	ErrCodeWrongLevel ErrorCode = "WRONG_LEVEL"

	// ErrCodePassFailed indicates the pass itself returned an error.
	ErrCodePassFailed ErrorCode = "PASS_FAILED"

	// ErrCodeVerification indicates a pass produced a tree that failed
	// structural verification.
	ErrCodeVerification ErrorCode = "VERIFICATION_FAILED"
)

func (e *PipelineError) Error() string {
	msg := string(e.Code)
	if e.Pass != "" {
		msg += fmt.Sprintf(" (pass=%s)", e.Pass)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error { return e.Err }

// IsWrongLevel returns true if err is a wrong-level pipeline error.
func IsWrongLevel(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Code == ErrCodeWrongLevel
}

// Codes reported by Classify for errors raised outside the pipeline.
const (
	CodeCompile  = "COMPILE_ERROR"
	CodeConfig   = "CONFIG_INVALID"
	CodeEmit     = "EMIT_FAILED"
	CodeInternal = "INTERNAL"
)

// Classify returns the most specific code carried by err: a translation or
// rewrite code when a pass failed for that reason, otherwise the pipeline
// code, otherwise a front-end, config or emission code. Nil yields "".
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var te *lower.TranslationError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	var re *rewrite.RewriteError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var ve *ir.VerifyError
	if errors.As(err, &ve) {
		return string(ErrCodeVerification)
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	var ce *frontend.CompileError
	if errors.As(err, &ce) {
		return CodeCompile
	}
	var cv *config.ValidationError
	if errors.As(err, &cv) {
		return CodeConfig
	}
	var ee *llvmgen.EmitError
	if errors.As(err, &ee) {
		return CodeEmit
	}
	return CodeInternal
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Compilation, validation or scenario failure
	ExitCommandError = 2 // Command error (invalid paths, bad config, database errors)
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Program file unreadable
	ErrCodeNotCUE      = "E003" // Program path is not a .cue file
	ErrCodeConfig      = "E004" // Configuration invalid
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeCompile     = "E006" // CUE program malformed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodePipeline    = "E008" // Pass pipeline failed
	ErrCodeEmit        = "E009" // LLVM emission failed
	ErrCodeDatabase    = "E010" // Run store error
	ErrCodeInvalid     = "E011" // Static validation found errors
	ErrCodeTestFailed  = "E012" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Kind    string `json:"kind,omitempty"`    // compiler error code, e.g. "UNBOUND_VARIABLE"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

var (
	successPrefix = pterm.NewStyle(pterm.FgLightGreen)
	errorPrefix   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	warnPrefix    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
)

// newFormatter builds an OutputFormatter writing to w.
func newFormatter(opts *RootOptions, w, errW io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    w,
		ErrWriter: errW,
		Verbose:   opts.Verbose,
	}
}

// JSON writes an indented CLIResponse.
func (f *OutputFormatter) JSON(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Success outputs a successful result in the configured format. In text mode
// data is printed after a check mark.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, successPrefix.Sprint("✓")+" "+fmt.Sprint(data))
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, kind, message string, details any) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Kind:    kind,
				Message: message,
				Details: details,
			},
		})
	}

	tag := code
	if kind != "" {
		tag += " " + kind
	}
	fmt.Fprintln(f.Writer, errorPrefix.Sprint(" "+tag+" ")+" "+message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Warn prints a warning line in text mode. JSON callers put warnings in
// their payload instead.
func (f *OutputFormatter) Warn(tag, message string) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintln(f.Writer, warnPrefix.Sprint(" "+tag+" ")+" "+message)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// fail prints an error and returns the matching ExitError.
func (f *OutputFormatter) fail(exitCode int, code, kind, message string, details any) error {
	_ = f.Error(code, kind, message, details)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

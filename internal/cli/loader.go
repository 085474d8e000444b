package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/tinypy/internal/compiler"
	"github.com/roach88/tinypy/internal/config"
	"github.com/roach88/tinypy/internal/frontend"
	"github.com/roach88/tinypy/internal/ir"
)

// LoadResult is a program read from disk and compiled to high-level IR.
type LoadResult struct {
	Path   string
	Source []byte
	Module *ir.Node
}

// LoadError represents an error that occurred while loading a program or
// its configuration.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadProgram reads a CUE program and compiles it with the literal types
// from cfg.
func LoadProgram(path string, cfg *config.Config) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("error accessing program: %v", err), Err: err}
	}
	if info.IsDir() || filepath.Ext(path) != ".cue" {
		return nil, &LoadError{Code: ErrCodeNotCUE, Message: fmt.Sprintf("not a .cue file: %s", path)}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading program: %v", err), Err: err}
	}

	mod, err := frontend.CompileSource(path, src,
		frontend.WithIntType(cfg.IntType()),
		frontend.WithFloatType(cfg.FloatType()),
	)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Path: path, Source: src, Module: mod}, nil
}

// LoadConfig resolves the configuration from an explicit path, the
// TINYPY_CONFIG environment variable or the defaults.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// convertCompileError converts a front-end error to a LoadError with
// position info.
func convertCompileError(err error) *LoadError {
	var compileErr *frontend.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Field != "" {
			msg = compileErr.Field + ": " + msg
		}
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: msg,
			Pos:     compileErr.Pos,
			Err:     err,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}

// cliCode maps an error from loading or compiling to its E0xx code.
func cliCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	switch compiler.Classify(err) {
	case compiler.CodeCompile:
		return ErrCodeCompile
	case compiler.CodeConfig:
		return ErrCodeConfig
	case compiler.CodeEmit:
		return ErrCodeEmit
	case compiler.CodeInternal:
		return ErrCodeGeneric
	default:
		return ErrCodePipeline
	}
}

// loadFailure prints a load error and returns the matching ExitError.
// Missing files and bad configuration are command errors; malformed
// programs are failures.
func loadFailure(f *OutputFormatter, err error) error {
	code := cliCode(err)
	msg := err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg = loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
	}
	exit := ExitCommandError
	if code == ErrCodeCompile {
		exit = ExitFailure
	}
	return f.fail(exit, code, "", msg, nil)
}

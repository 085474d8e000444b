package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tinypy/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Config string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <program.cue>",
		Short: "Check a program without lowering it",
		Long: `Check a CUE program for static errors without running the pass pipeline.

Reports malformed names, unknown operators, calls to undefined functions
and valueless calls used as values. Recursive call cycles are reported as
warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "TOML configuration file (default $TINYPY_CONFIG)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return loadFailure(f, err)
	}

	load, err := LoadProgram(path, cfg)
	if err != nil {
		return loadFailure(f, err)
	}

	result := ValidationResult{
		Errors:   compiler.Validate(load.Module),
		Warnings: compiler.AnalyzeCalls(load.Module),
	}
	result.Valid = len(result.Errors) == 0
	f.VerboseLog("Validated %s: %d error(s), %d warning(s)", path, len(result.Errors), len(result.Warnings))

	if !result.Valid {
		return outputValidationErrors(f, result)
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	for _, w := range result.Warnings {
		f.Warn("WARN", w.Message)
	}
	return f.Success(fmt.Sprintf("%s is valid", path))
}

func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	msg := fmt.Sprintf("found %d validation error(s)", len(result.Errors))

	if f.Format == "json" {
		return f.fail(ExitFailure, ErrCodeInvalid, "", msg, result)
	}

	for _, e := range result.Errors {
		fmt.Fprintf(f.Writer, "%s %s: %s\n", errorPrefix.Sprint(" "+e.Code+" "), e.Field, e.Message)
	}
	for _, w := range result.Warnings {
		f.Warn("WARN", w.Message)
	}
	fmt.Fprintf(f.Writer, "\n%s\n", msg)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeInvalid, msg))
}

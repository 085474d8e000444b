package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tinypy/internal/compiler"
	"github.com/roach88/tinypy/internal/llvmgen"
)

// EmitOptions holds flags for the emit-llvm command.
type EmitOptions struct {
	*RootOptions
	Passes string
	Config string
	Output string
}

// EmitOutput is the JSON payload of a successful emit-llvm.
type EmitOutput struct {
	Program    string   `json:"program"`
	Passes     []string `json:"passes"`
	LLVM       string   `json:"llvm,omitempty"`
	OutputFile string   `json:"output_file,omitempty"`
}

// NewEmitLLVMCommand creates the emit-llvm command.
func NewEmitLLVMCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit-llvm <program.cue>",
		Short: "Compile a program to textual LLVM IR",
		Long: `Compile a CUE program through the pass pipeline and emit LLVM IR.

The pass list must end at the lowered level; the default pipeline does.
Parallel loops are emitted as sequential loops with accumulator phis.

Examples:
  tinypy emit-llvm prog.cue
  tinypy emit-llvm prog.cue -o prog.ll
  tinypy emit-llvm prog.cue --passes normalize-builtins,lower,parallelize`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmitLLVM(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Passes, "passes", "", "comma-separated pass list (default normalize-builtins,lower)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "TOML configuration file (default $TINYPY_CONFIG)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runEmitLLVM(opts *EmitOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, err := compileProgram(f, path, opts.Config, opts.Passes)
	if c == nil {
		return err
	}
	if err != nil {
		return f.fail(ExitFailure, cliCode(err), compiler.Classify(err), err.Error(), nil)
	}

	m, err := llvmgen.Emit(c.result.Module,
		llvmgen.WithFormatSymbol(c.cfg.LowerBuiltins().Resolve("print")),
		llvmgen.WithLogger(slog.Default()),
	)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeEmit, compiler.CodeEmit, err.Error(), nil)
	}
	text := m.String()

	out := EmitOutput{Program: path, Passes: c.passes}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0644); err != nil {
			return f.fail(ExitCommandError, ErrCodeWriteFailed, "", fmt.Sprintf("writing output file: %v", err), nil)
		}
		out.OutputFile = opts.Output
		if f.Format == "json" {
			return f.Success(out)
		}
		return f.Success(fmt.Sprintf("Emitted LLVM IR for %s to %s", path, opts.Output))
	}

	if f.Format == "json" {
		out.LLVM = text
		return f.Success(out)
	}
	fmt.Fprint(f.Writer, text)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tinypy/internal/compiler"
	"github.com/roach88/tinypy/internal/config"
	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Passes   string // comma-separated pass list
	Config   string // TOML config path
	Database string // run log path, optional
	Output   string // output file path
}

// CompileOutput is the JSON payload of a successful compile.
type CompileOutput struct {
	Program    string               `json:"program"`
	Passes     []string             `json:"passes"`
	Level      string               `json:"level"`
	Module     string               `json:"module,omitempty"`
	OutputHash string               `json:"output_hash"`
	Stats      []compiler.PassStats `json:"stats"`
	RunID      string               `json:"run_id,omitempty"`
	OutputFile string               `json:"output_file,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program.cue>",
		Short: "Compile a program and print the resulting IR",
		Long: `Compile a CUE program through the pass pipeline and print the module.

The default pipeline is normalize-builtins,lower. Add parallelize to turn
accumulator loops into parallel reductions. With --db, every run is logged
to a SQLite run store (see "tinypy history").

Examples:
  tinypy compile prog.cue
  tinypy compile prog.cue --passes normalize-builtins,lower,parallelize
  tinypy compile prog.cue --config tinypy.toml --db runs.db -o prog.ir`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Passes, "passes", "", "comma-separated pass list (default normalize-builtins,lower)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "TOML configuration file (default $TINYPY_CONFIG)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run log to record this compile in")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

// compiled is a program after the pass pipeline.
type compiled struct {
	load   *LoadResult
	cfg    *config.Config
	passes []string
	result compiler.Result
}

// compileProgram loads the config and program and runs the pipeline. The
// returned error has already been printed.
func compileProgram(f *OutputFormatter, path, configPath, passList string) (*compiled, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, loadFailure(f, err)
	}
	if cfg.Source != "" {
		f.VerboseLog("Using config %s", cfg.Source)
	}

	passes, err := compiler.ParsePasses(passList)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodePipeline, compiler.Classify(err), err.Error(), nil)
	}

	load, err := LoadProgram(path, cfg)
	if err != nil {
		return nil, loadFailure(f, err)
	}
	f.VerboseLog("Loaded %s (%d node(s))", path, ir.Count(load.Module))

	p, err := compiler.New(cfg, passes, compiler.WithLogger(slog.Default()))
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodePipeline, compiler.Classify(err), err.Error(), nil)
	}

	c := &compiled{load: load, cfg: cfg, passes: passes}
	c.result, err = p.Run(load.Module)
	if err != nil {
		return c, err
	}
	for _, st := range c.result.Stats {
		f.VerboseLog("  %-20s changes=%d iterations=%d nodes %d -> %d",
			st.Name, st.Changes, st.Iterations, st.NodesBefore, st.NodesAfter)
	}
	return c, nil
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := compileProgram(f, path, opts.Config, opts.Passes)
	if c == nil {
		return err
	}

	var run store.Run
	if opts.Database != "" {
		attempt := store.Attempt{
			SourcePath: path,
			Source:     c.load.Source,
			Passes:     c.passes,
			Result:     c.result,
		}
		if err != nil {
			attempt.Err = err
			attempt.ErrorCode = compiler.Classify(err)
		}
		var recErr error
		run, recErr = recordRun(ctx, opts.Database, attempt)
		if recErr != nil {
			return f.fail(ExitCommandError, ErrCodeDatabase, "", recErr.Error(), nil)
		}
		f.VerboseLog("Recorded run %s (seq %d)", run.ID, run.Seq)
	}

	if err != nil {
		return f.fail(ExitFailure, cliCode(err), compiler.Classify(err), err.Error(), nil)
	}

	text := ir.String(c.result.Module)
	hash, err := ir.ModuleHash(c.result.Module)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "", err.Error(), nil)
	}

	out := CompileOutput{
		Program:    path,
		Passes:     c.passes,
		Level:      c.result.Level.String(),
		OutputHash: hash,
		Stats:      c.result.Stats,
		RunID:      run.ID,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0644); err != nil {
			return f.fail(ExitCommandError, ErrCodeWriteFailed, "", fmt.Sprintf("writing output file: %v", err), nil)
		}
		out.OutputFile = opts.Output
		if f.Format == "json" {
			return f.Success(out)
		}
		return f.Success(fmt.Sprintf("Compiled %s (%s) to %s", path, strings.Join(c.passes, ","), opts.Output))
	}

	if f.Format == "json" {
		out.Module = text
		return f.Success(out)
	}
	fmt.Fprint(f.Writer, text)
	return nil
}

// recordRun appends one run to the log at dbPath, resuming its clock.
func recordRun(ctx context.Context, dbPath string, a store.Attempt) (store.Run, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return store.Run{}, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rec, err := st.Recorder(ctx)
	if err != nil {
		return store.Run{}, err
	}
	return rec.Record(ctx, a)
}

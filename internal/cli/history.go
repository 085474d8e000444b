package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Source   string // optional - only runs of this program
	RunID    string // optional - show one run in detail
	Status   string // optional - "ok" or "error"
	Code     string // optional - error code of failed runs
	Pass     string // optional - only runs that included this pass
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Runs []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compile runs",
		Long: `List compile runs recorded with "tinypy compile --db".

Runs are shown newest first. With --source, only runs whose program text
hashes the same as the given file are listed; --status, --code and --pass
narrow the listing further. With --run, one run is shown with its per-pass
statistics; add --verbose to include its output.

Examples:
  tinypy history --db runs.db
  tinypy history --db runs.db --limit 5
  tinypy history --db runs.db --source prog.cue
  tinypy history --db runs.db --status error --code UNBOUND_VARIABLE
  tinypy history --db runs.db --pass parallelize
  tinypy history --db runs.db --run 0192f0c4-... --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only list runs of this program file")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run by id")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only list runs with this status (ok|error)")
	cmd.Flags().StringVar(&opts.Code, "code", "", "only list failed runs with this error code")
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "only list runs that included this pass")
	cmd.MarkFlagsMutuallyExclusive("source", "run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, "", fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "", err.Error(), nil)
	}
	defer st.Close()

	if opts.RunID != "" {
		return showRun(ctx, f, st, opts.RunID)
	}

	q, err := historyQuery(opts)
	if err != nil {
		return loadFailure(f, err)
	}
	runs, err := st.QueryRuns(ctx, q)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "", err.Error(), nil)
	}
	f.VerboseLog("Found %d run(s) in %s", len(runs), opts.Database)

	if f.Format == "json" {
		return f.Success(HistoryResult{Runs: runs})
	}
	return outputHistoryText(f, runs)
}

// historyQuery builds the run query for the listing flags.
func historyQuery(opts *HistoryOptions) (store.RunQuery, error) {
	var preds []store.Predicate

	if opts.Source != "" {
		src, err := os.ReadFile(opts.Source)
		if errors.Is(err, os.ErrNotExist) {
			return store.RunQuery{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %s", opts.Source), Err: err}
		}
		if err != nil {
			return store.RunQuery{}, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading program: %v", err), Err: err}
		}
		preds = append(preds, store.Equals{Column: "source_hash", Value: ir.SourceHash(src)})
	}

	switch store.Status(opts.Status) {
	case "":
	case store.StatusOK, store.StatusError:
		preds = append(preds, store.Equals{Column: "status", Value: store.Status(opts.Status)})
	default:
		return store.RunQuery{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid status %q: must be ok or error", opts.Status)}
	}

	if opts.Code != "" {
		preds = append(preds, store.Equals{Column: "error_code", Value: opts.Code})
	}
	if opts.Pass != "" {
		preds = append(preds, store.HasPass{Pass: opts.Pass})
	}

	q := store.RunQuery{Limit: opts.Limit}
	if len(preds) > 0 {
		q.Filter = store.And{Predicates: preds}
	}
	return q, nil
}

func showRun(ctx context.Context, f *OutputFormatter, st *store.Store, id string) error {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return f.fail(ExitCommandError, ErrCodeNotFound, "", fmt.Sprintf("run not found: %s", id), nil)
	}
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDatabase, "", err.Error(), nil)
	}

	if f.Format == "json" {
		return f.Success(run)
	}

	w := f.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "Program: %s\n", run.SourcePath)
	fmt.Fprintf(w, "Passes:  %s\n", strings.Join(run.Passes, ","))
	fmt.Fprintf(w, "Status:  %s\n", runStatus(run))
	if run.Status == store.StatusError {
		fmt.Fprintf(w, "Error:   %s\n", run.ErrorMessage)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Passes ===")
	if len(run.Stats) == 0 {
		fmt.Fprintln(w, "  (no passes completed)")
	}
	for _, s := range run.Stats {
		fmt.Fprintf(w, "  %-20s changes=%d iterations=%d nodes %d -> %d\n",
			s.Name, s.Changes, s.Iterations, s.NodesBefore, s.NodesAfter)
	}

	if f.Verbose && run.Output != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Output ===")
		fmt.Fprint(w, run.Output)
	}
	return nil
}

func outputHistoryText(f *OutputFormatter, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded")
		return nil
	}

	data := pterm.TableData{{"SEQ", "ID", "STATUS", "PROGRAM", "PASSES"}}
	for _, r := range runs {
		data = append(data, []string{
			strconv.FormatInt(r.Seq, 10),
			truncateID(r.ID),
			runStatus(r),
			r.SourcePath,
			strings.Join(r.Passes, ","),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "", err.Error(), nil)
	}
	fmt.Fprintln(f.Writer, table)
	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// runStatus returns "ok" or the error code of a failed run.
func runStatus(r store.Run) string {
	if r.Status == store.StatusError {
		return "error " + r.ErrorCode
	}
	return string(r.Status)
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tinypy/internal/compiler"
)

const runColumns = `id, seq, source_path, source_hash, passes, output_hash, output, status, error_code, error_message`

// ReadRun retrieves a single run and its pass stats by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}
	run.Stats, err = s.readStats(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns
// every run. Pass stats are not loaded; use ReadRun for the full record.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.QueryRuns(ctx, RunQuery{Limit: limit})
}

// ListRunsForSource returns runs of one program text, newest first.
func (s *Store) ListRunsForSource(ctx context.Context, sourceHash string) ([]Run, error) {
	return s.QueryRuns(ctx, RunQuery{Filter: Equals{Column: "source_hash", Value: sourceHash}})
}

func (s *Store) readStats(ctx context.Context, runID string) ([]compiler.PassStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, changes, iterations, nodes_before, nodes_after
		FROM pass_stats
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read pass stats: %w", err)
	}
	defer rows.Close()

	stats := []compiler.PassStats{}
	for rows.Next() {
		var st compiler.PassStats
		if err := rows.Scan(&st.Name, &st.Changes, &st.Iterations, &st.NodesBefore, &st.NodesAfter); err != nil {
			return nil, fmt.Errorf("scan pass stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pass stats: %w", err)
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun reads one row selected with runColumns. Stats is left empty.
func scanRun(sc scanner) (Run, error) {
	var (
		run        Run
		passesJSON string
		status     string
	)
	err := sc.Scan(
		&run.ID,
		&run.Seq,
		&run.SourcePath,
		&run.SourceHash,
		&passesJSON,
		&run.OutputHash,
		&run.Output,
		&status,
		&run.ErrorCode,
		&run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Status = Status(status)
	run.Passes, err = unmarshalPasses(passesJSON)
	if err != nil {
		return Run{}, err
	}
	run.Stats = []compiler.PassStats{}
	return run, nil
}

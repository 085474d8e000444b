package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its pass stats in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: rewriting the same run id
// is silently ignored, stats included. A different run with a seq already in
// use fails on the UNIQUE constraint.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if err := run.validate(); err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	passesJSON, err := marshalPasses(run.Passes)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source_path, source_hash, passes, output_hash, output, status, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.SourcePath,
		run.SourceHash,
		passesJSON,
		run.OutputHash,
		run.Output,
		string(run.Status),
		run.ErrorCode,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for i, st := range run.Stats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pass_stats
			(run_id, position, name, changes, iterations, nodes_before, nodes_after)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, st.Name, st.Changes, st.Iterations, st.NodesBefore, st.NodesAfter)
		if err != nil {
			return fmt.Errorf("write run: pass %s: %w", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

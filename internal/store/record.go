package store

import (
	"context"
	"fmt"

	"github.com/roach88/tinypy/internal/compiler"
	"github.com/roach88/tinypy/internal/ir"
)

// Attempt describes one compiler invocation to be logged.
type Attempt struct {
	SourcePath string
	Source     []byte
	Passes     []string

	// Result is used when Err is nil.
	Result compiler.Result

	// Err marks the run failed. ErrorCode classifies it; it defaults to
	// "INTERNAL" when empty.
	Err       error
	ErrorCode string
}

// Recorder turns attempts into runs, assigning ids and seq numbers.
type Recorder struct {
	store *Store
	ids   IDGenerator
	clock Sequencer
}

// NewRecorder creates a recorder with explicit id and seq sources.
func NewRecorder(s *Store, ids IDGenerator, clock Sequencer) *Recorder {
	return &Recorder{store: s, ids: ids, clock: clock}
}

// Recorder returns a recorder using UUIDv7 ids and a clock resumed from the
// highest stored seq.
func (s *Store) Recorder(ctx context.Context) (*Recorder, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	return NewRecorder(s, UUIDv7Generator{}, NewClockAt(last)), nil
}

// Record builds a run from a and writes it.
func (r *Recorder) Record(ctx context.Context, a Attempt) (Run, error) {
	run := Run{
		ID:         r.ids.Generate(),
		Seq:        r.clock.Next(),
		SourcePath: a.SourcePath,
		SourceHash: ir.SourceHash(a.Source),
		Passes:     append([]string{}, a.Passes...),
		Stats:      []compiler.PassStats{},
		Status:     StatusOK,
	}

	if a.Err != nil {
		run.Status = StatusError
		run.ErrorCode = a.ErrorCode
		if run.ErrorCode == "" {
			run.ErrorCode = "INTERNAL"
		}
		run.ErrorMessage = a.Err.Error()
	} else {
		if a.Result.Module == nil {
			return Run{}, fmt.Errorf("record run: successful attempt has no module")
		}
		hash, err := ir.ModuleHash(a.Result.Module)
		if err != nil {
			return Run{}, fmt.Errorf("record run: %w", err)
		}
		run.Output = ir.String(a.Result.Module)
		run.OutputHash = hash
		run.Stats = append(run.Stats, a.Result.Stats...)
	}

	if err := r.store.WriteRun(ctx, run); err != nil {
		return Run{}, err
	}
	return run, nil
}

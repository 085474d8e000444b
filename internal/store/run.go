package store

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/tinypy/internal/compiler"
)

// Status is the outcome of a compile run.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Run is one logged invocation of the compiler on a program.
type Run struct {
	ID           string               `json:"id"`
	Seq          int64                `json:"seq"`
	SourcePath   string               `json:"source_path"`
	SourceHash   string               `json:"source_hash"`
	Passes       []string             `json:"passes"`
	Stats        []compiler.PassStats `json:"stats"`
	OutputHash   string               `json:"output_hash,omitempty"`
	Output       string               `json:"output,omitempty"`
	Status       Status               `json:"status"`
	ErrorCode    string               `json:"error_code,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// validate checks the fields the schema cannot express.
func (r Run) validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("run id is required")
	case r.Seq <= 0:
		return fmt.Errorf("run %s: seq must be positive, got %d", r.ID, r.Seq)
	case r.Status != StatusOK && r.Status != StatusError:
		return fmt.Errorf("run %s: invalid status %q", r.ID, r.Status)
	case r.Status == StatusError && r.ErrorCode == "":
		return fmt.Errorf("run %s: failed run needs an error code", r.ID)
	}
	return nil
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequencer hands out monotonically increasing seq numbers.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock whose next value is start+1. Pass the result of
// LastSeq to continue an existing log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments and returns the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tinypy/internal/compiler"
)

// createTestStore opens a fresh store in a temp dir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a successful run with minimal required fields.
func createTestRun(id string, seq int64) Run {
	return Run{
		ID:         id,
		Seq:        seq,
		SourcePath: "prog.cue",
		SourceHash: "source-hash",
		Passes:     []string{"normalize-builtins", "lower"},
		Stats: []compiler.PassStats{
			{Name: "normalize-builtins", Changes: 1, Iterations: 1, NodesBefore: 4, NodesAfter: 5},
			{Name: "lower", Changes: 1, Iterations: 1, NodesBefore: 5, NodesAfter: 9},
		},
		OutputHash: "output-hash",
		Output:     "module {\n}\n",
		Status:     StatusOK,
	}
}

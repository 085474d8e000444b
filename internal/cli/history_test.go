package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/store"
)

func executeHistory(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// seedRuns records a successful hello run and a failed unbound run.
func seedRuns(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := executeCompile(t, "text", "testdata/hello.cue", "--db", dbPath)
	require.NoError(t, err)
	_, err = executeCompile(t, "text", "testdata/unbound.cue", "--db", dbPath)
	require.Error(t, err)
	return dbPath
}

func TestHistoryMissingDatabaseFlag(t *testing.T) {
	_, err := executeHistory(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestHistoryNonExistentDatabase(t *testing.T) {
	_, err := executeHistory(t, &RootOptions{Format: "text"}, "--db", "/nonexistent/path/runs.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestHistoryEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeHistory(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestHistoryTable(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := executeHistory(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "testdata/hello.cue")
	assert.Contains(t, out, "error UNBOUND_VARIABLE")
	assert.Contains(t, out, "normalize-builtins,lower")
}

func TestHistoryJSON(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := executeHistory(t, &RootOptions{Format: "json"}, "--db", dbPath, "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, int64(2), resp.Data.Runs[0].Seq)
	assert.Equal(t, store.StatusError, resp.Data.Runs[0].Status)
}

func TestHistoryBySource(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := executeHistory(t, &RootOptions{Format: "json"}, "--db", dbPath, "--source", "testdata/hello.cue")
	require.NoError(t, err)

	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "testdata/hello.cue", resp.Data.Runs[0].SourcePath)
}

func TestHistoryBySourceMissingFile(t *testing.T) {
	dbPath := seedRuns(t)

	_, err := executeHistory(t, &RootOptions{Format: "text"}, "--db", dbPath, "--source", "testdata/nope.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestHistoryShowRun(t *testing.T) {
	dbPath := seedRuns(t)

	listing, err := executeHistory(t, &RootOptions{Format: "json"}, "--db", dbPath)
	require.NoError(t, err)
	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(listing), &resp))
	require.Len(t, resp.Data.Runs, 2)
	okRun := resp.Data.Runs[1]

	out, err := executeHistory(t, &RootOptions{Format: "text", Verbose: true}, "--db", dbPath, "--run", okRun.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+okRun.ID+" (seq 1)")
	assert.Contains(t, out, "=== Passes ===")
	assert.Contains(t, out, "lower")
	assert.Contains(t, out, "=== Output ===")
	assert.Contains(t, out, "func.func")
}

func TestHistoryShowRunNotFound(t *testing.T) {
	dbPath := seedRuns(t)

	_, err := executeHistory(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "run-0001", truncateID("run-0001"))
	assert.Equal(t, "0192f0c4...9abcdef0", truncateID("0192f0c4-7d1e-7000-8000-123456789abcdef0"))
}

func TestHistoryFilters(t *testing.T) {
	dbPath := seedRuns(t)
	_, err := executeCompile(t, "text", "testdata/sum.cue", "--db", dbPath, "--passes", "normalize-builtins,lower,parallelize")
	require.NoError(t, err)

	tests := []struct {
		name  string
		args  []string
		paths []string
	}{
		{"status ok", []string{"--status", "ok"}, []string{"testdata/sum.cue", "testdata/hello.cue"}},
		{"status error", []string{"--status", "error"}, []string{"testdata/unbound.cue"}},
		{"error code", []string{"--code", "UNBOUND_VARIABLE"}, []string{"testdata/unbound.cue"}},
		{"pass", []string{"--pass", "parallelize"}, []string{"testdata/sum.cue"}},
		{"combined", []string{"--pass", "lower", "--status", "ok", "--limit", "1"}, []string{"testdata/sum.cue"}},
		{"no match", []string{"--code", "NO_CONVERGENCE"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", dbPath}, tt.args...)
			out, err := executeHistory(t, &RootOptions{Format: "json"}, args...)
			require.NoError(t, err)

			var resp struct {
				Data HistoryResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			paths := []string{}
			for _, r := range resp.Data.Runs {
				paths = append(paths, r.SourcePath)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestHistoryInvalidStatus(t *testing.T) {
	dbPath := seedRuns(t)

	_, err := executeHistory(t, &RootOptions{Format: "text"}, "--db", dbPath, "--status", "pending")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid status")
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/store"
)

// executeCompile runs the compile command with args and returns stdout.
func executeCompile(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileHello(t *testing.T) {
	out, err := executeCompile(t, "text", "testdata/hello.cue")
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "hello.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestCompileJSON(t *testing.T) {
	out, err := executeCompile(t, "json", "testdata/accumulate.cue")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"normalize-builtins", "lower"}, resp.Data.Passes)
	assert.Equal(t, "lowered", resp.Data.Level)
	assert.Contains(t, resp.Data.Module, "scf.loop")
	assert.NotEmpty(t, resp.Data.OutputHash)
	assert.Len(t, resp.Data.Stats, 2)
	assert.Empty(t, resp.Data.RunID)
}

func TestCompileParallelize(t *testing.T) {
	out, err := executeCompile(t, "text", "testdata/sum.cue", "--passes", "normalize-builtins,lower,parallelize")
	require.NoError(t, err)
	assert.Contains(t, out, "scf.parallel")
	assert.Contains(t, out, "scf.reduce")
	assert.NotContains(t, out, "scf.loop")
}

func TestCompileOutputFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "hello.ir")

	out, err := executeCompile(t, "text", "testdata/hello.cue", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled testdata/hello.cue")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `callee = "printf"`)
}

func TestCompileOutputFileUnwritable(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "missing", "dir", "hello.ir")

	_, err := executeCompile(t, "text", "testdata/hello.cue", "-o", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeWriteFailed)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
		contains string
	}{
		{
			name:     "program not found",
			args:     []string{"testdata/nope.cue"},
			exitCode: ExitCommandError,
			code:     ErrCodeNotFound,
			contains: "program not found",
		},
		{
			name:     "not a cue file",
			args:     []string{"testdata"},
			exitCode: ExitCommandError,
			code:     ErrCodeNotCUE,
			contains: "not a .cue file",
		},
		{
			name:     "malformed program",
			args:     []string{"testdata/bad_shape.cue"},
			exitCode: ExitFailure,
			code:     ErrCodeCompile,
		},
		{
			name:     "unbound variable",
			args:     []string{"testdata/unbound.cue"},
			exitCode: ExitFailure,
			code:     ErrCodePipeline,
			contains: "UNBOUND_VARIABLE",
		},
		{
			name:     "unknown pass",
			args:     []string{"testdata/hello.cue", "--passes", "lower,vectorize"},
			exitCode: ExitCommandError,
			code:     ErrCodePipeline,
			contains: "UNKNOWN_PASS",
		},
		{
			name:     "missing config",
			args:     []string{"testdata/hello.cue", "--config", "testdata/nope.toml"},
			exitCode: ExitCommandError,
			code:     ErrCodeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCompile(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			if tt.contains != "" {
				assert.Contains(t, out, tt.contains)
			}
		})
	}
}

func TestCompileErrorJSON(t *testing.T) {
	out, err := executeCompile(t, "json", "testdata/unbound.cue")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodePipeline, resp.Error.Code)
	assert.Equal(t, "UNBOUND_VARIABLE", resp.Error.Kind)
}

func TestCompileRecordsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := executeCompile(t, "text", "testdata/hello.cue", "--db", dbPath)
	require.NoError(t, err)
	_, err = executeCompile(t, "text", "testdata/unbound.cue", "--db", dbPath)
	require.Error(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first; seq resumes across invocations.
	assert.Equal(t, int64(2), runs[0].Seq)
	assert.Equal(t, store.StatusError, runs[0].Status)
	assert.Equal(t, "UNBOUND_VARIABLE", runs[0].ErrorCode)
	assert.Equal(t, "testdata/unbound.cue", runs[0].SourcePath)

	assert.Equal(t, int64(1), runs[1].Seq)
	assert.Equal(t, store.StatusOK, runs[1].Status)
	assert.Equal(t, []string{"normalize-builtins", "lower"}, runs[1].Passes)
	assert.Contains(t, runs[1].Output, "func.func")
}

func TestCompileJSONIncludesRunID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := executeCompile(t, "json", "testdata/hello.cue", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.RunID, 36)
}

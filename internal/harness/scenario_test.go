package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestProgram writes a minimal CUE program into dir/programs.
func createTestProgram(t *testing.T, dir string) string {
	t.Helper()
	programs := filepath.Join(dir, "programs")
	require.NoError(t, os.MkdirAll(programs, 0755))
	path := filepath.Join(programs, "p.cue")
	require.NoError(t, os.WriteFile(path, []byte(`"func": main: body: []`), 0644))
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	program := createTestProgram(t, dir)

	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario"
program: programs/p.cue
passes: [normalize-builtins, lower]
expect:
  contains: ["func.return"]
  not_contains: ["scf.loop"]
  op_counts: {func.return: 1}
  golden: true
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, program, scenario.Program)
	assert.Equal(t, EmitIR, scenario.Emit)
	assert.Equal(t, []string{"normalize-builtins", "lower"}, scenario.Passes)
	assert.Equal(t, []string{"func.return"}, scenario.Expect.Contains)
	assert.Equal(t, map[string]int{"func.return": 1}, scenario.Expect.OpCounts)
	assert.True(t, scenario.Expect.Golden)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "program: programs/p.cue\n",
			wantErr: "name is required",
		},
		{
			name:    "name with slash",
			content: "name: a/b\nprogram: programs/p.cue\n",
			wantErr: "must not contain slashes",
		},
		{
			name:    "missing program",
			content: "name: x\n",
			wantErr: "program is required",
		},
		{
			name:    "program not found",
			content: "name: x\nprogram: programs/nope.cue\n",
			wantErr: "program file not found",
		},
		{
			name:    "config not found",
			content: "name: x\nprogram: programs/p.cue\nconfig: nope.toml\n",
			wantErr: "config file not found",
		},
		{
			name:    "unknown emit",
			content: "name: x\nprogram: programs/p.cue\nemit: wasm\n",
			wantErr: `unknown output "wasm"`,
		},
		{
			name:    "unknown pass",
			content: "name: x\nprogram: programs/p.cue\npasses: [lower, fold]\n",
			wantErr: "UNKNOWN_PASS",
		},
		{
			name:    "negative op count",
			content: "name: x\nprogram: programs/p.cue\nexpect:\n  op_counts: {scf.loop: -1}\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "golden with error",
			content: "name: x\nprogram: programs/p.cue\nexpect:\n  error: UNBOUND_VARIABLE\n  golden: true\n",
			wantErr: "golden comparison needs a successful run",
		},
		{
			name:    "unknown field",
			content: "name: x\nprogram: programs/p.cue\nexpects: {}\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createTestProgram(t, dir)
			path := writeScenario(t, dir, tt.content)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_SortedAndFiltered(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"accumulate", "hello", "hello_llvm", "sum_parallel", "unbound"}, names)
}

func TestLoadScenarios_MissingDir(t *testing.T) {
	_, err := LoadScenarios(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

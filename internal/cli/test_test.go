package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeScenarioDir creates <tmp>/scenarios holding one scenario per entry
// of files, compiling testdata/hello.cue.
func writeScenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))

	program, err := filepath.Abs(filepath.Join("testdata", "hello.cue"))
	require.NoError(t, err)
	for name, body := range files {
		content := "program: " + program + "\n" + body
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := executeTest(t, "text", harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ accumulate")
	assert.Contains(t, out, "✓ unbound")
	assert.Contains(t, out, "5 passed, 0 failed, 5 total")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := executeTest(t, "json", harnessScenarios, "--filter", "hello*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	assert.Equal(t, "hello", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "hello_llvm", resp.Data.Scenarios[1].Name)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := executeTest(t, "text", harnessScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"wrong.yaml": "name: wrong\nexpect:\n  contains:\n    - \"no such text\"\n",
	})

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeTestFailed)
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTestCommandInvalidScenarioFile(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"broken.yaml": "name: broken\nbogus_field: 1\n",
	})

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"greet.yaml": "name: greet\nexpect:\n  golden: true\n",
	})
	goldenPath := filepath.Join(filepath.Dir(dir), "golden", "greet.golden")

	// No golden file yet.
	_, err := executeTest(t, "text", dir)
	require.Error(t, err)

	_, err = executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `value = "hello\n"`)

	out, err := executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ greet")

	require.NoError(t, os.WriteFile(goldenPath, []byte("stale\n"), 0644))
	out, err = executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandGoldenDirFlag(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"greet.yaml": "name: greet\nexpect:\n  golden: true\n",
	})
	goldenDir := filepath.Join(t.TempDir(), "elsewhere")

	_, err := executeTest(t, "text", dir, "--update", "--golden-dir", goldenDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "greet.golden"))
}

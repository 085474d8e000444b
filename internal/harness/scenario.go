package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tinypy/internal/compiler"
)

// Output kinds selected by Scenario.Emit.
const (
	EmitIR   = "ir"
	EmitLLVM = "llvm"
)

// Scenario describes one compiler run and what it must produce.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Program is the CUE program file to compile.
	Program string `yaml:"program"`

	// Passes overrides the default pipeline.
	Passes []string `yaml:"passes,omitempty"`

	// Config is an optional TOML configuration file.
	Config string `yaml:"config,omitempty"`

	// Emit is EmitIR (default) or EmitLLVM.
	Emit string `yaml:"emit,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect lists the checks applied to a scenario's result.
type Expect struct {
	// Error is the expected error code. When set the run must fail with it.
	Error string `yaml:"error,omitempty"`

	// Contains lists substrings the output must contain (or, for a failing
	// run, the error message).
	Contains []string `yaml:"contains,omitempty"`

	// NotContains lists substrings that must be absent.
	NotContains []string `yaml:"not_contains,omitempty"`

	// OpCounts maps node kinds to exact occurrence counts.
	OpCounts map[string]int `yaml:"op_counts,omitempty"`

	// Golden compares the output with testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Program and config
// paths are resolved relative to the file's directory. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Program = resolve(base, scenario.Program)
	scenario.Config = resolve(base, scenario.Config)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain slashes or spaces", s.Name)
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	switch s.Emit {
	case "":
		s.Emit = EmitIR
	case EmitIR, EmitLLVM:
	default:
		return fmt.Errorf("emit: unknown output %q (want %s or %s)", s.Emit, EmitIR, EmitLLVM)
	}

	if len(s.Passes) > 0 {
		if _, err := compiler.ParsePasses(strings.Join(s.Passes, ",")); err != nil {
			return fmt.Errorf("passes: %w", err)
		}
	}

	for kind, n := range s.Expect.OpCounts {
		if n < 0 {
			return fmt.Errorf("expect.op_counts[%s]: count must be non-negative", kind)
		}
	}
	if s.Expect.Error != "" && s.Expect.Golden {
		return fmt.Errorf("expect: golden comparison needs a successful run, but error %s is expected", s.Expect.Error)
	}
	return nil
}

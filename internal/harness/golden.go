package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir holds golden files, relative to the test's package directory.
const GoldenDir = "testdata/golden"

// RunWithGolden executes a scenario and, when it expects golden comparison,
// compares the output against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if scenario.Expect.Golden {
		if err := AssertGolden(t, scenario.Name, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// AssertGolden compares an existing result's output against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	if result.ErrorCode != "" {
		return fmt.Errorf("golden %s: run failed with %s", name, result.ErrorCode)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Output))
	return nil
}

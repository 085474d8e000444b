package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/tinypy/internal/compiler"
	"github.com/roach88/tinypy/internal/config"
	"github.com/roach88/tinypy/internal/frontend"
	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/llvmgen"
	"github.com/roach88/tinypy/internal/store"
	"github.com/roach88/tinypy/internal/testutil"
)

// Harness executes scenarios against an isolated run store.
type Harness struct {
	store    *store.Store
	recorder *store.Recorder
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Compilation failures are
// reported in the result and checked against the expectations; only problems
// with the scenario itself (unreadable program, invalid config) are returned
// as errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		recorder: store.NewRecorder(st, testutil.NewSequentialIDs(scenario.Name), testutil.NewDeterministicClock()),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	src, err := os.ReadFile(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: read program: %w", scenario.Name, err)
	}

	cfg := config.Default()
	if scenario.Config != "" {
		cfg, err = config.Load(scenario.Config)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	passes := scenario.Passes
	if len(passes) == 0 {
		passes = slices.Clone(compiler.DefaultPasses)
	}

	result := NewResult()
	res, output, compileErr := h.compile(src, cfg, passes, scenario)

	attempt := store.Attempt{
		SourcePath: scenario.Program,
		Source:     src,
		Passes:     passes,
	}
	if compileErr != nil {
		result.ErrorCode = compiler.Classify(compileErr)
		result.ErrorMessage = compileErr.Error()
		attempt.Err = compileErr
		attempt.ErrorCode = result.ErrorCode
	} else {
		result.Output = output
		result.OpCounts = countOps(res.Module)
		result.Stats = append(result.Stats, res.Stats...)
		attempt.Result = res
	}

	run, err := h.recorder.Record(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Run = run

	h.logger.Debug("scenario executed",
		"scenario", scenario.Name,
		"run", run.ID,
		"status", run.Status,
	)

	for _, msg := range EvaluateExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// compile runs the front-end, the pass pipeline and, when requested, LLVM
// emission. The returned text is the scenario's output.
func (h *Harness) compile(src []byte, cfg *config.Config, passes []string, scenario *Scenario) (compiler.Result, string, error) {
	mod, err := frontend.CompileSource(scenario.Program, src,
		frontend.WithIntType(cfg.IntType()),
		frontend.WithFloatType(cfg.FloatType()),
	)
	if err != nil {
		return compiler.Result{}, "", err
	}

	p, err := compiler.New(cfg, passes, compiler.WithLogger(h.logger))
	if err != nil {
		return compiler.Result{}, "", err
	}
	res, err := p.Run(mod)
	if err != nil {
		return compiler.Result{}, "", err
	}

	if scenario.Emit != EmitLLVM {
		return res, ir.String(res.Module), nil
	}
	m, err := llvmgen.Emit(res.Module,
		llvmgen.WithFormatSymbol(cfg.LowerBuiltins().Resolve("print")),
		llvmgen.WithLogger(h.logger),
	)
	if err != nil {
		return compiler.Result{}, "", err
	}
	return res, m.String(), nil
}

// countOps tallies node kinds in the tree rooted at mod.
func countOps(mod *ir.Node) map[string]int {
	counts := map[string]int{}
	ir.Walk(mod, func(n *ir.Node) bool {
		counts[string(n.Kind)]++
		return true
	})
	return counts
}

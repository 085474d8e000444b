package compiler

import (
	"maps"
	"slices"

	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/lower"
	"github.com/roach88/tinypy/internal/rewrite"
)

// Pass names.
const (
	PassNormalizeBuiltins = "normalize-builtins"
	PassLower             = "lower"
	PassParallelize       = "parallelize"
)

// DefaultPasses is the pipeline used when none is given.
var DefaultPasses = []string{PassNormalizeBuiltins, PassLower}

// Pass is one named transformation.
type Pass struct {
	Name   string
	Input  Level
	Output Level
	run    func(p *Pipeline, mod *ir.Node) (*ir.Node, PassStats, error)
}

var registry = map[string]*Pass{
	PassNormalizeBuiltins: {
		Name:   PassNormalizeBuiltins,
		Input:  LevelHigh,
		Output: LevelHigh,
		run:    normalizeBuiltins,
	},
	PassLower: {
		Name:   PassLower,
		Input:  LevelHigh,
		Output: LevelLowered,
		run:    lowerModule,
	},
	PassParallelize: {
		Name:   PassParallelize,
		Input:  LevelLowered,
		Output: LevelLowered,
		run:    parallelize,
	},
}

// PassNames lists the registered passes in pipeline order.
func PassNames() []string {
	return []string{PassNormalizeBuiltins, PassLower, PassParallelize}
}

func normalizeBuiltins(p *Pipeline, mod *ir.Node) (*ir.Node, PassStats, error) {
	var rules []rewrite.Rule
	for _, name := range slices.Sorted(maps.Keys(p.cfg.Builtins)) {
		rules = append(rules, rewrite.NewBuiltinRule(name, p.cfg.Builtins[name]))
	}

	res, err := rewrite.NewEngine(rules, rewrite.WithLogger(p.logger)).Apply(mod)
	if err != nil {
		return nil, PassStats{}, err
	}
	return res.Root, PassStats{Changes: res.Changes, Iterations: res.Passes}, nil
}

func lowerModule(p *Pipeline, mod *ir.Node) (*ir.Node, PassStats, error) {
	l := lower.New(
		lower.WithBuiltins(p.cfg.LowerBuiltins()),
		lower.WithLogger(p.logger),
	)
	out, err := l.Module(mod)
	if err != nil {
		return nil, PassStats{}, err
	}
	return out, PassStats{Changes: len(mod.Children(0)), Iterations: 1}, nil
}

func parallelize(p *Pipeline, mod *ir.Node) (*ir.Node, PassStats, error) {
	rule := rewrite.NewReductionRule(p.cfg.Policy(), p.cfg.Reduction.Operations, p.logger)
	engine := rewrite.NewEngine([]rewrite.Rule{rule},
		rewrite.WithFixedPoint(rewrite.DefaultMaxIterations),
		rewrite.WithLogger(p.logger),
	)

	res, err := engine.Apply(mod)
	if err != nil {
		return nil, PassStats{}, err
	}
	return res.Root, PassStats{Changes: res.Changes, Iterations: res.Passes}, nil
}

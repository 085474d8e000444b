// Package compiler runs named passes over tiny IR and performs the static
// checks that come before them.
//
// A pipeline is an ordered list of passes. Each pass declares the IR level
// it consumes and the level it produces; running a pass on the wrong level
// fails before the pass starts. Every pass output is verified structurally.
package compiler

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/tinypy/internal/config"
	"github.com/roach88/tinypy/internal/ir"
)

// Level identifies which dialect family a module is in.
type Level int

const (
	// LevelHigh is the tiny.* tree produced by the front-end.
	LevelHigh Level = iota + 1

	// LevelLowered is SSA form rooted at builtin.module.
	LevelLowered
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high-level"
	case LevelLowered:
		return "lowered"
	default:
		return "unknown"
	}
}

// LevelOf reports the level of a module root.
func LevelOf(mod *ir.Node) (Level, bool) {
	if mod == nil {
		return 0, false
	}
	switch mod.Kind {
	case ir.KindModule:
		return LevelHigh, true
	case ir.KindBuiltinModule:
		return LevelLowered, true
	}
	return 0, false
}

// PassStats describes one pass run.
type PassStats struct {
	Name        string `json:"name"`
	Changes     int    `json:"changes"`
	Iterations  int    `json:"iterations"`
	NodesBefore int    `json:"nodes_before"`
	NodesAfter  int    `json:"nodes_after"`
}

// Result is the output of a pipeline run.
type Result struct {
	Module *ir.Node
	Level  Level
	Stats  []PassStats
}

// Pipeline runs an ordered list of passes.
type Pipeline struct {
	cfg    *config.Config
	passes []*Pass
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passes log to.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// ParsePasses splits a comma-separated pass list. An empty list selects
// DefaultPasses.
func ParsePasses(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slices.Clone(DefaultPasses), nil
	}

	var names []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if _, ok := registry[name]; !ok {
			return nil, &PipelineError{
				Code:    ErrCodeUnknownPass,
				Pass:    name,
				Message: fmt.Sprintf("known passes are %s", strings.Join(PassNames(), ", ")),
			}
		}
		names = append(names, name)
	}
	return names, nil
}

// New builds a pipeline from pass names. A nil cfg means config.Default().
func New(cfg *config.Config, names []string, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	for _, name := range names {
		pass, ok := registry[name]
		if !ok {
			return nil, &PipelineError{Code: ErrCodeUnknownPass, Pass: name}
		}
		p.passes = append(p.passes, pass)
	}
	return p, nil
}

// Passes returns the pass names in run order.
func (p *Pipeline) Passes() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name
	}
	return names
}

// Run applies every pass in order. On error the partially transformed
// module is discarded.
func (p *Pipeline) Run(mod *ir.Node) (Result, error) {
	level, ok := LevelOf(mod)
	if !ok {
		return Result{}, &PipelineError{
			Code:    ErrCodeWrongLevel,
			Message: "input is not a module",
		}
	}

	res := Result{Module: mod, Level: level}
	for _, pass := range p.passes {
		if res.Level != pass.Input {
			return Result{}, &PipelineError{
				Code:    ErrCodeWrongLevel,
				Pass:    pass.Name,
				Message: fmt.Sprintf("expects %s IR, got %s", pass.Input, res.Level),
			}
		}

		before := ir.Count(res.Module)
		p.logger.Debug("pass starting", "pass", pass.Name, "nodes", before)

		out, stats, err := pass.run(p, res.Module)
		if err != nil {
			p.logger.Error("pass failed", "pass", pass.Name, "error", err)
			return Result{}, &PipelineError{Code: ErrCodePassFailed, Pass: pass.Name, Err: err}
		}
		if err := ir.VerifyTree(out); err != nil {
			p.logger.Error("pass failed", "pass", pass.Name, "error", err)
			return Result{}, &PipelineError{Code: ErrCodeVerification, Pass: pass.Name, Err: err}
		}

		stats.Name = pass.Name
		stats.NodesBefore = before
		stats.NodesAfter = ir.Count(out)
		res.Stats = append(res.Stats, stats)
		res.Module = out
		res.Level = pass.Output

		p.logger.Debug("pass finished",
			"pass", pass.Name,
			"changes", stats.Changes,
			"nodes", stats.NodesAfter,
		)
	}
	return res, nil
}

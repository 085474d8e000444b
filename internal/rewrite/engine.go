// Package rewrite provides a generic pattern-rewrite engine over the ir
// node tree and the rules tinypy plugs into it.
//
// The engine walks the tree top-down. At each node, rules run in list
// order; a rule may patch attributes in place, replace the node or leave it
// alone. Once a node is replaced the remaining rules skip it and the walk
// does not descend into the replacement. By default the engine makes a
// single pass; WithFixedPoint repeats passes until nothing changes.
package rewrite

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tinypy/internal/ir"
)

// Rule is one rewrite pattern.
type Rule interface {
	// Name identifies the rule in logs and errors.
	Name() string

	// Match reports whether the rule applies to n.
	Match(n *ir.Node) bool

	// Rewrite transforms n through rw. Leaving n untouched is allowed.
	Rewrite(rw *Rewriter, n *ir.Node) error
}

// Rewriter is the mutation interface handed to rules. It records what
// changed so the engine can decide whether to descend or iterate.
type Rewriter struct {
	root     *ir.Node
	replaced map[*ir.Node]*ir.Node
	changes  int
}

// Replace puts repl where old is. Replacing the root makes repl the new
// root returned by Apply.
func (rw *Rewriter) Replace(old, repl *ir.Node) error {
	if old == rw.root {
		rw.root = repl
	} else if !old.Replace(repl) {
		return fmt.Errorf("replace %s: node is detached", old.Kind)
	}
	rw.replaced[old] = repl
	rw.changes++
	return nil
}

// SetAttr patches an attribute in place. Setting an equal value is not a
// change.
func (rw *Rewriter) SetAttr(n *ir.Node, name string, a ir.Attr) error {
	if old, ok := n.Attr(name); ok && ir.AttrEqual(old, a) {
		return nil
	}
	if err := n.SetAttr(name, a); err != nil {
		return err
	}
	rw.changes++
	return nil
}

// Changes returns the number of edits recorded so far.
func (rw *Rewriter) Changes() int { return rw.changes }

// Engine applies an ordered list of rules to node trees.
type Engine struct {
	rules      []Rule
	fixedPoint bool
	maxIter    int
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFixedPoint repeats passes until a pass changes nothing, failing after
// maxIter passes.
func WithFixedPoint(maxIter int) Option {
	return func(e *Engine) {
		e.fixedPoint = true
		if maxIter > 0 {
			e.maxIter = maxIter
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// DefaultMaxIterations caps fixed-point mode when no cap is given.
const DefaultMaxIterations = 16

// NewEngine creates an engine applying rules in order.
func NewEngine(rules []Rule, opts ...Option) *Engine {
	e := &Engine{
		rules:   rules,
		maxIter: DefaultMaxIterations,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes an Apply call.
type Result struct {
	// Root is the rewritten tree. It differs from the input only when a
	// rule replaced the root itself.
	Root *ir.Node

	// Changes counts recorded edits across all passes.
	Changes int

	// Passes counts walks over the tree.
	Passes int
}

// Apply rewrites the tree rooted at root.
func (e *Engine) Apply(root *ir.Node) (Result, error) {
	res := Result{Root: root}
	for {
		rw := &Rewriter{root: res.Root, replaced: map[*ir.Node]*ir.Node{}}
		if err := e.visit(rw, res.Root); err != nil {
			return res, err
		}
		res.Root = rw.root
		res.Changes += rw.changes
		res.Passes++

		e.logger.Debug("rewrite pass finished",
			"pass", res.Passes,
			"changes", rw.changes,
		)

		if !e.fixedPoint || rw.changes == 0 {
			return res, nil
		}
		if res.Passes >= e.maxIter {
			return res, &RewriteError{
				Code:    ErrCodeNoConvergence,
				Message: fmt.Sprintf("still changing after %d passes", res.Passes),
			}
		}
	}
}

func (e *Engine) visit(rw *Rewriter, n *ir.Node) error {
	for _, r := range e.rules {
		if !r.Match(n) {
			continue
		}
		if err := r.Rewrite(rw, n); err != nil {
			return err
		}
		if _, ok := rw.replaced[n]; ok {
			return nil
		}
	}

	for _, region := range n.Regions {
		for _, b := range region.Blocks {
			for _, child := range slices.Clone(b.Nodes) {
				// Skip nodes an earlier rewrite removed from this block.
				if child.Parent() != b {
					continue
				}
				if err := e.visit(rw, child); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

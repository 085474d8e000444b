package rewrite

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tinypy/internal/ir"
)

// Policy decides what the reduction rule does with a candidate instruction
// that has no block parameter operand at all.
type Policy string

const (
	// PolicySkip leaves such instructions alone.
	PolicySkip Policy = "skip"

	// PolicyStrict fails with AMBIGUOUS_REDUCTION.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name. Empty means PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("invalid reduction policy %q: must be skip or strict", s)
	}
}

// ReductionRule turns a sequential scf.loop that accumulates into carried
// variables into an scf.parallel with one scf.reduce clause per
// accumulator.
//
// An arithmetic instruction in the loop body is extracted when:
//   - one operand is a carried block parameter (not the induction slot)
//     used by nothing else
//   - the other operand is defined outside the loop
//   - its result is used only by the yield, in that parameter's slot
type ReductionRule struct {
	policy Policy
	ops    map[string]bool
	logger *slog.Logger
}

// NewReductionRule returns a rule extracting the given operators ("add",
// "sub", "mult", "div").
func NewReductionRule(policy Policy, ops []string, logger *slog.Logger) *ReductionRule {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]bool, len(ops))
	for _, op := range ops {
		set[op] = true
	}
	return &ReductionRule{policy: policy, ops: set, logger: logger}
}

// Name implements Rule.
func (r *ReductionRule) Name() string { return "extract-reductions" }

// Match implements Rule.
func (r *ReductionRule) Match(n *ir.Node) bool {
	return n.Kind == ir.KindSeqLoop
}

type reduction struct {
	op         *ir.Node
	param      *ir.Value
	ext        *ir.Value
	slot       int  // index of param in the body block
	paramFirst bool // accumulator was the left operand
}

// Rewrite implements Rule.
func (r *ReductionRule) Rewrite(rw *Rewriter, loop *ir.Node) error {
	reds, err := r.candidates(loop)
	if err != nil || len(reds) == 0 {
		return err
	}

	body := loop.Body(1)
	yield := body.Terminator()
	numParams := len(body.Params)

	// Split inits and results into kept and reduced, by slot.
	reduced := make(map[int]bool, len(reds))
	for _, red := range reds {
		reduced[red.slot] = true
	}
	keptInits := []*ir.Value{}
	keptResults := []*ir.Value{loop.Results[0]}
	for slot := 1; slot < numParams; slot++ {
		if !reduced[slot] {
			keptInits = append(keptInits, loop.Operands[2+slot])
			keptResults = append(keptResults, loop.Results[slot])
		}
	}
	var redInits, redResults []*ir.Value
	clauses := make([]*ir.Node, 0, len(reds))
	for _, red := range reds {
		redInits = append(redInits, loop.Operands[2+red.slot])
		redResults = append(redResults, loop.Results[red.slot])

		clause, err := r.clause(red)
		if err != nil {
			return err
		}
		clauses = append(clauses, clause)
	}

	// Prune the body: highest slot first so indices stay valid.
	byslot := slices.Clone(reds)
	slices.SortFunc(byslot, func(a, b reduction) int { return b.slot - a.slot })
	for _, red := range byslot {
		body.Remove(red.op)
		body.RemoveParam(red.param)
		yield.Operands = slices.Delete(yield.Operands, red.slot, red.slot+1)
	}
	for i, clause := range clauses {
		body.Insert(i, clause)
	}

	operands := append([]*ir.Value{loop.Operands[0], loop.Operands[1], loop.Operands[2]}, keptInits...)
	operands = append(operands, redInits...)
	par, err := ir.New(ir.KindParallelLoop, ir.Spec{
		Operands:     operands,
		Regions:      []*ir.Region{ir.NewRegion(body)},
		ReuseResults: append(keptResults, redResults...),
	})
	if err != nil {
		return verificationFailed(r.Name(), err)
	}
	if err := rw.Replace(loop, par); err != nil {
		return verificationFailed(r.Name(), err)
	}

	r.logger.Debug("reductions extracted",
		"count", len(reds),
		"remaining_carried", len(keptInits),
	)
	return nil
}

// candidates scans the direct children of the loop body.
func (r *ReductionRule) candidates(loop *ir.Node) ([]reduction, error) {
	body := loop.Body(1)
	yield := body.Terminator()
	if yield == nil || yield.Kind != ir.KindYield {
		return nil, nil
	}

	var out []reduction
	for _, n := range body.Nodes {
		if !n.Kind.IsArith() || !r.ops[ir.ArithOp(n.Kind)] {
			continue
		}
		a, b := n.Operands[0], n.Operands[1]
		if !a.IsBlockParam() && !b.IsBlockParam() {
			if r.policy == PolicyStrict {
				return nil, &RewriteError{
					Code:    ErrCodeAmbiguousReduction,
					Rule:    r.Name(),
					Message: fmt.Sprintf("%s has no block parameter operand", n.Kind),
				}
			}
			continue
		}

		var param, ext *ir.Value
		switch {
		case carriedSlot(body, a) > 0 && !definedIn(loop, b):
			param, ext = a, b
		case carriedSlot(body, b) > 0 && !definedIn(loop, a):
			param, ext = b, a
		default:
			continue
		}
		slot := carriedSlot(body, param)

		if uses := ir.Uses(loop, param); len(uses) != 1 || uses[0] != n {
			continue
		}
		if uses := ir.Uses(loop, n.Result()); len(uses) != 1 || uses[0] != yield {
			continue
		}
		if slices.Index(yield.Operands, n.Result()) != slot || countOf(yield.Operands, n.Result()) != 1 {
			continue
		}

		out = append(out, reduction{op: n, param: param, ext: ext, slot: slot, paramFirst: param == a})
	}
	return out, nil
}

// clause builds scf.reduce(ext) { ^bb(acc, x): op(acc, x); reduce.return }.
// The operands of op keep their original order.
func (r *ReductionRule) clause(red reduction) (*ir.Node, error) {
	blk := ir.NewBlock(red.param.Type, red.ext.Type)
	operands := []*ir.Value{blk.Params[0], blk.Params[1]}
	if !red.paramFirst {
		operands[0], operands[1] = operands[1], operands[0]
	}
	op, err := ir.New(red.op.Kind, ir.Spec{
		Operands: operands,
		Results:  []ir.Type{red.op.Result().Type},
	})
	if err != nil {
		return nil, verificationFailed(r.Name(), err)
	}
	ret, err := ir.New(ir.KindReduceReturn, ir.Spec{Operands: []*ir.Value{op.Result()}})
	if err != nil {
		return nil, verificationFailed(r.Name(), err)
	}
	blk.Append(op, ret)

	clause, err := ir.New(ir.KindReduce, ir.Spec{
		Operands: []*ir.Value{red.ext},
		Regions:  []*ir.Region{ir.NewRegion(blk)},
	})
	if err != nil {
		return nil, verificationFailed(r.Name(), err)
	}
	return clause, nil
}

// carriedSlot returns v's parameter index in body, or -1.
func carriedSlot(body *ir.Block, v *ir.Value) int {
	if v.Owner() != body {
		return -1
	}
	return body.ParamIndex(v)
}

// definedIn reports whether v is produced anywhere inside loop.
func definedIn(loop *ir.Node, v *ir.Value) bool {
	var b *ir.Block
	if v.IsBlockParam() {
		b = v.Owner()
	} else if d := v.Def(); d != nil {
		if d == loop {
			return true
		}
		b = d.Parent()
	}
	for b != nil {
		n := b.ParentNode()
		if n == nil {
			return false
		}
		if n == loop {
			return true
		}
		b = n.Parent()
	}
	return false
}

func countOf(vals []*ir.Value, v *ir.Value) int {
	count := 0
	for _, x := range vals {
		if x == v {
			count++
		}
	}
	return count
}

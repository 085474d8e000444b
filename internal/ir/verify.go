package ir

import (
	"errors"
	"fmt"
)

// VerifyError reports a structural violation found by Verify.
type VerifyError struct {
	Kind    Kind
	Field   string // "attrs.value", "regions", "operands", ...
	Message string
}

func (e *VerifyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("verify %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("verify %s: %s: %s", e.Kind, e.Field, e.Message)
}

// IsVerifyError reports whether err wraps a VerifyError.
func IsVerifyError(err error) bool {
	var ve *VerifyError
	return errors.As(err, &ve)
}

func verifyErr(n *Node, field, format string, args ...any) *VerifyError {
	return &VerifyError{Kind: n.Kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Verify checks n against the schema for its kind. It looks at n's own
// attributes, arity and region shape plus the positions of terminators in
// its blocks, but does not recurse into nested nodes.
func Verify(n *Node) error {
	if n == nil {
		return &VerifyError{Message: "nil node"}
	}
	s, ok := schemas[n.Kind]
	if !ok {
		return verifyErr(n, "kind", "unknown kind %q", string(n.Kind))
	}

	for _, spec := range s.attrs {
		a, ok := n.Attrs[spec.name]
		if !ok || a == nil {
			return verifyErr(n, "attrs."+spec.name, "missing required attribute")
		}
		if !spec.tag.accepts(a) {
			return verifyErr(n, "attrs."+spec.name, "expected %s attribute, got %T", spec.tag, a)
		}
	}

	if len(n.Regions) != s.regions {
		return verifyErr(n, "regions", "expected %d, got %d", s.regions, len(n.Regions))
	}
	for i, r := range n.Regions {
		if r == nil || len(r.Blocks) != 1 {
			return verifyErr(n, fmt.Sprintf("regions[%d]", i), "expected exactly one block")
		}
		if err := verifyTerminators(n, i, r.Blocks[0]); err != nil {
			return err
		}
	}

	if s.operands == variadic {
		if len(n.Operands) < s.minOperands {
			return verifyErr(n, "operands", "expected at least %d, got %d", s.minOperands, len(n.Operands))
		}
	} else if len(n.Operands) != s.operands {
		return verifyErr(n, "operands", "expected %d, got %d", s.operands, len(n.Operands))
	}
	for i, op := range n.Operands {
		if op == nil {
			return verifyErr(n, fmt.Sprintf("operands[%d]", i), "nil value")
		}
	}
	if s.results != variadic && len(n.Results) != s.results {
		return verifyErr(n, "results", "expected %d, got %d", s.results, len(n.Results))
	}

	if s.check != nil {
		return s.check(n)
	}
	return nil
}

func verifyTerminators(n *Node, region int, b *Block) error {
	for i, child := range b.Nodes {
		if child == nil {
			return verifyErr(n, fmt.Sprintf("regions[%d].nodes[%d]", region, i), "nil node")
		}
		if child.Kind.IsTerminator() && i != len(b.Nodes)-1 {
			return verifyErr(n, fmt.Sprintf("regions[%d].nodes[%d]", region, i), "terminator %s is not last in its block", child.Kind)
		}
	}
	return nil
}

// VerifyTree runs Verify on root and every node beneath it.
func VerifyTree(root *Node) error {
	var err error
	Walk(root, func(n *Node) bool {
		if err != nil {
			return false
		}
		err = Verify(n)
		return err == nil
	})
	return err
}

func checkChildrenKind(kinds ...Kind) func(*Node) error {
	return func(n *Node) error {
		for i, child := range n.Children(0) {
			ok := false
			for _, k := range kinds {
				if child.Kind == k {
					ok = true
					break
				}
			}
			if !ok {
				return verifyErr(n, fmt.Sprintf("regions[0].nodes[%d]", i), "unexpected %s", child.Kind)
			}
		}
		return nil
	}
}

func checkSingleExpr(region int) func(*Node) error {
	return func(n *Node) error {
		if got := len(n.Children(region)); got != 1 {
			return verifyErr(n, fmt.Sprintf("regions[%d]", region), "expected one expression, got %d", got)
		}
		return nil
	}
}

func checkLoopBounds(n *Node) error {
	for _, i := range []int{0, 1} {
		if err := checkSingleExpr(i)(n); err != nil {
			return err
		}
	}
	return nil
}

func checkBinaryOperands(n *Node) error {
	if err := checkSingleExpr(0)(n); err != nil {
		return err
	}
	return checkSingleExpr(1)(n)
}

func checkFuncBody(n *Node) error {
	b := n.Body(0)
	if t := b.Terminator(); t == nil || t.Kind != KindFuncReturn {
		return verifyErr(n, "regions[0]", "body must end with %s", KindFuncReturn)
	}
	return nil
}

func checkAtMostOneResult(n *Node) error {
	if len(n.Results) > 1 {
		return verifyErr(n, "results", "expected at most 1, got %d", len(n.Results))
	}
	return nil
}

func checkConstantType(n *Node) error {
	want := AttrType(n.Attrs["value"])
	if got := n.Results[0].Type; got != want {
		return verifyErr(n, "results[0]", "type %s does not match value type %s", got, want)
	}
	return nil
}

func checkArith(kind TypeKind) func(*Node) error {
	return func(n *Node) error {
		res := n.Results[0].Type
		if res.Kind != kind {
			return verifyErr(n, "results[0]", "unexpected type %s", res)
		}
		for i, op := range n.Operands {
			if op.Type != res {
				return verifyErr(n, fmt.Sprintf("operands[%d]", i), "type %s does not match result type %s", op.Type, res)
			}
		}
		return nil
	}
}

func checkCompare(n *Node) error {
	if n.StringAttr("predicate") == "" {
		return verifyErr(n, "attrs.predicate", "empty predicate")
	}
	if n.Results[0].Type != I1 {
		return verifyErr(n, "results[0]", "expected %s, got %s", I1, n.Results[0].Type)
	}
	return nil
}

func checkExtF(n *Node) error {
	in, out := n.Operands[0].Type, n.Results[0].Type
	if !in.IsFloat() || !out.IsFloat() || out.Width <= in.Width {
		return verifyErr(n, "results[0]", "cannot extend %s to %s", in, out)
	}
	return nil
}

// checkSeqLoop checks the carried-state contract of a sequential loop:
// operands are [lower, upper, step, inits...], both regions take
// [iv, carried...], the condition forwards them and the yield carries
// exactly one value per result.
func checkSeqLoop(n *Node) error {
	carried := len(n.Operands) - 2
	if len(n.Results) != carried {
		return verifyErr(n, "results", "expected %d, got %d", carried, len(n.Results))
	}
	for i, b := range []*Block{n.Body(0), n.Body(1)} {
		if len(b.Params) != carried {
			return verifyErr(n, fmt.Sprintf("regions[%d].params", i), "expected %d, got %d", carried, len(b.Params))
		}
	}
	cond := n.Body(0).Terminator()
	if cond == nil || cond.Kind != KindCondition {
		return verifyErr(n, "regions[0]", "must end with %s", KindCondition)
	}
	if len(cond.Operands) != carried+1 {
		return verifyErr(n, "regions[0]", "condition forwards %d values, want %d", len(cond.Operands)-1, carried)
	}
	for i, r := range n.Results {
		for j, b := range []*Block{n.Body(0), n.Body(1)} {
			if b.Params[i].Type != r.Type {
				return verifyErr(n, fmt.Sprintf("regions[%d].params[%d]", j, i), "type %s does not match result %s", b.Params[i].Type, r.Type)
			}
		}
		if cond.Operands[i+1].Type != r.Type {
			return verifyErr(n, "regions[0]", "condition forwards %s at %d, want %s", cond.Operands[i+1].Type, i, r.Type)
		}
	}
	return checkYield(n, n.Body(1), n.Results[:carried])
}

// checkParallelLoop checks a parallel loop: operands are
// [lower, upper, step, inits..., reduction inits...], the body takes
// [iv, inits...] and holds one reduce clause per reduction init.
func checkParallelLoop(n *Node) error {
	body := n.Body(0)
	params := len(body.Params)
	if params < 1 {
		return verifyErr(n, "regions[0].params", "missing induction parameter")
	}
	reductions := len(n.Operands) - 2 - params
	if reductions < 0 {
		return verifyErr(n, "operands", "expected at least %d, got %d", params+2, len(n.Operands))
	}
	if len(n.Results) != params+reductions {
		return verifyErr(n, "results", "expected %d, got %d", params+reductions, len(n.Results))
	}
	count := 0
	for _, child := range body.Nodes {
		if child.Kind == KindReduce {
			count++
		}
	}
	if count != reductions {
		return verifyErr(n, "regions[0]", "expected %d reduce clauses, got %d", reductions, count)
	}
	for i, p := range body.Params {
		if p.Type != n.Results[i].Type {
			return verifyErr(n, fmt.Sprintf("regions[0].params[%d]", i), "type %s does not match result %s", p.Type, n.Results[i].Type)
		}
	}
	return checkYield(n, body, n.Results[:params])
}

// checkYield checks that the body's yield carries one value per want,
// each of the matching type.
func checkYield(n *Node, b *Block, want []*Value) error {
	y := b.Terminator()
	if y == nil || y.Kind != KindYield {
		return verifyErr(n, "body", "must end with %s", KindYield)
	}
	if len(y.Operands) != len(want) {
		return verifyErr(n, "body", "yield carries %d values, want %d", len(y.Operands), len(want))
	}
	for i, v := range y.Operands {
		if v.Type != want[i].Type {
			return verifyErr(n, "body", "yield carries %s at %d, want %s", v.Type, i, want[i].Type)
		}
	}
	return nil
}

func checkReduce(n *Node) error {
	b := n.Body(0)
	if len(b.Params) != 2 {
		return verifyErr(n, "regions[0].params", "expected accumulator and operand, got %d params", len(b.Params))
	}
	t := b.Terminator()
	if t == nil || t.Kind != KindReduceReturn {
		return verifyErr(n, "regions[0]", "must end with %s", KindReduceReturn)
	}
	return nil
}

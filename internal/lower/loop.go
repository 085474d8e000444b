package lower

import (
	"slices"

	"github.com/roach88/tinypy/internal/ir"
)

// loop lowers "for iv in range(from, to)" into an scf.loop.
//
// The loop takes [lower, upper, step, inits...] as operands. Both regions
// receive [iv, carried...] as block parameters: the first tests iv < upper
// and forwards them, the second runs the body and yields the incremented iv
// and the updated carried values. The results rebind the same names in the
// enclosing scope.
func (l *Lowerer) loop(ctx *Context, f *frame, n *ir.Node) error {
	iv := n.StringAttr("variable")
	carried := slices.DeleteFunc(CarriedVariables(n.Body(2)), func(name string) bool {
		return name == iv
	})

	lower, err := l.expr(ctx, f, n.Children(0)[0])
	if err != nil {
		return err
	}
	if !lower.Type.IsInteger() {
		return unsupported(n.Kind, "loop %q lower bound must be an integer, got %s", iv, lower.Type)
	}
	ctx.Symbols.Bind(f.scope, iv, lower)

	inits := make([]*ir.Value, len(carried))
	types := []ir.Type{lower.Type}
	for i, name := range carried {
		v, err := ctx.Symbols.Lookup(f.scope, name)
		if err != nil {
			return definiteAssignment(iv, name)
		}
		inits[i] = v
		types = append(types, v.Type)
	}

	upper, err := l.expr(ctx, f, n.Children(1)[0])
	if err != nil {
		return err
	}
	if upper.Type != lower.Type {
		return unsupported(n.Kind, "loop %q bounds have different types %s and %s", iv, lower.Type, upper.Type)
	}
	step, err := emit(f.block, ir.KindArithConstant, ir.Spec{
		Attrs:   map[string]ir.Attr{"value": ir.IntegerAttr{Value: 1, Type: lower.Type}},
		Results: []ir.Type{lower.Type},
	})
	if err != nil {
		return err
	}

	cond, err := loopCondition(types, upper)
	if err != nil {
		return err
	}

	body := ir.NewBlock(types...)
	inner := &frame{
		block: body,
		scope: ctx.Symbols.Child(f.scope),
		depth: f.depth + 1,
	}
	for i, name := range append([]string{iv}, carried...) {
		if err := ctx.Symbols.Define(inner.scope, name, body.Params[i]); err != nil {
			return err
		}
	}
	for _, stmt := range n.Children(2) {
		if err := l.stmt(ctx, inner, stmt); err != nil {
			return err
		}
	}

	ivCur, err := ctx.Symbols.Lookup(inner.scope, iv)
	if err != nil {
		return err
	}
	next, err := emit(body, ir.KindAddI, ir.Spec{
		Operands: []*ir.Value{ivCur, step.Result()},
		Results:  []ir.Type{lower.Type},
	})
	if err != nil {
		return unsupported(n.Kind, "loop %q induction variable was reassigned to %s", iv, ivCur.Type)
	}
	yielded := []*ir.Value{next.Result()}
	for i, name := range carried {
		v, err := ctx.Symbols.Lookup(inner.scope, name)
		if err != nil {
			return err
		}
		if v.Type != types[i+1] {
			return unsupported(n.Kind, "loop %q carries %q as %s but the body assigns %s", iv, name, types[i+1], v.Type)
		}
		yielded = append(yielded, v)
	}
	if _, err := emit(body, ir.KindYield, ir.Spec{Operands: yielded}); err != nil {
		return err
	}

	operands := append([]*ir.Value{lower, upper, step.Result()}, inits...)
	loop, err := emit(f.block, ir.KindSeqLoop, ir.Spec{
		Operands: operands,
		Results:  types,
		Regions:  []*ir.Region{ir.NewRegion(cond), ir.NewRegion(body)},
	})
	if err != nil {
		return err
	}

	ctx.Symbols.Bind(f.scope, iv, loop.Results[0])
	for i, name := range carried {
		ctx.Symbols.Bind(f.scope, name, loop.Results[i+1])
	}

	l.logger.Debug("loop lowered",
		"variable", iv,
		"carried", carried,
	)
	return nil
}

// loopCondition builds the header block: compare iv against upper and
// forward every parameter unchanged.
func loopCondition(types []ir.Type, upper *ir.Value) (*ir.Block, error) {
	b := ir.NewBlock(types...)
	cmp, err := emit(b, ir.KindCmpI, ir.Spec{
		Attrs:    map[string]ir.Attr{"predicate": ir.StringAttr("slt")},
		Operands: []*ir.Value{b.Params[0], upper},
		Results:  []ir.Type{ir.I1},
	})
	if err != nil {
		return nil, err
	}
	forwarded := append([]*ir.Value{cmp.Result()}, b.Params...)
	if _, err := emit(b, ir.KindCondition, ir.Spec{Operands: forwarded}); err != nil {
		return nil, err
	}
	return b, nil
}

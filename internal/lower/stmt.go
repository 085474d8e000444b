package lower

import (
	"fmt"

	"github.com/roach88/tinypy/internal/ir"
)

func (l *Lowerer) stmt(ctx *Context, f *frame, n *ir.Node) error {
	if f.returned {
		return unsupported(n.Kind, "%s after return", n.Kind)
	}

	switch n.Kind {
	case ir.KindAssign:
		return l.assign(ctx, f, n)
	case ir.KindReturn:
		return l.ret(f)
	case ir.KindCall:
		_, err := l.call(ctx, f, n, false)
		return err
	case ir.KindLoop:
		return l.loop(ctx, f, n)
	default:
		return unsupported(n.Kind, "cannot translate %s as a statement", n.Kind)
	}
}

func (l *Lowerer) assign(ctx *Context, f *frame, n *ir.Node) error {
	name := n.StringAttr("var_name")
	v, err := l.expr(ctx, f, n.Children(0)[0])
	if err != nil {
		return err
	}
	ctx.Symbols.Bind(f.scope, name, v)
	return nil
}

func (l *Lowerer) ret(f *frame) error {
	if f.depth > 0 {
		return unsupported(ir.KindReturn, "return inside a loop body")
	}
	if _, err := emit(f.block, ir.KindFuncReturn, ir.Spec{}); err != nil {
		return err
	}
	f.returned = true
	return nil
}

func (l *Lowerer) expr(ctx *Context, f *frame, n *ir.Node) (*ir.Value, error) {
	switch n.Kind {
	case ir.KindConstant:
		return l.constant(ctx, f, n)
	case ir.KindBinaryOp:
		return l.binaryOp(ctx, f, n)
	case ir.KindVar:
		return ctx.Symbols.Lookup(f.scope, n.StringAttr("variable"))
	case ir.KindCall:
		return l.call(ctx, f, n, true)
	default:
		return nil, unsupported(n.Kind, "cannot translate %s as an expression", n.Kind)
	}
}

func (l *Lowerer) constant(ctx *Context, f *frame, n *ir.Node) (*ir.Value, error) {
	switch val := n.Attrs["value"].(type) {
	case ir.StringAttr:
		return ctx.poolString(f.block, string(val))
	case ir.IntegerAttr, ir.FloatAttr:
		c, err := emit(f.block, ir.KindArithConstant, ir.Spec{
			Attrs:   map[string]ir.Attr{"value": val},
			Results: []ir.Type{ir.AttrType(val)},
		})
		if err != nil {
			return nil, err
		}
		return c.Result(), nil
	default:
		return nil, unsupported(n.Kind, "cannot translate literal of type %T", val)
	}
}

// arithOps selects the instruction for an operator by operand kind:
// index 0 for integers, 1 for floats.
var arithOps = map[string][2]ir.Kind{
	"add":  {ir.KindAddI, ir.KindAddF},
	"sub":  {ir.KindSubI, ir.KindSubF},
	"mult": {ir.KindMulI, ir.KindMulF},
	"div":  {ir.KindDivSI, ir.KindDivF},
}

func (l *Lowerer) binaryOp(ctx *Context, f *frame, n *ir.Node) (*ir.Value, error) {
	op := n.StringAttr("op")
	lhs, err := l.expr(ctx, f, n.Children(0)[0])
	if err != nil {
		return nil, err
	}
	rhs, err := l.expr(ctx, f, n.Children(1)[0])
	if err != nil {
		return nil, err
	}

	kinds, ok := arithOps[op]
	if !ok {
		return nil, unsupported(n.Kind, "unknown operator %q", op)
	}

	// Only the left operand's type picks the instruction.
	var kind ir.Kind
	switch {
	case lhs.Type.IsInteger():
		kind = kinds[0]
	case lhs.Type.IsFloat():
		kind = kinds[1]
	default:
		return nil, unsupported(n.Kind, "operator %q does not support %s operands", op, lhs.Type)
	}

	res, err := emit(f.block, kind, ir.Spec{
		Operands: []*ir.Value{lhs, rhs},
		Results:  []ir.Type{lhs.Type},
	})
	if err != nil {
		return nil, fmt.Errorf("operator %q: %w", op, err)
	}
	return res.Result(), nil
}

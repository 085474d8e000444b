package lower

import (
	"strings"

	"github.com/roach88/tinypy/internal/ir"
)

// call lowers a call in statement or expression position. Expression calls
// need a declared result type.
func (l *Lowerer) call(ctx *Context, f *frame, n *ir.Node, asExpr bool) (*ir.Value, error) {
	name := n.StringAttr("func")
	builtin := n.BoolAttr("builtin")
	resType := n.TypeAttr("type")

	if asExpr && resType.IsEmpty() {
		te := unsupported(ir.KindCall, "call to %q has no result type and cannot be used as an expression", name)
		te.Name = name
		return nil, te
	}

	args := make([]*ir.Value, 0, len(n.Children(0)))
	for _, arg := range n.Children(0) {
		v, err := l.expr(ctx, f, arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	callee := name
	if builtin {
		callee = ctx.builtins.Resolve(name)
		if callee == ctx.builtins.FormatSymbol {
			var err error
			if args, err = l.formatArgs(ctx, f, args); err != nil {
				return nil, err
			}
		}
		if err := ctx.declareExtern(callee, args); err != nil {
			return nil, err
		}
	}

	var results []ir.Type
	if !resType.IsEmpty() {
		results = []ir.Type{resType}
	}
	c, err := emit(f.block, ir.KindFuncCall, ir.Spec{
		Attrs:    map[string]ir.Attr{"callee": ir.StringAttr(callee)},
		Operands: args,
		Results:  results,
	})
	if err != nil {
		return nil, err
	}
	return c.Result(), nil
}

// formatArgs prepares arguments for the formatted-output symbol. When any
// argument has a conversion marker, a format string built from all markers
// is pooled and prepended. Floats narrower than the runtime width are
// widened.
func (l *Lowerer) formatArgs(ctx *Context, f *frame, args []*ir.Value) ([]*ir.Value, error) {
	b := ctx.builtins

	markers := make([]string, 0, len(args))
	synthesize := false
	for _, a := range args {
		if a.Type.IsString() {
			markers = append(markers, b.StringMarker)
			continue
		}
		if m, ok := b.Markers[a.Type.Kind]; ok {
			markers = append(markers, m)
			synthesize = true
		}
	}

	var out []*ir.Value
	if synthesize {
		format, err := ctx.poolString(f.block, strings.Join(markers, b.Separator))
		if err != nil {
			return nil, err
		}
		out = append(out, format)
	}

	for _, a := range args {
		if a.Type.IsFloat() && a.Type.Width < b.FloatWidth {
			ext, err := emit(f.block, ir.KindExtF, ir.Spec{
				Operands: []*ir.Value{a},
				Results:  []ir.Type{ir.FloatType(b.FloatWidth)},
			})
			if err != nil {
				return nil, err
			}
			a = ext.Result()
		}
		out = append(out, a)
	}
	return out, nil
}

package lower

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/ir"
)

// Small builders over the ir constructors that fail the test on error.

func intc(t *testing.T, v int64) *ir.Node {
	t.Helper()
	n, err := ir.NewConstant(ir.IntegerAttr{Value: v, Type: ir.I32})
	require.NoError(t, err)
	return n
}

func floatc(t *testing.T, v float64) *ir.Node {
	t.Helper()
	n, err := ir.NewConstant(ir.FloatAttr{Value: v, Type: ir.F32})
	require.NoError(t, err)
	return n
}

func strc(t *testing.T, s string) *ir.Node {
	t.Helper()
	n, err := ir.NewConstant(ir.StringAttr(s))
	require.NoError(t, err)
	return n
}

func ref(t *testing.T, name string) *ir.Node {
	t.Helper()
	n, err := ir.NewVar(name)
	require.NoError(t, err)
	return n
}

func binop(t *testing.T, op string, lhs, rhs *ir.Node) *ir.Node {
	t.Helper()
	n, err := ir.NewBinaryOp(op, lhs, rhs)
	require.NoError(t, err)
	return n
}

func assign(t *testing.T, name string, value *ir.Node) *ir.Node {
	t.Helper()
	n, err := ir.NewAssign(name, value)
	require.NoError(t, err)
	return n
}

func loop(t *testing.T, iv string, from, to *ir.Node, body ...*ir.Node) *ir.Node {
	t.Helper()
	n, err := ir.NewLoop(iv, from, to, body...)
	require.NoError(t, err)
	return n
}

func ret(t *testing.T) *ir.Node {
	t.Helper()
	n, err := ir.NewReturn()
	require.NoError(t, err)
	return n
}

func printCall(t *testing.T, args ...*ir.Node) *ir.Node {
	t.Helper()
	n, err := ir.NewCall("print", true, ir.EmptyType(), args...)
	require.NoError(t, err)
	return n
}

func module(t *testing.T, name string, body ...*ir.Node) *ir.Node {
	t.Helper()
	fn, err := ir.NewFunction(name, body...)
	require.NoError(t, err)
	mod, err := ir.NewModule(fn)
	require.NoError(t, err)
	return mod
}

func quietLowerer() *Lowerer {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// lowerBody lowers a single-function module and returns the function body.
func lowerBody(t *testing.T, body ...*ir.Node) (*ir.Node, *ir.Block) {
	t.Helper()
	out, err := quietLowerer().Module(module(t, "f", body...))
	require.NoError(t, err)
	require.NoError(t, ir.VerifyTree(out))
	fn := out.Children(0)[0]
	require.Equal(t, ir.KindFuncDecl, fn.Kind)
	return out, fn.Body(0)
}

func findAll(root *ir.Node, kind ir.Kind) []*ir.Node {
	var out []*ir.Node
	ir.Walk(root, func(n *ir.Node) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

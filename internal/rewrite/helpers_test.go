package rewrite

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/lower"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// must unwraps an ir constructor result; construction errors are test bugs.
func must(n *ir.Node, err error) *ir.Node {
	if err != nil {
		panic(err)
	}
	return n
}

func intc(t *testing.T, v int64) *ir.Node {
	return must(ir.NewConstant(ir.IntegerAttr{Value: v, Type: ir.I32}))
}

func strc(t *testing.T, s string) *ir.Node {
	return must(ir.NewConstant(ir.StringAttr(s)))
}

func ref(t *testing.T, name string) *ir.Node {
	return must(ir.NewVar(name))
}

func add(t *testing.T, lhs, rhs *ir.Node) *ir.Node {
	return must(ir.NewBinaryOp("add", lhs, rhs))
}

func set(t *testing.T, name string, value *ir.Node) *ir.Node {
	return must(ir.NewAssign(name, value))
}

func forRange(t *testing.T, iv string, from, to int64, body ...*ir.Node) *ir.Node {
	return must(ir.NewLoop(iv, intc(t, from), intc(t, to), body...))
}

func printCall(t *testing.T, args ...*ir.Node) *ir.Node {
	return must(ir.NewCall("print", true, ir.EmptyType(), args...))
}

func program(t *testing.T, body ...*ir.Node) *ir.Node {
	fn := must(ir.NewFunction("main", body...))
	return must(ir.NewModule(fn))
}

func lowered(t *testing.T, body ...*ir.Node) *ir.Node {
	t.Helper()
	out, err := lower.Lower(program(t, body...), lower.WithLogger(discard()))
	require.NoError(t, err)
	return out
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

func reductionEngine(policy Policy, opts ...Option) *Engine {
	rule := NewReductionRule(policy, []string{"add", "mult"}, discard())
	return NewEngine([]Rule{rule}, append([]Option{WithLogger(discard())}, opts...)...)
}

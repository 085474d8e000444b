package compiler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/frontend"
	"github.com/roach88/tinypy/internal/ir"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// program compiles CUE source into a high-level module.
func program(t *testing.T, src string) *ir.Node {
	t.Helper()
	mod, err := frontend.CompileSource(t.Name()+".cue", []byte(src))
	require.NoError(t, err)
	return mod
}

const sumProgram = `
"func": main: body: [
	{assign: "step", value: {const: 2}},
	{assign: "x", value: {const: 0}},
	{loop: "i", from: {const: 0}, to: {const: 10}, body: [
		{assign: "x", value: {binop: "add", lhs: {var: "x"}, rhs: {var: "step"}}},
	]},
	{call: "print", args: [{var: "x"}]},
]
`

package frontend

import (
	"errors"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/ir"
	"github.com/roach88/tinypy/internal/lower"
)

func compileString(t *testing.T, src string, opts ...Option) (*ir.Node, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return Compile(v, opts...)
}

func TestCompileFileAccumulate(t *testing.T) {
	mod, err := CompileFile(filepath.Join("testdata", "accumulate.cue"))
	require.NoError(t, err)
	require.Equal(t, ir.KindModule, mod.Kind)

	funcs := mod.Children(0)
	require.Len(t, funcs, 1)
	assert.Equal(t, "main", funcs[0].StringAttr("fn_name"))

	body := funcs[0].Children(0)
	require.Len(t, body, 4)
	assert.Equal(t, ir.KindAssign, body[0].Kind)
	assert.Equal(t, ir.KindLoop, body[1].Kind)
	assert.Equal(t, ir.KindCall, body[2].Kind)
	assert.Equal(t, ir.KindReturn, body[3].Kind)

	loop := body[1]
	assert.Equal(t, "i", loop.StringAttr("variable"))
	inner := loop.Children(2)
	require.Len(t, inner, 1)
	sum := inner[0].Children(0)[0]
	assert.Equal(t, ir.KindBinaryOp, sum.Kind)
	assert.Equal(t, "add", sum.StringAttr("op"))

	call := body[2]
	assert.Equal(t, "print", call.StringAttr("func"))
	assert.True(t, call.BoolAttr("builtin"))
	assert.True(t, call.TypeAttr("type").IsEmpty())
}

func TestCompileFileLowers(t *testing.T) {
	mod, err := CompileFile(filepath.Join("testdata", "hello.cue"))
	require.NoError(t, err)

	lowered, err := lower.Lower(mod)
	require.NoError(t, err)
	assert.Contains(t, ir.String(lowered), `value = "hello\n"`)
}

func TestCompileFunctionOrder(t *testing.T) {
	mod, err := compileString(t, `
		"func": {
			zeta: body: [{return: {}}]
			alpha: body: [{return: {}}]
		}
	`)
	require.NoError(t, err)

	funcs := mod.Children(0)
	require.Len(t, funcs, 2)
	assert.Equal(t, "zeta", funcs[0].StringAttr("fn_name"))
	assert.Equal(t, "alpha", funcs[1].StringAttr("fn_name"))
}

func TestCompileConstants(t *testing.T) {
	tests := []struct {
		name string
		lit  string
		want ir.Attr
	}{
		{"int", `7`, ir.IntegerAttr{Value: 7, Type: ir.I64}},
		{"wide int", `5000000000`, ir.IntegerAttr{Value: 5000000000, Type: ir.I64}},
		{"float", `2.5`, ir.FloatAttr{Value: 2.5, Type: ir.F64}},
		{"string", `"hi"`, ir.StringAttr("hi")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := compileString(t,
				`"func": main: body: [{assign: "x", value: {const: `+tt.lit+`}}]`,
				WithIntType(ir.I64), WithFloatType(ir.F64))
			require.NoError(t, err)

			c := mod.Children(0)[0].Children(0)[0].Children(0)[0]
			got, ok := c.Attr("value")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileCallOptions(t *testing.T) {
	mod, err := compileString(t, `
		"func": main: body: [
			{call: "helper", args: [{const: 1}, {var: "y"}]},
			{assign: "r", value: {call: "read", type: "float"}},
			{call: "print", builtin: false},
		]
	`)
	require.NoError(t, err)

	body := mod.Children(0)[0].Children(0)
	helper := body[0]
	assert.False(t, helper.BoolAttr("builtin"))
	assert.Len(t, helper.Children(0), 2)

	read := body[1].Children(0)[0]
	assert.Equal(t, ir.KindCall, read.Kind)
	assert.Equal(t, ir.F32, read.TypeAttr("type"))

	assert.False(t, body[2].BoolAttr("builtin"))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{"missing func", `main: body: []`, "func", "func is required"},
		{"missing body", `"func": main: {}`, "func.main", "body is required"},
		{"body not list", `"func": main: body: 3`, "func.main.body", "expected a list"},
		{"unknown statement", `"func": main: body: [{while: "x"}]`, "func.main.body[0]", "unknown shape"},
		{"ambiguous statement", `"func": main: body: [{assign: "x", call: "f", value: {const: 1}}]`, "func.main.body[0]", "ambiguous shape"},
		{"missing value", `"func": main: body: [{assign: "x"}]`, "func.main.body[0].value", "value is required"},
		{"bad operator", `"func": main: body: [{assign: "x", value: {binop: "pow", lhs: {const: 1}, rhs: {const: 2}}}]`, "func.main.body[0].value.binop", "unknown operator"},
		{"bad literal", `"func": main: body: [{assign: "x", value: {const: true}}]`, "func.main.body[0].value.const", "unsupported literal"},
		{"int too wide", `"func": main: body: [{assign: "x", value: {const: 5000000000}}]`, "func.main.body[0].value.const", "does not fit in i32"},
		{"int below range", `"func": main: body: [{assign: "x", value: {const: -2147483649}}]`, "func.main.body[0].value.const", "does not fit in i32"},
		{"bad type", `"func": main: body: [{call: "f", type: "complex"}]`, "func.main.body[0].type", ""},
		{"name not string", `"func": main: body: [{assign: 1, value: {const: 1}}]`, "func.main.body[0].assign", "must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileString(t, tt.src)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "error should be *CompileError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.msg)
		})
	}
}

func TestCompileFileErrorPosition(t *testing.T) {
	_, err := CompileFile(filepath.Join("testdata", "bad_shape.cue"))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 3, ce.Pos.Line())
	assert.Contains(t, err.Error(), "bad_shape.cue:3:")
}

func TestCompileSourceSyntaxError(t *testing.T) {
	_, err := CompileSource("broken.cue", []byte(`"func": main: body: [ this is not cue`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
}

func TestCompileFileMissing(t *testing.T) {
	_, err := CompileFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read program")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "func", Message: "func is required"}
	assert.Equal(t, "func: func is required", err.Error())
}

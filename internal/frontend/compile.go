// Package frontend reads tiny programs written as CUE data and builds the
// high-level tiny IR from them.
//
// A program declares its functions under a "func" struct. Each function
// holds a body list of statements:
//
//	"func": main: body: [
//		{assign: "x", value: {const: 1}},
//		{loop: "i", from: {const: 0}, to: {const: 5}, body: [
//			{assign: "x", value: {binop: "add", lhs: {var: "x"}, rhs: {var: "i"}}},
//		]},
//		{call: "print", args: [{var: "x"}]},
//		{return: {}},
//	]
//
// Functions are emitted in field order.
package frontend

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/tinypy/internal/ir"
)

// defaultBuiltins are the call names treated as builtins when a call does
// not say otherwise.
var defaultBuiltins = []string{"print", "range"}

var binaryOps = []string{"add", "sub", "mult", "div"}

// Option configures compilation.
type Option func(*compiler)

// WithIntType sets the type of integer literals and of "int" call results.
func WithIntType(t ir.Type) Option {
	return func(c *compiler) {
		c.intType = t
	}
}

// WithFloatType sets the type of float literals and of "float" call results.
func WithFloatType(t ir.Type) Option {
	return func(c *compiler) {
		c.floatType = t
	}
}

type compiler struct {
	intType   ir.Type
	floatType ir.Type
}

func newCompiler(opts []Option) *compiler {
	c := &compiler{intType: ir.I32, floatType: ir.F32}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileFile reads and compiles the CUE program at path.
func CompileFile(path string, opts ...Option) (*ir.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return CompileSource(path, src, opts...)
}

// CompileSource compiles CUE program text. name is used in positions.
func CompileSource(name string, src []byte, opts ...Option) (*ir.Node, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(name))
	return Compile(v, opts...)
}

// Compile builds a tiny.module from a CUE program value.
func Compile(v cue.Value, opts ...Option) (*ir.Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}
	c := newCompiler(opts)

	fnsVal := v.LookupPath(cue.MakePath(cue.Str("func")))
	if !fnsVal.Exists() {
		return nil, &CompileError{
			Field:   "func",
			Message: "func is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, formatCUEError("func", err)
	}

	var funcs []*ir.Node
	for iter.Next() {
		name := iter.Label()
		fn, err := c.function(name, iter.Value())
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}

	mod, err := ir.NewModule(funcs...)
	if err != nil {
		return nil, &CompileError{Field: "func", Message: err.Error(), Pos: fnsVal.Pos()}
	}
	return mod, nil
}

func (c *compiler) function(name string, v cue.Value) (*ir.Node, error) {
	field := "func." + name
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, &CompileError{
			Field:   field,
			Message: "body is required",
			Pos:     v.Pos(),
		}
	}

	body, err := c.statements(field+".body", bodyVal)
	if err != nil {
		return nil, err
	}

	fn, err := ir.NewFunction(name, body...)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return fn, nil
}

func (c *compiler) statements(field string, v cue.Value) ([]*ir.Node, error) {
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "expected a list of statements", Pos: v.Pos()}
	}

	var out []*ir.Node
	for i := 0; list.Next(); i++ {
		stmt, err := c.statement(fmt.Sprintf("%s[%d]", field, i), list.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (c *compiler) statement(field string, v cue.Value) (*ir.Node, error) {
	shape, err := shapeOf(field, v, "assign", "loop", "call", "return")
	if err != nil {
		return nil, err
	}

	switch shape {
	case "assign":
		name, err := stringField(field, v, "assign")
		if err != nil {
			return nil, err
		}
		value, err := c.requiredExpr(field, v, "value")
		if err != nil {
			return nil, err
		}
		return wrap(field, v, func() (*ir.Node, error) { return ir.NewAssign(name, value) })

	case "loop":
		return c.loop(field, v)

	case "call":
		return c.call(field, v)

	default:
		return wrap(field, v, ir.NewReturn)
	}
}

func (c *compiler) loop(field string, v cue.Value) (*ir.Node, error) {
	variable, err := stringField(field, v, "loop")
	if err != nil {
		return nil, err
	}
	from, err := c.requiredExpr(field, v, "from")
	if err != nil {
		return nil, err
	}
	to, err := c.requiredExpr(field, v, "to")
	if err != nil {
		return nil, err
	}

	var body []*ir.Node
	if bodyVal := v.LookupPath(cue.ParsePath("body")); bodyVal.Exists() {
		body, err = c.statements(field+".body", bodyVal)
		if err != nil {
			return nil, err
		}
	}

	return wrap(field, v, func() (*ir.Node, error) { return ir.NewLoop(variable, from, to, body...) })
}

func (c *compiler) call(field string, v cue.Value) (*ir.Node, error) {
	name, err := stringField(field, v, "call")
	if err != nil {
		return nil, err
	}

	builtin := slices.Contains(defaultBuiltins, name)
	if b := v.LookupPath(cue.ParsePath("builtin")); b.Exists() {
		builtin, err = b.Bool()
		if err != nil {
			return nil, formatCUEError(field+".builtin", err)
		}
	}

	typ := ir.EmptyType()
	if t := v.LookupPath(cue.ParsePath("type")); t.Exists() {
		s, err := t.String()
		if err != nil {
			return nil, formatCUEError(field+".type", err)
		}
		typ, err = c.parseType(s)
		if err != nil {
			return nil, &CompileError{Field: field + ".type", Message: err.Error(), Pos: t.Pos()}
		}
	}

	var args []*ir.Node
	if argsVal := v.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
		list, err := argsVal.List()
		if err != nil {
			return nil, &CompileError{Field: field + ".args", Message: "expected a list of expressions", Pos: argsVal.Pos()}
		}
		for i := 0; list.Next(); i++ {
			arg, err := c.expr(fmt.Sprintf("%s.args[%d]", field, i), list.Value())
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}

	return wrap(field, v, func() (*ir.Node, error) { return ir.NewCall(name, builtin, typ, args...) })
}

func (c *compiler) parseType(s string) (ir.Type, error) {
	switch s {
	case "int":
		return c.intType, nil
	case "float":
		return c.floatType, nil
	}
	return ir.ParseType(s)
}

func (c *compiler) requiredExpr(field string, v cue.Value, key string) (*ir.Node, error) {
	sub := v.LookupPath(cue.ParsePath(key))
	if !sub.Exists() {
		return nil, &CompileError{
			Field:   field + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	return c.expr(field+"."+key, sub)
}

func (c *compiler) expr(field string, v cue.Value) (*ir.Node, error) {
	shape, err := shapeOf(field, v, "const", "var", "binop", "call")
	if err != nil {
		return nil, err
	}

	switch shape {
	case "const":
		return c.constant(field, v.LookupPath(cue.ParsePath("const")))

	case "var":
		name, err := stringField(field, v, "var")
		if err != nil {
			return nil, err
		}
		return wrap(field, v, func() (*ir.Node, error) { return ir.NewVar(name) })

	case "binop":
		op, err := stringField(field, v, "binop")
		if err != nil {
			return nil, err
		}
		if !slices.Contains(binaryOps, op) {
			return nil, &CompileError{
				Field:   field + ".binop",
				Message: fmt.Sprintf("unknown operator %q (want one of %v)", op, binaryOps),
				Pos:     v.Pos(),
			}
		}
		lhs, err := c.requiredExpr(field, v, "lhs")
		if err != nil {
			return nil, err
		}
		rhs, err := c.requiredExpr(field, v, "rhs")
		if err != nil {
			return nil, err
		}
		return wrap(field, v, func() (*ir.Node, error) { return ir.NewBinaryOp(op, lhs, rhs) })

	default:
		return c.call(field, v)
	}
}

func (c *compiler) constant(field string, v cue.Value) (*ir.Node, error) {
	field += ".const"

	var value any
	var err error
	switch v.IncompleteKind() {
	case cue.IntKind:
		value, err = v.Int64()
	case cue.FloatKind, cue.NumberKind:
		value, err = v.Float64()
	case cue.StringKind:
		value, err = v.String()
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported literal kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	if err != nil {
		return nil, formatCUEError(field, err)
	}

	if i, ok := value.(int64); ok && !fitsInt(i, c.intType.Width) {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("integer literal %d does not fit in %s", i, c.intType),
			Pos:     v.Pos(),
		}
	}
	attr, ok := ir.ConstantAttr(value, c.intType, c.floatType)
	if !ok {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported literal %v", value),
			Pos:     v.Pos(),
		}
	}
	return wrap(field, v, func() (*ir.Node, error) { return ir.NewConstant(attr) })
}

// fitsInt reports whether v is representable as a signed integer of the
// given bit width.
func fitsInt(v int64, width int) bool {
	if width <= 0 || width >= 64 {
		return true
	}
	return v >= -1<<(width-1) && v <= 1<<(width-1)-1
}

// shapeOf reports which of the discriminating keys v carries. Exactly one
// must be present.
func shapeOf(field string, v cue.Value, keys ...string) (string, error) {
	if v.IncompleteKind() != cue.StructKind {
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	var found []string
	for _, k := range keys {
		if v.LookupPath(cue.ParsePath(k)).Exists() {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown shape: expected one of %v", keys),
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("ambiguous shape: has %v", found),
			Pos:     v.Pos(),
		}
	}
}

func stringField(field string, v cue.Value, key string) (string, error) {
	sub := v.LookupPath(cue.ParsePath(key))
	s, err := sub.String()
	if err != nil {
		return "", &CompileError{
			Field:   field + "." + key,
			Message: fmt.Sprintf("%s must be a string", key),
			Pos:     sub.Pos(),
		}
	}
	return s, nil
}

// wrap runs an IR constructor and attaches the CUE position to its error.
func wrap(field string, v cue.Value, build func() (*ir.Node, error)) (*ir.Node, error) {
	n, err := build()
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return n, nil
}

package ir

import "fmt"

// Spec describes a node to construct with New.
type Spec struct {
	Attrs    map[string]Attr
	Operands []*Value
	Results  []Type
	Regions  []*Region

	// ReuseResults hands existing values to the new node as its results,
	// in order, after Results. Used when a rewrite replaces a node and its
	// users must keep referring to the same values.
	ReuseResults []*Value
}

// New constructs a node of the given kind and verifies it. A node that
// fails verification is never returned, and reused result values keep
// their previous definition.
func New(kind Kind, spec Spec) (*Node, error) {
	n := &Node{
		Kind:     kind,
		Attrs:    spec.Attrs,
		Operands: spec.Operands,
		Regions:  spec.Regions,
	}
	if n.Attrs == nil {
		n.Attrs = map[string]Attr{}
	}
	for _, t := range spec.Results {
		n.Results = append(n.Results, &Value{Type: t, def: n})
	}

	prevDefs := make([]*Node, len(spec.ReuseResults))
	for i, v := range spec.ReuseResults {
		prevDefs[i] = v.def
		v.def = n
		n.Results = append(n.Results, v)
	}

	if err := Verify(n); err != nil {
		for i, v := range spec.ReuseResults {
			v.def = prevDefs[i]
		}
		return nil, err
	}

	for _, r := range n.Regions {
		r.parent = n
	}
	return n, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(kind Kind, spec Spec) *Node {
	n, err := New(kind, spec)
	if err != nil {
		panic(err)
	}
	return n
}

// NewModule builds a high-level module from functions.
func NewModule(funcs ...*Node) (*Node, error) {
	return New(KindModule, Spec{Regions: []*Region{RegionOf(funcs...)}})
}

// NewFunction builds a high-level function with an empty parameter list.
func NewFunction(name string, body ...*Node) (*Node, error) {
	return New(KindFunction, Spec{
		Attrs: map[string]Attr{
			"fn_name":    StringAttr(name),
			"args":       FunctionTypeAttr{},
			"return_var": TypeAttr{EmptyType()},
		},
		Regions: []*Region{RegionOf(body...)},
	})
}

// NewAssign builds "name = value".
func NewAssign(name string, value *Node) (*Node, error) {
	if value == nil {
		return nil, fmt.Errorf("assign %q: nil value", name)
	}
	return New(KindAssign, Spec{
		Attrs:   map[string]Attr{"var_name": StringAttr(name)},
		Regions: []*Region{RegionOf(value)},
	})
}

// NewLoop builds "for variable in range(from, to): body".
func NewLoop(variable string, from, to *Node, body ...*Node) (*Node, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("loop %q: nil bound", variable)
	}
	return New(KindLoop, Spec{
		Attrs:   map[string]Attr{"variable": StringAttr(variable)},
		Regions: []*Region{RegionOf(from), RegionOf(to), RegionOf(body...)},
	})
}

// NewVar builds a variable reference.
func NewVar(name string) (*Node, error) {
	return New(KindVar, Spec{Attrs: map[string]Attr{"variable": StringAttr(name)}})
}

// NewBinaryOp builds "lhs op rhs".
func NewBinaryOp(op string, lhs, rhs *Node) (*Node, error) {
	if lhs == nil || rhs == nil {
		return nil, fmt.Errorf("binary_op %q: nil operand", op)
	}
	return New(KindBinaryOp, Spec{
		Attrs:   map[string]Attr{"op": StringAttr(op)},
		Regions: []*Region{RegionOf(lhs), RegionOf(rhs)},
	})
}

// NewConstant builds a literal. value must be an IntegerAttr, FloatAttr or
// StringAttr.
func NewConstant(value Attr) (*Node, error) {
	return New(KindConstant, Spec{Attrs: map[string]Attr{"value": value}})
}

// NewReturn builds a bare return statement.
func NewReturn() (*Node, error) {
	return New(KindReturn, Spec{})
}

// NewCall builds a call. typ is the declared result type; EmptyType marks a
// call usable only as a statement.
func NewCall(fn string, builtin bool, typ Type, args ...*Node) (*Node, error) {
	return New(KindCall, Spec{
		Attrs: map[string]Attr{
			"func":    StringAttr(fn),
			"builtin": BoolAttr(builtin),
			"type":    TypeAttr{typ},
		},
		Regions: []*Region{RegionOf(args...)},
	})
}

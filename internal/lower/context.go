package lower

import (
	"fmt"
	"strings"

	"github.com/roach88/tinypy/internal/ir"
)

// Builtins is the builtin call table consulted while lowering calls.
type Builtins struct {
	// Symbols maps source builtin names to runtime symbols.
	Symbols map[string]string

	// FormatSymbol is the runtime formatted-output symbol. Calls to it get
	// a synthesized format string and widened float arguments.
	FormatSymbol string

	// Markers maps numeric type kinds to conversion markers.
	Markers map[ir.TypeKind]string

	// StringMarker is the marker used for string arguments inside a
	// synthesized format string.
	StringMarker string

	// Separator joins markers in a synthesized format string.
	Separator string

	// FloatWidth is the float width the formatted-output symbol expects.
	FloatWidth int
}

// DefaultBuiltins returns the print → printf table.
func DefaultBuiltins() Builtins {
	return Builtins{
		Symbols:      map[string]string{"print": "printf"},
		FormatSymbol: "printf",
		Markers: map[ir.TypeKind]string{
			ir.IntegerKind: "%d",
			ir.FloatKind:   "%f",
		},
		StringMarker: "%s",
		Separator:    " ",
		FloatWidth:   64,
	}
}

// Resolve maps a builtin source name to its runtime symbol. Names missing
// from the table resolve to themselves.
func (b Builtins) Resolve(name string) string {
	if sym, ok := b.Symbols[name]; ok {
		return sym
	}
	return name
}

// Context is the state owned by one translation run: the symbol table, the
// global declarations list and the string literal counter. It is not safe
// for concurrent use; each run gets its own.
type Context struct {
	Symbols *SymbolTable

	builtins Builtins
	globals  []*ir.Node
	strCount int
	declared map[string]bool
}

// NewContext returns an empty translation context.
func NewContext(b Builtins) *Context {
	return &Context{
		Symbols:  NewSymbolTable(),
		builtins: b,
		declared: map[string]bool{},
	}
}

// Globals returns the accumulated extern declarations and string globals in
// the order they were created.
func (c *Context) Globals() []*ir.Node {
	return c.globals
}

// poolString materializes s as a new global and emits the address
// computation yielding a string value into b. Every call creates a new
// global, even for repeated content.
func (c *Context) poolString(b *ir.Block, s string) (*ir.Value, error) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	name := fmt.Sprintf("str%d", c.strCount)
	c.strCount++

	typ := ir.ArrayType(len(s))
	global, err := ir.New(ir.KindGlobal, ir.Spec{Attrs: map[string]ir.Attr{
		"sym_name": ir.StringAttr(name),
		"value":    ir.StringAttr(s),
		"type":     ir.TypeAttr{Type: typ},
	}})
	if err != nil {
		return nil, err
	}
	c.globals = append(c.globals, global)

	get, err := emit(b, ir.KindGetGlobal, ir.Spec{
		Attrs:   map[string]ir.Attr{"name": ir.StringAttr(name)},
		Results: []ir.Type{typ},
	})
	if err != nil {
		return nil, err
	}
	ptr, err := emit(b, ir.KindElementPtr, ir.Spec{
		Operands: []*ir.Value{get.Result()},
		Results:  []ir.Type{ir.StringType()},
	})
	if err != nil {
		return nil, err
	}
	return ptr.Result(), nil
}

// declareExtern appends an extern declaration for sym the first time it is
// called. Later calls are not checked against the recorded signature.
func (c *Context) declareExtern(sym string, args []*ir.Value) error {
	if c.declared[sym] {
		return nil
	}
	sig := make(ir.FunctionTypeAttr, len(args))
	for i, a := range args {
		sig[i] = a.Type
	}
	ext, err := ir.New(ir.KindExternDecl, ir.Spec{Attrs: map[string]ir.Attr{
		"sym_name":       ir.StringAttr(sym),
		"function_type":  sig,
		"sym_visibility": ir.StringAttr("private"),
	}})
	if err != nil {
		return err
	}
	c.declared[sym] = true
	c.globals = append(c.globals, ext)
	return nil
}

// frame is the emission cursor for one function or loop body.
type frame struct {
	block    *ir.Block
	scope    ScopeID
	depth    int // loop nesting
	returned bool
}

// emit builds a node and appends it to b.
func emit(b *ir.Block, kind ir.Kind, spec ir.Spec) (*ir.Node, error) {
	n, err := ir.New(kind, spec)
	if err != nil {
		return nil, err
	}
	b.Append(n)
	return n, nil
}

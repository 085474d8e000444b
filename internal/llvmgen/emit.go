// Package llvmgen turns a lowered module into LLVM IR using llir/llvm.
//
// String globals become NUL-terminated character arrays, extern
// declarations become function declarations and every function becomes a
// void function. Sequential loops are emitted as header, body and exit
// blocks joined by phi nodes. Parallel loops are emitted the same way with
// one extra accumulator phi per reduction clause; no threading is
// introduced.
package llvmgen

import (
	"fmt"
	"log/slog"

	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/roach88/tinypy/internal/ir"
)

// EmitError reports a construct that has no LLVM translation.
type EmitError struct {
	Kind    ir.Kind
	Message string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s: %s", e.Kind, e.Message)
}

func emitErr(kind ir.Kind, format string, args ...any) *EmitError {
	return &EmitError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithFormatSymbol names the variadic formatted-output extern.
func WithFormatSymbol(name string) Option {
	return func(e *Emitter) {
		e.formatSymbol = name
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Emitter converts lowered modules. It holds configuration only.
type Emitter struct {
	formatSymbol string
	logger       *slog.Logger
}

// New creates an Emitter treating printf as the formatted-output extern.
func New(opts ...Option) *Emitter {
	e := &Emitter{formatSymbol: "printf", logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit converts mod with the default Emitter.
func Emit(mod *ir.Node, opts ...Option) (*lir.Module, error) {
	return New(opts...).Module(mod)
}

// Module converts a builtin.module.
func (e *Emitter) Module(mod *ir.Node) (*lir.Module, error) {
	if mod == nil || mod.Kind != ir.KindBuiltinModule {
		return nil, emitErr(kindOf(mod), "expected %s", ir.KindBuiltinModule)
	}

	g := &gen{
		emitter: e,
		m:       lir.NewModule(),
		globals: map[string]*lir.Global{},
		funcs:   map[string]*lir.Func{},
		rets:    callResults(mod),
	}

	// Declarations first so bodies can reference anything in the module.
	top := mod.Children(0)
	for _, n := range top {
		var err error
		switch n.Kind {
		case ir.KindGlobal:
			err = g.global(n)
		case ir.KindExternDecl:
			err = g.extern(n)
		case ir.KindFuncDecl:
			name := n.StringAttr("sym_name")
			g.funcs[name] = g.m.NewFunc(name, types.Void)
		default:
			err = emitErr(n.Kind, "unexpected top-level node")
		}
		if err != nil {
			return nil, err
		}
	}

	for _, n := range top {
		if n.Kind != ir.KindFuncDecl {
			continue
		}
		if err := g.function(n); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("llvm module emitted",
		"funcs", len(g.m.Funcs),
		"globals", len(g.m.Globals),
	)
	return g.m, nil
}

// callResults records the first result type seen per callee, used to give
// extern declarations a return type.
func callResults(mod *ir.Node) map[string]ir.Type {
	out := map[string]ir.Type{}
	ir.Walk(mod, func(n *ir.Node) bool {
		if n.Kind == ir.KindFuncCall && len(n.Results) == 1 {
			callee := n.StringAttr("callee")
			if _, ok := out[callee]; !ok {
				out[callee] = n.Results[0].Type
			}
		}
		return true
	})
	return out
}

func kindOf(n *ir.Node) ir.Kind {
	if n == nil {
		return "<nil>"
	}
	return n.Kind
}

// gen is the state of one Module call.
type gen struct {
	emitter *Emitter
	m       *lir.Module
	globals map[string]*lir.Global
	funcs   map[string]*lir.Func
	rets    map[string]ir.Type
}

func (g *gen) global(n *ir.Node) error {
	name := n.StringAttr("sym_name")
	s, ok := n.Attrs["value"].(ir.StringAttr)
	if !ok {
		return emitErr(n.Kind, "global %q has no string value", name)
	}
	def := g.m.NewGlobalDef(name, constant.NewCharArrayFromString(string(s)+"\x00"))
	def.Immutable = true
	g.globals[name] = def
	return nil
}

func (g *gen) extern(n *ir.Node) error {
	name := n.StringAttr("sym_name")
	sig, _ := n.Attrs["function_type"].(ir.FunctionTypeAttr)

	if name == g.emitter.formatSymbol {
		f := g.m.NewFunc(name, types.I32, lir.NewParam("", types.I8Ptr))
		f.Sig.Variadic = true
		g.funcs[name] = f
		return nil
	}

	params := make([]*lir.Param, 0, len(sig))
	for _, t := range sig {
		lt, err := llvmType(t)
		if err != nil {
			return emitErr(n.Kind, "extern %q: %v", name, err)
		}
		params = append(params, lir.NewParam("", lt))
	}

	var ret types.Type = types.Void
	if t, ok := g.rets[name]; ok {
		lt, err := llvmType(t)
		if err != nil {
			return emitErr(n.Kind, "extern %q: %v", name, err)
		}
		ret = lt
	}
	g.funcs[name] = g.m.NewFunc(name, ret, params...)
	return nil
}

func (g *gen) function(n *ir.Node) error {
	f := g.funcs[n.StringAttr("sym_name")]
	fg := &funcGen{
		gen:    g,
		f:      f,
		values: map[*ir.Value]value.Value{},
	}
	fg.block = f.NewBlock("entry")
	return fg.nodes(n.Body(0).Nodes)
}

// llvmType maps an IR type to its LLVM counterpart.
func llvmType(t ir.Type) (types.Type, error) {
	switch t.Kind {
	case ir.IntegerKind:
		return types.NewInt(uint64(t.Width)), nil
	case ir.FloatKind:
		switch t.Width {
		case 16:
			return types.Half, nil
		case 32:
			return types.Float, nil
		case 64:
			return types.Double, nil
		}
	case ir.StringKind:
		return types.I8Ptr, nil
	case ir.ArrayKind:
		return types.NewPointer(types.NewArray(uint64(t.Len+1), types.I8)), nil
	}
	return nil, fmt.Errorf("no LLVM type for %s", t)
}

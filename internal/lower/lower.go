// Package lower translates the high-level tiny IR into SSA form.
//
// Each function gets its own scope under the table root. Statements are
// translated in order against that scope, rebinding names as assignments
// are seen. Loops become scf.loop nodes whose block parameters carry the
// induction variable plus every variable the body assigns, so code after
// the loop sees the final iteration's values.
//
// All failures abort the run with a *TranslationError; there is no partial
// output.
package lower

import (
	"errors"
	"log/slog"

	"github.com/roach88/tinypy/internal/ir"
)

// Lowerer translates modules. It holds configuration only; all per-run
// state lives in a Context.
type Lowerer struct {
	builtins Builtins
	logger   *slog.Logger
}

// Option configures a Lowerer.
type Option func(*Lowerer)

// WithBuiltins sets the builtin call table.
func WithBuiltins(b Builtins) Option {
	return func(l *Lowerer) {
		l.builtins = b
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lowerer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Lowerer with the default builtin table.
func New(opts ...Option) *Lowerer {
	l := &Lowerer{
		builtins: DefaultBuiltins(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Module lowers a tiny.module into a builtin.module. Functions come first
// in source order, followed by the global declarations collected while
// lowering them.
func (l *Lowerer) Module(mod *ir.Node) (*ir.Node, error) {
	if mod == nil || mod.Kind != ir.KindModule {
		return nil, unsupported(kindOf(mod), "expected %s at top level", ir.KindModule)
	}

	ctx := NewContext(l.builtins)
	var out []*ir.Node
	for _, fn := range mod.Children(0) {
		lowered, err := l.Function(ctx, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered)
	}
	out = append(out, ctx.Globals()...)

	return ir.New(ir.KindBuiltinModule, ir.Spec{Regions: []*ir.Region{ir.RegionOf(out...)}})
}

// Function lowers one tiny.function against ctx. Globals it needs are added
// to ctx rather than returned.
func (l *Lowerer) Function(ctx *Context, fn *ir.Node) (*ir.Node, error) {
	if fn == nil || fn.Kind != ir.KindFunction {
		return nil, unsupported(kindOf(fn), "cannot translate %s as a function", kindOf(fn))
	}
	name := fn.StringAttr("fn_name")

	f := &frame{
		block: ir.NewBlock(),
		scope: ctx.Symbols.Child(ctx.Symbols.Root()),
	}
	for _, stmt := range fn.Children(0) {
		if err := l.stmt(ctx, f, stmt); err != nil {
			var te *TranslationError
			if errors.As(err, &te) && te.Function == "" {
				te.Function = name
			}
			return nil, err
		}
	}
	if !f.returned {
		if _, err := emit(f.block, ir.KindFuncReturn, ir.Spec{}); err != nil {
			return nil, err
		}
	}

	lowered, err := ir.New(ir.KindFuncDecl, ir.Spec{
		Attrs: map[string]ir.Attr{
			"sym_name":       ir.StringAttr(name),
			"function_type":  ir.FunctionTypeAttr{},
			"sym_visibility": ir.StringAttr("public"),
		},
		Regions: []*ir.Region{ir.NewRegion(f.block)},
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("function lowered",
		"function", name,
		"nodes", ir.Count(lowered),
	)
	return lowered, nil
}

// Lower is shorthand for New(opts...).Module(mod).
func Lower(mod *ir.Node, opts ...Option) (*ir.Node, error) {
	return New(opts...).Module(mod)
}

func kindOf(n *ir.Node) ir.Kind {
	if n == nil {
		return ""
	}
	return n.Kind
}

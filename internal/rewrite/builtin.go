package rewrite

import (
	"strings"

	"github.com/roach88/tinypy/internal/ir"
)

// BuiltinRule renames builtin calls to their runtime symbol and makes sure
// string literal arguments end with a newline. It runs on high-level IR.
type BuiltinRule struct {
	source string
	target string
}

// NewBuiltinRule returns a rule renaming builtin calls to source into calls
// to target.
func NewBuiltinRule(source, target string) *BuiltinRule {
	return &BuiltinRule{source: source, target: target}
}

// Name implements Rule.
func (r *BuiltinRule) Name() string { return "normalize-builtin:" + r.source }

// Match implements Rule.
func (r *BuiltinRule) Match(n *ir.Node) bool {
	return n.Kind == ir.KindCall && n.BoolAttr("builtin") && n.StringAttr("func") == r.source
}

// Rewrite implements Rule. Only constants directly in the call's argument
// region are patched; nested expressions are left alone.
func (r *BuiltinRule) Rewrite(rw *Rewriter, n *ir.Node) error {
	if err := rw.SetAttr(n, "func", ir.StringAttr(r.target)); err != nil {
		return verificationFailed(r.Name(), err)
	}
	for _, arg := range n.Children(0) {
		if arg.Kind != ir.KindConstant {
			continue
		}
		s, ok := arg.Attrs["value"].(ir.StringAttr)
		if !ok || strings.HasSuffix(string(s), "\n") {
			continue
		}
		if err := rw.SetAttr(arg, "value", s+"\n"); err != nil {
			return verificationFailed(r.Name(), err)
		}
	}
	return nil
}

package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/tinypy/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrNotAModule        = "E100" // root is not a tiny.module
	ErrNoFunctions       = "E101" // module declares no functions
	ErrDuplicateFunction = "E102" // function name declared twice
	ErrUnknownOperator   = "E103" // binary operator outside add/sub/mult/div
	ErrUnreachable       = "E104" // statement after return
	ErrReturnInLoop      = "E105" // return inside a loop body
	ErrInvalidName       = "E106" // empty or malformed identifier
	ErrValuelessCallExpr = "E107" // call without result type used as a value
	ErrUndefinedFunction = "E108" // non-builtin call to an unknown function
)

// ValidationError represents a static program error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var operators = []string{"add", "sub", "mult", "div"}

// identPattern matches names the front-end and lowering accept.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a high-level module before lowering.
// Returns all errors found (does not fail-fast).
func Validate(mod *ir.Node) []ValidationError {
	if mod == nil || mod.Kind != ir.KindModule {
		kind := "<nil>"
		if mod != nil {
			kind = string(mod.Kind)
		}
		return []ValidationError{{
			Field:   "module",
			Message: fmt.Sprintf("expected %s, got %s", ir.KindModule, kind),
			Code:    ErrNotAModule,
		}}
	}

	funcs := mod.Children(0)
	if len(funcs) == 0 {
		return []ValidationError{{
			Field:   "func",
			Message: "at least one function is required",
			Code:    ErrNoFunctions,
		}}
	}

	v := &validator{defined: map[string]bool{}}
	for _, fn := range funcs {
		name := fn.StringAttr("fn_name")
		field := "func." + name
		if v.defined[name] {
			v.add(field, ErrDuplicateFunction, fmt.Sprintf("duplicate function name: %q", name))
		}
		v.defined[name] = true
		v.name(field, name)
	}

	for _, fn := range funcs {
		field := "func." + fn.StringAttr("fn_name") + ".body"
		v.statements(field, fn.Children(0), 0)
	}
	return v.errs
}

type validator struct {
	defined map[string]bool
	errs    []ValidationError
}

func (v *validator) add(field, code, msg string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: msg, Code: code})
}

func (v *validator) name(field, name string) {
	if !identPattern.MatchString(name) {
		v.add(field, ErrInvalidName, fmt.Sprintf("invalid identifier %q", name))
	}
}

func (v *validator) statements(field string, stmts []*ir.Node, depth int) {
	returned := false
	for i, s := range stmts {
		path := fmt.Sprintf("%s[%d]", field, i)
		if returned {
			v.add(path, ErrUnreachable, "statement after return is unreachable")
		}

		switch s.Kind {
		case ir.KindAssign:
			v.name(path+".assign", s.StringAttr("var_name"))
			v.expr(path+".value", s.Children(0)[0])
		case ir.KindLoop:
			v.name(path+".loop", s.StringAttr("variable"))
			v.expr(path+".from", s.Children(0)[0])
			v.expr(path+".to", s.Children(1)[0])
			v.statements(path+".body", s.Children(2), depth+1)
		case ir.KindCall:
			v.call(path, s)
		case ir.KindReturn:
			if depth > 0 {
				v.add(path, ErrReturnInLoop, "return inside a loop body is not supported")
			}
			returned = true
		}
	}
}

func (v *validator) expr(field string, n *ir.Node) {
	switch n.Kind {
	case ir.KindVar:
		v.name(field+".var", n.StringAttr("variable"))
	case ir.KindBinaryOp:
		if op := n.StringAttr("op"); !slices.Contains(operators, op) {
			v.add(field+".binop", ErrUnknownOperator, fmt.Sprintf("unknown operator %q", op))
		}
		v.expr(field+".lhs", n.Children(0)[0])
		v.expr(field+".rhs", n.Children(1)[0])
	case ir.KindCall:
		if n.TypeAttr("type").IsEmpty() {
			v.add(field, ErrValuelessCallExpr,
				fmt.Sprintf("call to %q has no result type and cannot be used as a value", n.StringAttr("func")))
		}
		v.call(field, n)
	}
}

func (v *validator) call(field string, n *ir.Node) {
	name := n.StringAttr("func")
	v.name(field+".call", name)
	if !n.BoolAttr("builtin") && !v.defined[name] {
		v.add(field+".call", ErrUndefinedFunction, fmt.Sprintf("call to undefined function %q", name))
	}
	for i, arg := range n.Children(0) {
		v.expr(fmt.Sprintf("%s.args[%d]", field, i), arg)
	}
}

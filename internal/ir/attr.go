package ir

import (
	"slices"
	"strconv"
	"strings"
)

// Attr is a sealed interface representing attribute literals.
// Only StringAttr, IntegerAttr, FloatAttr, BoolAttr, TypeAttr and
// FunctionTypeAttr implement this.
type Attr interface {
	attr() // Sealed
	String() string
}

// StringAttr is a string literal attribute.
type StringAttr string

func (StringAttr) attr() {}

func (a StringAttr) String() string { return strconv.Quote(string(a)) }

// IntegerAttr is an integer literal with its IR type.
type IntegerAttr struct {
	Value int64
	Type  Type
}

func (IntegerAttr) attr() {}

func (a IntegerAttr) String() string {
	return strconv.FormatInt(a.Value, 10) + " : " + a.Type.String()
}

// FloatAttr is a floating literal with its IR type.
type FloatAttr struct {
	Value float64
	Type  Type
}

func (FloatAttr) attr() {}

func (a FloatAttr) String() string {
	return formatFloat(a.Value) + " : " + a.Type.String()
}

// BoolAttr is a boolean flag attribute.
type BoolAttr bool

func (BoolAttr) attr() {}

func (a BoolAttr) String() string { return strconv.FormatBool(bool(a)) }

// TypeAttr carries a single type tag.
type TypeAttr struct {
	Type Type
}

func (TypeAttr) attr() {}

func (a TypeAttr) String() string { return a.Type.String() }

// FunctionTypeAttr carries an ordered parameter type list. Functions in this
// IR never return values, so only inputs are recorded.
type FunctionTypeAttr []Type

func (FunctionTypeAttr) attr() {}

func (a FunctionTypeAttr) String() string {
	parts := make([]string, len(a))
	for i, t := range a {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatFloat renders the shortest decimal form, always with a fraction or
// exponent so floats never read as integers.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

// ConstantAttr builds the literal attribute for a Go scalar.
// Integers use intType, floats use floatType, strings become StringAttr.
func ConstantAttr(v any, intType, floatType Type) (Attr, bool) {
	switch val := v.(type) {
	case int:
		return IntegerAttr{Value: int64(val), Type: intType}, true
	case int64:
		return IntegerAttr{Value: val, Type: intType}, true
	case float64:
		return FloatAttr{Value: val, Type: floatType}, true
	case string:
		return StringAttr(val), true
	case bool:
		return BoolAttr(val), true
	default:
		return nil, false
	}
}

// AttrType returns the IR type a constant attribute produces.
func AttrType(a Attr) Type {
	switch val := a.(type) {
	case IntegerAttr:
		return val.Type
	case FloatAttr:
		return val.Type
	case StringAttr:
		return StringType()
	case BoolAttr:
		return I1
	default:
		return EmptyType()
	}
}

// AttrEqual reports whether two attributes hold the same literal.
func AttrEqual(a, b Attr) bool {
	switch x := a.(type) {
	case FunctionTypeAttr:
		y, ok := b.(FunctionTypeAttr)
		return ok && slices.Equal(x, y)
	default:
		if _, ok := b.(FunctionTypeAttr); ok {
			return false
		}
		return a == b
	}
}

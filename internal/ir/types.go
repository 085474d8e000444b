package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeKind enumerates the value kinds the IR recognises.
type TypeKind int

const (
	// EmptyKind is the "absent" placeholder, valid only where no value flows.
	EmptyKind TypeKind = iota
	// IntegerKind is a signless integer of Type.Width bits.
	IntegerKind
	// FloatKind is an IEEE float of Type.Width bits (16, 32 or 64).
	FloatKind
	// StringKind is a pointer to NUL-free character data.
	StringKind
	// ArrayKind is a fixed-length byte array (pooled string storage).
	ArrayKind
)

// Type is a value type tag.
// Width is meaningful for integers and floats, Len for byte arrays.
type Type struct {
	Kind  TypeKind
	Width int
	Len   int
}

// Common types.
var (
	I1  = IntType(1)
	I32 = IntType(32)
	I64 = IntType(64)
	F32 = FloatType(32)
	F64 = FloatType(64)
)

// EmptyType returns the placeholder type.
func EmptyType() Type { return Type{Kind: EmptyKind} }

// IntType returns an integer type of the given bit width.
func IntType(width int) Type { return Type{Kind: IntegerKind, Width: width} }

// FloatType returns a floating-point type of the given bit width.
func FloatType(width int) Type { return Type{Kind: FloatKind, Width: width} }

// StringType returns the string (character pointer) type.
func StringType() Type { return Type{Kind: StringKind} }

// ArrayType returns a byte array type of length n.
func ArrayType(n int) Type { return Type{Kind: ArrayKind, Len: n} }

func (t Type) IsEmpty() bool   { return t.Kind == EmptyKind }
func (t Type) IsInteger() bool { return t.Kind == IntegerKind }
func (t Type) IsFloat() bool   { return t.Kind == FloatKind }
func (t Type) IsString() bool  { return t.Kind == StringKind }

// String renders the type the way the printer shows it.
func (t Type) String() string {
	switch t.Kind {
	case EmptyKind:
		return "none"
	case IntegerKind:
		return "i" + strconv.Itoa(t.Width)
	case FloatKind:
		return "f" + strconv.Itoa(t.Width)
	case StringKind:
		return "str"
	case ArrayKind:
		return fmt.Sprintf("memref<%dxi8>", t.Len)
	default:
		return fmt.Sprintf("!unknown<%d>", t.Kind)
	}
}

// ParseType parses a type name as written in front-end input or printed IR.
// Accepted forms: "none", "int", "float", "string", "str", "iN", "fN".
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none", "empty":
		return EmptyType(), nil
	case "int", "integer":
		return I32, nil
	case "float":
		return F32, nil
	case "string", "str":
		return StringType(), nil
	}

	if len(s) > 1 && (s[0] == 'i' || s[0] == 'f') {
		width, err := strconv.Atoi(s[1:])
		if err == nil {
			if s[0] == 'i' && width > 0 && width <= 64 {
				return IntType(width), nil
			}
			if s[0] == 'f' && (width == 16 || width == 32 || width == 64) {
				return FloatType(width), nil
			}
		}
	}

	if strings.HasPrefix(s, "memref<") && strings.HasSuffix(s, "xi8>") {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "memref<"), "xi8>"))
		if err == nil && n >= 0 {
			return ArrayType(n), nil
		}
	}

	return Type{}, fmt.Errorf("unknown type %q", s)
}

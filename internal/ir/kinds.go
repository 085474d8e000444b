package ir

import "strings"

// Kind identifies a node's operation. The set is closed: every kind has a
// schema entry and constructors reject anything else.
type Kind string

// High-level ("tiny") kinds produced by the front-end.
const (
	KindModule   Kind = "tiny.module"
	KindFunction Kind = "tiny.function"
	KindAssign   Kind = "tiny.assign"
	KindLoop     Kind = "tiny.loop"
	KindVar      Kind = "tiny.var"
	KindBinaryOp Kind = "tiny.binary_op"
	KindConstant Kind = "tiny.constant"
	KindReturn   Kind = "tiny.return"
	KindCall     Kind = "tiny.call"
)

// Lowered kinds produced by the lowering engine and rewrite rules.
const (
	KindBuiltinModule Kind = "builtin.module"

	KindFuncDecl   Kind = "func.func"
	KindExternDecl Kind = "func.extern"
	KindFuncCall   Kind = "func.call"
	KindFuncReturn Kind = "func.return"

	KindArithConstant Kind = "arith.constant"
	KindAddI          Kind = "arith.addi"
	KindSubI          Kind = "arith.subi"
	KindMulI          Kind = "arith.muli"
	KindDivSI         Kind = "arith.divsi"
	KindAddF          Kind = "arith.addf"
	KindSubF          Kind = "arith.subf"
	KindMulF          Kind = "arith.mulf"
	KindDivF          Kind = "arith.divf"
	KindCmpI          Kind = "arith.cmpi"
	KindCmpF          Kind = "arith.cmpf"
	KindExtF          Kind = "arith.extf"

	KindGlobal     Kind = "memref.global"
	KindGetGlobal  Kind = "memref.get_global"
	KindElementPtr Kind = "memref.element_ptr"

	KindSeqLoop      Kind = "scf.loop"
	KindCondition    Kind = "scf.condition"
	KindYield        Kind = "scf.yield"
	KindParallelLoop Kind = "scf.parallel"
	KindReduce       Kind = "scf.reduce"
	KindReduceReturn Kind = "scf.reduce.return"
)

// Dialect returns the prefix before the first dot ("tiny", "arith", ...).
func (k Kind) Dialect() string {
	d, _, _ := strings.Cut(string(k), ".")
	return d
}

// IsHighLevel reports whether k belongs to the front-end dialect.
func (k Kind) IsHighLevel() bool { return k.Dialect() == "tiny" }

// IsTerminator reports whether k must close its block.
func (k Kind) IsTerminator() bool {
	s, ok := schemas[k]
	return ok && s.terminator
}

// IsArith reports whether k is a two-operand arithmetic instruction.
func (k Kind) IsArith() bool {
	switch k {
	case KindAddI, KindSubI, KindMulI, KindDivSI, KindAddF, KindSubF, KindMulF, KindDivF:
		return true
	}
	return false
}

// Known reports whether k has a schema.
func (k Kind) Known() bool {
	_, ok := schemas[k]
	return ok
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindOrder))
	out = append(out, kindOrder...)
	return out
}

// ArithOp names the source-level operator of an arithmetic kind, as used by
// the reduction operation list ("add", "sub", "mult", "div").
func ArithOp(k Kind) string {
	switch k {
	case KindAddI, KindAddF:
		return "add"
	case KindSubI, KindSubF:
		return "sub"
	case KindMulI, KindMulF:
		return "mult"
	case KindDivSI, KindDivF:
		return "div"
	}
	return ""
}

// attrTag constrains which Attr implementations an attribute accepts.
type attrTag int

const (
	tagString attrTag = iota
	tagInteger
	tagBool
	tagType
	tagFunctionType
	tagNumeric  // IntegerAttr or FloatAttr
	tagConstant // IntegerAttr, FloatAttr or StringAttr
)

func (t attrTag) accepts(a Attr) bool {
	switch a.(type) {
	case StringAttr:
		return t == tagString || t == tagConstant
	case IntegerAttr:
		return t == tagInteger || t == tagNumeric || t == tagConstant
	case FloatAttr:
		return t == tagNumeric || t == tagConstant
	case BoolAttr:
		return t == tagBool
	case TypeAttr:
		return t == tagType
	case FunctionTypeAttr:
		return t == tagFunctionType
	}
	return false
}

func (t attrTag) String() string {
	switch t {
	case tagString:
		return "string"
	case tagInteger:
		return "integer"
	case tagBool:
		return "bool"
	case tagType:
		return "type"
	case tagFunctionType:
		return "function type"
	case tagNumeric:
		return "integer or float"
	case tagConstant:
		return "integer, float or string"
	}
	return "unknown"
}

type attrSpec struct {
	name string
	tag  attrTag
}

// variadic marks an unconstrained operand or result count.
const variadic = -1

// schema describes the fixed shape of a kind.
type schema struct {
	attrs       []attrSpec
	regions     int
	operands    int // exact count, or variadic
	minOperands int // lower bound when operands is variadic
	results     int // exact count, or variadic
	terminator  bool
	check       func(*Node) error
}

var (
	symAttrs = []attrSpec{
		{"sym_name", tagString},
		{"function_type", tagFunctionType},
		{"sym_visibility", tagString},
	}
	arithInt   = schema{operands: 2, results: 1, check: checkArith(IntegerKind)}
	arithFloat = schema{operands: 2, results: 1, check: checkArith(FloatKind)}
)

// schemas is populated in init; the check functions read it.
var schemas map[Kind]schema

func init() {
	schemas = map[Kind]schema{
		KindModule:   {regions: 1, check: checkChildrenKind(KindFunction)},
		KindFunction: {attrs: []attrSpec{{"fn_name", tagString}, {"args", tagFunctionType}, {"return_var", tagType}}, regions: 1},
		KindAssign:   {attrs: []attrSpec{{"var_name", tagString}}, regions: 1, check: checkSingleExpr(0)},
		KindLoop:     {attrs: []attrSpec{{"variable", tagString}}, regions: 3, check: checkLoopBounds},
		KindVar:      {attrs: []attrSpec{{"variable", tagString}}},
		KindBinaryOp: {attrs: []attrSpec{{"op", tagString}}, regions: 2, check: checkBinaryOperands},
		KindConstant: {attrs: []attrSpec{{"value", tagConstant}}},
		KindReturn:   {},
		KindCall:     {attrs: []attrSpec{{"func", tagString}, {"builtin", tagBool}, {"type", tagType}}, regions: 1},

		KindBuiltinModule: {regions: 1},
		KindFuncDecl:      {attrs: symAttrs, regions: 1, check: checkFuncBody},
		KindExternDecl:    {attrs: symAttrs},
		KindFuncCall:      {attrs: []attrSpec{{"callee", tagString}}, operands: variadic, results: variadic, check: checkAtMostOneResult},
		KindFuncReturn:    {terminator: true},

		KindArithConstant: {attrs: []attrSpec{{"value", tagNumeric}}, results: 1, check: checkConstantType},
		KindAddI:          arithInt,
		KindSubI:          arithInt,
		KindMulI:          arithInt,
		KindDivSI:         arithInt,
		KindAddF:          arithFloat,
		KindSubF:          arithFloat,
		KindMulF:          arithFloat,
		KindDivF:          arithFloat,
		KindCmpI:          {attrs: []attrSpec{{"predicate", tagString}}, operands: 2, results: 1, check: checkCompare},
		KindCmpF:          {attrs: []attrSpec{{"predicate", tagString}}, operands: 2, results: 1, check: checkCompare},
		KindExtF:          {operands: 1, results: 1, check: checkExtF},

		KindGlobal:     {attrs: []attrSpec{{"sym_name", tagString}, {"value", tagString}, {"type", tagType}}},
		KindGetGlobal:  {attrs: []attrSpec{{"name", tagString}}, results: 1},
		KindElementPtr: {operands: 1, results: 1},

		KindSeqLoop:      {regions: 2, operands: variadic, minOperands: 3, results: variadic, check: checkSeqLoop},
		KindCondition:    {operands: variadic, minOperands: 1, terminator: true},
		KindYield:        {operands: variadic, terminator: true},
		KindParallelLoop: {regions: 1, operands: variadic, minOperands: 3, results: variadic, check: checkParallelLoop},
		KindReduce:       {operands: 1, regions: 1, check: checkReduce},
		KindReduceReturn: {operands: 1, terminator: true},
	}
}

var kindOrder = []Kind{
	KindModule, KindFunction, KindAssign, KindLoop, KindVar, KindBinaryOp, KindConstant, KindReturn, KindCall,
	KindBuiltinModule, KindFuncDecl, KindExternDecl, KindFuncCall, KindFuncReturn,
	KindArithConstant, KindAddI, KindSubI, KindMulI, KindDivSI, KindAddF, KindSubF, KindMulF, KindDivF,
	KindCmpI, KindCmpF, KindExtF,
	KindGlobal, KindGetGlobal, KindElementPtr,
	KindSeqLoop, KindCondition, KindYield, KindParallelLoop, KindReduce, KindReduceReturn,
}

package llvmgen

import (
	"fmt"

	lir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/roach88/tinypy/internal/ir"
)

var intPreds = map[string]enum.IPred{
	"eq":  enum.IPredEQ,
	"ne":  enum.IPredNE,
	"slt": enum.IPredSLT,
	"sle": enum.IPredSLE,
	"sgt": enum.IPredSGT,
	"sge": enum.IPredSGE,
	"ult": enum.IPredULT,
	"ule": enum.IPredULE,
	"ugt": enum.IPredUGT,
	"uge": enum.IPredUGE,
}

var floatPreds = map[string]enum.FPred{
	"oeq": enum.FPredOEQ,
	"one": enum.FPredONE,
	"olt": enum.FPredOLT,
	"ole": enum.FPredOLE,
	"ogt": enum.FPredOGT,
	"oge": enum.FPredOGE,
}

// funcGen emits one function body. block is the insertion point.
type funcGen struct {
	*gen
	f      *lir.Func
	block  *lir.Block
	values map[*ir.Value]value.Value
	loops  int
}

func (fg *funcGen) nodes(ns []*ir.Node) error {
	for _, n := range ns {
		if err := fg.node(n); err != nil {
			return err
		}
	}
	return nil
}

// body emits every node of b except its terminator and returns the
// terminator.
func (fg *funcGen) body(b *ir.Block, want ir.Kind) (*ir.Node, error) {
	term := b.Terminator()
	if term == nil || term.Kind != want {
		return nil, emitErr(want, "block does not end with %s", want)
	}
	if err := fg.nodes(b.Nodes[:len(b.Nodes)-1]); err != nil {
		return nil, err
	}
	return term, nil
}

func (fg *funcGen) val(v *ir.Value) (value.Value, error) {
	lv, ok := fg.values[v]
	if !ok {
		return nil, fmt.Errorf("value of type %s used before definition", v.Type)
	}
	return lv, nil
}

func (fg *funcGen) vals(vs []*ir.Value) ([]value.Value, error) {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		lv, err := fg.val(v)
		if err != nil {
			return nil, err
		}
		out[i] = lv
	}
	return out, nil
}

func (fg *funcGen) node(n *ir.Node) error {
	switch n.Kind {
	case ir.KindArithConstant:
		return fg.constant(n)
	case ir.KindAddI, ir.KindSubI, ir.KindMulI, ir.KindDivSI,
		ir.KindAddF, ir.KindSubF, ir.KindMulF, ir.KindDivF:
		return fg.arith(n)
	case ir.KindCmpI, ir.KindCmpF:
		return fg.compare(n)
	case ir.KindExtF:
		return fg.extf(n)
	case ir.KindGetGlobal:
		name := n.StringAttr("name")
		g, ok := fg.globals[name]
		if !ok {
			return emitErr(n.Kind, "unknown global %q", name)
		}
		fg.values[n.Result()] = g
		return nil
	case ir.KindElementPtr:
		return fg.elementPtr(n)
	case ir.KindFuncCall:
		return fg.call(n)
	case ir.KindFuncReturn:
		fg.block.NewRet(nil)
		return nil
	case ir.KindSeqLoop:
		return fg.seqLoop(n)
	case ir.KindParallelLoop:
		return fg.parallelLoop(n)
	default:
		return emitErr(n.Kind, "not supported in function bodies")
	}
}

func (fg *funcGen) constant(n *ir.Node) error {
	t, err := llvmType(n.Result().Type)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	switch a := n.Attrs["value"].(type) {
	case ir.IntegerAttr:
		fg.values[n.Result()] = constant.NewInt(t.(*types.IntType), a.Value)
	case ir.FloatAttr:
		fg.values[n.Result()] = constant.NewFloat(t.(*types.FloatType), a.Value)
	default:
		return emitErr(n.Kind, "unsupported literal %s", n.Attrs["value"])
	}
	return nil
}

func (fg *funcGen) arith(n *ir.Node) error {
	ops, err := fg.vals(n.Operands)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	x, y := ops[0], ops[1]

	var v value.Value
	switch n.Kind {
	case ir.KindAddI:
		v = fg.block.NewAdd(x, y)
	case ir.KindSubI:
		v = fg.block.NewSub(x, y)
	case ir.KindMulI:
		v = fg.block.NewMul(x, y)
	case ir.KindDivSI:
		v = fg.block.NewSDiv(x, y)
	case ir.KindAddF:
		v = fg.block.NewFAdd(x, y)
	case ir.KindSubF:
		v = fg.block.NewFSub(x, y)
	case ir.KindMulF:
		v = fg.block.NewFMul(x, y)
	case ir.KindDivF:
		v = fg.block.NewFDiv(x, y)
	}
	fg.values[n.Result()] = v
	return nil
}

func (fg *funcGen) compare(n *ir.Node) error {
	ops, err := fg.vals(n.Operands)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	pred := n.StringAttr("predicate")

	if n.Kind == ir.KindCmpI {
		p, ok := intPreds[pred]
		if !ok {
			return emitErr(n.Kind, "unknown predicate %q", pred)
		}
		fg.values[n.Result()] = fg.block.NewICmp(p, ops[0], ops[1])
		return nil
	}

	p, ok := floatPreds[pred]
	if !ok {
		return emitErr(n.Kind, "unknown predicate %q", pred)
	}
	fg.values[n.Result()] = fg.block.NewFCmp(p, ops[0], ops[1])
	return nil
}

func (fg *funcGen) extf(n *ir.Node) error {
	x, err := fg.val(n.Operands[0])
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	t, err := llvmType(n.Result().Type)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	fg.values[n.Result()] = fg.block.NewFPExt(x, t)
	return nil
}

func (fg *funcGen) elementPtr(n *ir.Node) error {
	src, err := fg.val(n.Operands[0])
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	g, ok := src.(*lir.Global)
	if !ok {
		return emitErr(n.Kind, "operand is not a global")
	}
	zero := constant.NewInt(types.I32, 0)
	fg.values[n.Result()] = fg.block.NewGetElementPtr(g.ContentType, g, zero, zero)
	return nil
}

func (fg *funcGen) call(n *ir.Node) error {
	callee := n.StringAttr("callee")
	f, ok := fg.funcs[callee]
	if !ok {
		return emitErr(n.Kind, "call to undeclared function %q", callee)
	}
	args, err := fg.vals(n.Operands)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}

	inst := fg.block.NewCall(f, args...)
	if len(n.Results) == 1 {
		if f.Sig.RetType.Equal(types.Void) {
			return emitErr(n.Kind, "call to %q uses the result of a void function", callee)
		}
		fg.values[n.Result()] = inst
	}
	return nil
}

// appendBlock attaches a block created with lir.NewBlock to the function,
// so exit blocks land after the loop body in layout order.
func (fg *funcGen) appendBlock(b *lir.Block) {
	b.Parent = fg.f
	fg.f.Blocks = append(fg.f.Blocks, b)
}

// seqLoop emits scf.loop:
//
//	pre:    br header
//	header: phi per carried value; condition region; condbr body, exit
//	body:   body region; br header
//	exit:   loop results are the values the condition forwarded
func (fg *funcGen) seqLoop(n *ir.Node) error {
	id := fg.loops
	fg.loops++

	ops, err := fg.vals(n.Operands)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	start := append([]value.Value{ops[0]}, ops[3:]...)

	pre := fg.block
	header := fg.f.NewBlock(fmt.Sprintf("loop%d.header", id))
	body := fg.f.NewBlock(fmt.Sprintf("loop%d.body", id))
	exit := lir.NewBlock(fmt.Sprintf("loop%d.exit", id))
	pre.NewBr(header)

	cond := n.Body(0)
	if len(cond.Params) != len(start) {
		return emitErr(n.Kind, "condition block has %d params, want %d", len(cond.Params), len(start))
	}
	phis := make([]*lir.InstPhi, len(start))
	for i, p := range cond.Params {
		phis[i] = header.NewPhi(lir.NewIncoming(start[i], pre))
		fg.values[p] = phis[i]
	}

	fg.block = header
	term, err := fg.body(cond, ir.KindCondition)
	if err != nil {
		return err
	}
	fwd, err := fg.vals(term.Operands)
	if err != nil {
		return emitErr(term.Kind, "%v", err)
	}
	fg.block.NewCondBr(fwd[0], body, exit)
	fwd = fwd[1:]

	blk := n.Body(1)
	for i, p := range blk.Params {
		fg.values[p] = fwd[i]
	}
	fg.block = body
	yield, err := fg.body(blk, ir.KindYield)
	if err != nil {
		return err
	}
	next, err := fg.vals(yield.Operands)
	if err != nil {
		return emitErr(yield.Kind, "%v", err)
	}
	latch := fg.block
	latch.NewBr(header)
	for i, phi := range phis {
		phi.Incs = append(phi.Incs, lir.NewIncoming(next[i], latch))
	}

	for i, r := range n.Results {
		fg.values[r] = fwd[i]
	}
	fg.appendBlock(exit)
	fg.block = exit
	return nil
}

// parallelLoop emits scf.parallel as a sequential loop. Each scf.reduce
// clause folds its operand into an accumulator phi.
func (fg *funcGen) parallelLoop(n *ir.Node) error {
	id := fg.loops
	fg.loops++

	ops, err := fg.vals(n.Operands)
	if err != nil {
		return emitErr(n.Kind, "%v", err)
	}
	blk := n.Body(0)
	params := len(blk.Params)
	start := append([]value.Value{ops[0]}, ops[3:]...)
	if len(start) < params {
		return emitErr(n.Kind, "%d operands for %d block params", len(ops), params)
	}
	ub := ops[1]

	pre := fg.block
	header := fg.f.NewBlock(fmt.Sprintf("loop%d.header", id))
	body := fg.f.NewBlock(fmt.Sprintf("loop%d.body", id))
	exit := lir.NewBlock(fmt.Sprintf("loop%d.exit", id))
	pre.NewBr(header)

	// Carried phis first, then one accumulator per reduction.
	phis := make([]*lir.InstPhi, len(start))
	for i := range start {
		phis[i] = header.NewPhi(lir.NewIncoming(start[i], pre))
	}
	cmp := header.NewICmp(enum.IPredSLT, phis[0], ub)
	header.NewCondBr(cmp, body, exit)

	for i, p := range blk.Params {
		fg.values[p] = phis[i]
	}
	fg.block = body

	accs := phis[params:]
	folded := make([]value.Value, 0, len(accs))
	for _, child := range blk.Nodes[:len(blk.Nodes)-1] {
		if child.Kind != ir.KindReduce {
			if err := fg.node(child); err != nil {
				return err
			}
			continue
		}
		r := len(folded)
		if r >= len(accs) {
			return emitErr(child.Kind, "more reduce clauses than accumulators")
		}
		v, err := fg.reduce(child, accs[r])
		if err != nil {
			return err
		}
		folded = append(folded, v)
	}
	if len(folded) != len(accs) {
		return emitErr(n.Kind, "%d reduce clauses for %d accumulators", len(folded), len(accs))
	}

	yield := blk.Terminator()
	if yield == nil || yield.Kind != ir.KindYield {
		return emitErr(n.Kind, "body does not end with %s", ir.KindYield)
	}
	next, err := fg.vals(yield.Operands)
	if err != nil {
		return emitErr(yield.Kind, "%v", err)
	}
	next = append(next, folded...)

	latch := fg.block
	latch.NewBr(header)
	for i, phi := range phis {
		phi.Incs = append(phi.Incs, lir.NewIncoming(next[i], latch))
	}

	for i, r := range n.Results {
		fg.values[r] = phis[i]
	}
	fg.appendBlock(exit)
	fg.block = exit
	return nil
}

// reduce emits one clause body with acc bound to the running accumulator
// and returns the folded value.
func (fg *funcGen) reduce(n *ir.Node, acc value.Value) (value.Value, error) {
	x, err := fg.val(n.Operands[0])
	if err != nil {
		return nil, emitErr(n.Kind, "%v", err)
	}
	clause := n.Body(0)
	fg.values[clause.Params[0]] = acc
	fg.values[clause.Params[1]] = x

	ret, err := fg.body(clause, ir.KindReduceReturn)
	if err != nil {
		return nil, err
	}
	v, err := fg.val(ret.Operands[0])
	if err != nil {
		return nil, emitErr(ret.Kind, "%v", err)
	}
	return v, nil
}

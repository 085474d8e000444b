package rewrite

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tinypy/internal/ir"
)

// sumProgram is acc = 0; k = 3; for i in range(0, 10): acc = acc + k; print(acc)
func sumProgram(t *testing.T) *ir.Node {
	return lowered(t,
		set(t, "acc", intc(t, 0)),
		set(t, "k", intc(t, 3)),
		forRange(t, "i", 0, 10,
			set(t, "acc", add(t, ref(t, "acc"), ref(t, "k"))),
		),
		printCall(t, ref(t, "acc")),
	)
}

func TestReductionExtractsAccumulator(t *testing.T) {
	mod := sumProgram(t)
	loop := findAll(mod, ir.KindSeqLoop)[0]
	accOut := loop.Results[1]

	res, err := reductionEngine(PolicySkip).Apply(mod)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changes)
	require.NoError(t, ir.VerifyTree(mod))

	assert.Empty(t, findAll(mod, ir.KindSeqLoop))
	pars := findAll(mod, ir.KindParallelLoop)
	require.Len(t, pars, 1)
	par := pars[0]

	// acc left the carried set and the continuation.
	body := par.Body(0)
	assert.Len(t, body.Params, 1)
	assert.Len(t, body.Terminator().Operands, 1)

	// One reduction clause keyed by k.
	reds := findAll(par, ir.KindReduce)
	require.Len(t, reds, 1)
	k := reds[0].Operands[0]
	require.NotNil(t, k.Def())
	assert.Equal(t, ir.KindArithConstant, k.Def().Kind)
	assert.Equal(t, ir.IntegerAttr{Value: 3, Type: ir.I32}, k.Def().Attrs["value"])

	// Code after the loop still reads the same value, now defined by the
	// parallel loop.
	assert.Same(t, par, accOut.Def())
	call := findAll(mod, ir.KindFuncCall)[0]
	assert.Same(t, accOut, call.Operands[1])

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "sum_parallel", []byte(ir.String(mod)))
}

func TestReductionSkipsCarriedOperands(t *testing.T) {
	mod := lowered(t,
		set(t, "acc", intc(t, 0)),
		set(t, "other", intc(t, 1)),
		forRange(t, "i", 0, 4,
			set(t, "other", add(t, ref(t, "other"), ref(t, "i"))),
			set(t, "acc", add(t, ref(t, "acc"), ref(t, "other"))),
		),
	)
	before := ir.String(mod)

	res, err := reductionEngine(PolicySkip).Apply(mod)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changes)
	assert.Equal(t, before, ir.String(mod))
}

func TestReductionSkipsAccumulatorWithOtherUses(t *testing.T) {
	mod := lowered(t,
		set(t, "acc", intc(t, 0)),
		set(t, "k", intc(t, 2)),
		forRange(t, "i", 0, 4,
			printCall(t, ref(t, "acc")),
			set(t, "acc", add(t, ref(t, "acc"), ref(t, "k"))),
		),
	)

	res, err := reductionEngine(PolicySkip).Apply(mod)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changes)
	assert.Len(t, findAll(mod, ir.KindSeqLoop), 1)
}

func TestReductionKeepsOtherCarriedVariables(t *testing.T) {
	mod := lowered(t,
		set(t, "acc", intc(t, 1)),
		set(t, "n", intc(t, 0)),
		set(t, "k", intc(t, 2)),
		forRange(t, "i", 0, 4,
			set(t, "n", add(t, ref(t, "n"), ref(t, "i"))),
			set(t, "acc", must(ir.NewBinaryOp("mult", ref(t, "acc"), ref(t, "k")))),
		),
	)

	_, err := reductionEngine(PolicySkip).Apply(mod)
	require.NoError(t, err)
	require.NoError(t, ir.VerifyTree(mod))

	par := findAll(mod, ir.KindParallelLoop)[0]
	// [iv, n] stay carried; acc is reduced.
	assert.Len(t, par.Body(0).Params, 2)
	assert.Len(t, par.Results, 3)
	assert.Len(t, par.Operands, 5)

	reds := findAll(par, ir.KindReduce)
	require.Len(t, reds, 1)
	assert.Equal(t, ir.KindMulI, reds[0].Body(0).Nodes[0].Kind)
}

func TestReductionOperatorFilter(t *testing.T) {
	mod := sumProgram(t)
	rule := NewReductionRule(PolicySkip, []string{"mult"}, discard())

	res, err := NewEngine([]Rule{rule}, WithLogger(discard())).Apply(mod)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changes)
}

func TestReductionPreservesOperandOrder(t *testing.T) {
	mod := lowered(t,
		set(t, "acc", intc(t, 0)),
		set(t, "k", intc(t, 3)),
		forRange(t, "i", 0, 10,
			set(t, "acc", add(t, ref(t, "k"), ref(t, "acc"))),
		),
	)

	_, err := reductionEngine(PolicySkip).Apply(mod)
	require.NoError(t, err)

	red := findAll(mod, ir.KindReduce)[0]
	blk := red.Body(0)
	op := blk.Nodes[0]
	assert.Same(t, blk.Params[1], op.Operands[0])
	assert.Same(t, blk.Params[0], op.Operands[1])
}

func TestReductionStrictPolicy(t *testing.T) {
	body := func() *ir.Node {
		return lowered(t,
			set(t, "tmp", intc(t, 0)),
			set(t, "k", intc(t, 3)),
			forRange(t, "i", 0, 4,
				set(t, "tmp", add(t, ref(t, "k"), intc(t, 1))),
			),
		)
	}

	_, err := reductionEngine(PolicyStrict).Apply(body())
	require.Error(t, err)
	assert.True(t, IsAmbiguousReduction(err))

	res, err := reductionEngine(PolicySkip).Apply(body())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changes)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParsePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("eager")
	assert.Error(t, err)
}

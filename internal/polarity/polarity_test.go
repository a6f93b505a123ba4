package polarity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/polarity"
)

func newModel(vars ...*datamodel.Variable) *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("main")}
	for _, v := range vars {
		m.AddVariable(v)
	}
	return m
}

func edgeOf(t *testing.T, m *datamodel.Model, target, from string) polarity.Sign {
	t.Helper()
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)
	expr, ok := res.Exprs[ident.Canonical(target)]
	require.True(t, ok)
	return polarity.StaticEdge(m, expr, ident.Canonical(from))
}

func TestStaticEdgeAddition(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("a"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("b"), Kind: datamodel.AuxiliaryKind, Equation: "2"},
		&datamodel.Variable{Name: ident.New("total"), Kind: datamodel.AuxiliaryKind, Equation: "a + b"},
	)
	require.Equal(t, polarity.Positive, edgeOf(t, m, "total", "a"))
	require.Equal(t, polarity.Positive, edgeOf(t, m, "total", "b"))
}

func TestStaticEdgeSubtractionFlipsRightOperand(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("inflow"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("outflow"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("net"), Kind: datamodel.AuxiliaryKind, Equation: "inflow - outflow"},
	)
	require.Equal(t, polarity.Positive, edgeOf(t, m, "net", "inflow"))
	require.Equal(t, polarity.Negative, edgeOf(t, m, "net", "outflow"))
}

func TestStaticEdgeMultiplicationByNegativeConstantFlips(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("level"), Kind: datamodel.AuxiliaryKind, Equation: "10"},
		&datamodel.Variable{Name: ident.New("drag"), Kind: datamodel.AuxiliaryKind, Equation: "level * -0.1"},
	)
	require.Equal(t, polarity.Negative, edgeOf(t, m, "drag", "level"))
}

func TestStaticEdgeDivisionDenominatorFlips(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("backlog"), Kind: datamodel.AuxiliaryKind, Equation: "100"},
		&datamodel.Variable{Name: ident.New("time_to_clear"), Kind: datamodel.AuxiliaryKind, Equation: "10"},
		&datamodel.Variable{Name: ident.New("rate"), Kind: datamodel.AuxiliaryKind, Equation: "backlog / time_to_clear"},
	)
	require.Equal(t, polarity.Positive, edgeOf(t, m, "rate", "backlog"))
	require.Equal(t, polarity.Negative, edgeOf(t, m, "rate", "time_to_clear"))
}

func TestStaticEdgeIfThenElseAgreeingBranches(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("x"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("y"), Kind: datamodel.AuxiliaryKind, Equation: "IF x > 0 THEN x ELSE x * 2"},
	)
	require.Equal(t, polarity.Positive, edgeOf(t, m, "y", "x"))
}

func TestStaticEdgeIfConditionReferenceIsUnknown(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("x"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("flag"), Kind: datamodel.AuxiliaryKind, Equation: "IF x > 0 THEN 1 ELSE 2"},
	)
	require.Equal(t, polarity.Unknown, edgeOf(t, m, "flag", "x"))
}

func TestStaticEdgeUnreferencedVariableIsUnknown(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("a"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("b"), Kind: datamodel.AuxiliaryKind, Equation: "2"},
	)
	require.Equal(t, polarity.Unknown, edgeOf(t, m, "b", "a"))
}

func TestStaticEdgeGraphicalFunctionMonotonicity(t *testing.T) {
	increasing := &datamodel.GraphicalFunction{Y: []float64{0, 1, 4}, XScale: [2]float64{0, 2}, YScale: [2]float64{0, 4}}
	decreasing := &datamodel.GraphicalFunction{Y: []float64{4, 1, 0}, XScale: [2]float64{0, 2}, YScale: [2]float64{0, 4}}

	mInc := newModel(
		&datamodel.Variable{Name: ident.New("input"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("effect"), Kind: datamodel.AuxiliaryKind, Equation: "input", GF: increasing},
	)
	require.Equal(t, polarity.Positive, edgeOf(t, mInc, "effect", "input"))

	mDec := newModel(
		&datamodel.Variable{Name: ident.New("input"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("effect"), Kind: datamodel.AuxiliaryKind, Equation: "input", GF: decreasing},
	)
	require.Equal(t, polarity.Negative, edgeOf(t, mDec, "effect", "input"))
}

func TestFlowToStock(t *testing.T) {
	require.Equal(t, polarity.Positive, polarity.FlowToStock(true))
	require.Equal(t, polarity.Negative, polarity.FlowToStock(false))
}

func TestStructuralLoopAllPositiveIsReinforcing(t *testing.T) {
	require.Equal(t, polarity.Reinforcing, polarity.StructuralLoop([]polarity.Sign{polarity.Positive, polarity.Positive}))
}

func TestStructuralLoopOneNegativeIsBalancing(t *testing.T) {
	require.Equal(t, polarity.Balancing, polarity.StructuralLoop([]polarity.Sign{polarity.Positive, polarity.Negative}))
}

func TestStructuralLoopAnyUnknownIsUndetermined(t *testing.T) {
	require.Equal(t, polarity.Undetermined, polarity.StructuralLoop([]polarity.Sign{polarity.Positive, polarity.Unknown}))
}

func TestStructuralLoopEmptyIsNone(t *testing.T) {
	require.Equal(t, polarity.None, polarity.StructuralLoop(nil))
}

func TestRuntimeClassification(t *testing.T) {
	require.Equal(t, polarity.Reinforcing, polarity.RuntimeClassification([]float64{1, 2, 0, 3}))
	require.Equal(t, polarity.Balancing, polarity.RuntimeClassification([]float64{-1, -2}))
	require.Equal(t, polarity.Undetermined, polarity.RuntimeClassification([]float64{1, -1}))
	require.Equal(t, polarity.None, polarity.RuntimeClassification([]float64{0, 0}))
}

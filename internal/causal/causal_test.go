package causal_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/causal"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/ident"
)

func newModel(vars ...*datamodel.Variable) *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("main")}
	for _, v := range vars {
		m.AddVariable(v)
	}
	return m
}

func TestBuildStockGetsEdgeFromInflowAndOutflow(t *testing.T) {
	m := newModel(
		&datamodel.Variable{
			Name: ident.New("level"), Kind: datamodel.StockKind,
			InitialEquation: "100", Inflows: []ident.Canonical{"fill"}, Outflows: []ident.Canonical{"drain"},
		},
		&datamodel.Variable{Name: ident.New("fill"), Kind: datamodel.FlowKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("drain"), Kind: datamodel.FlowKind, Equation: "2"},
	)
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)

	g := causal.Build(m, res, nil)
	require.Contains(t, g.Out["fill"], ident.Canonical("level"))
	require.Contains(t, g.Out["drain"], ident.Canonical("level"))
}

func TestBuildAuxiliaryGetsEdgesFromEveryReferencedVariable(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("a"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("b"), Kind: datamodel.AuxiliaryKind, Equation: "2"},
		&datamodel.Variable{Name: ident.New("total"), Kind: datamodel.AuxiliaryKind, Equation: "a + b"},
	)
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)

	g := causal.Build(m, res, nil)
	require.ElementsMatch(t, []ident.Canonical{"total"}, g.Out["a"])
	require.ElementsMatch(t, []ident.Canonical{"total"}, g.Out["b"])
}

func TestBuildNoEdgeFromStockInitialEquationDependency(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("seed"), Kind: datamodel.AuxiliaryKind, Equation: "100"},
		&datamodel.Variable{
			Name: ident.New("level"), Kind: datamodel.StockKind,
			InitialEquation: "seed", Outflows: []ident.Canonical{"drain"},
		},
		&datamodel.Variable{Name: ident.New("drain"), Kind: datamodel.FlowKind, Equation: "level / 10"},
	)
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)

	g := causal.Build(m, res, nil)
	require.NotContains(t, g.Out["seed"], ident.Canonical("level"))
}

func TestBuildExplicitModuleInstanceIsClassifiedDynamic(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("raw"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{
			Name: ident.New("smoother"), Kind: datamodel.ModuleKind, ModelName: "smth1",
			Inputs: []datamodel.ModuleInput{{Dst: ident.New("input"), Src: "raw"}},
		},
		&datamodel.Variable{Name: ident.New("smoothed"), Kind: datamodel.AuxiliaryKind, Equation: "smoother·output"},
	)
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)

	g := causal.Build(m, res, nil)
	require.Equal(t, causal.Dynamic, g.Classes["smoother"])
	require.Contains(t, g.Out["raw"], ident.Canonical("smoother"))
	require.Contains(t, g.Out["smoother"], ident.Canonical("smoothed"))

	sub, ok := g.Sub["smoother"]
	require.True(t, ok)
	require.NotNil(t, sub)
	require.Contains(t, sub.Nodes, ident.Canonical("level"))
}

func TestBuildInlineStatefulBuiltinIsWalkedAsInstance(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("raw_signal"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("smoothed"), Kind: datamodel.AuxiliaryKind, Equation: "SMTH1(raw_signal, 5)"},
	)
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)
	require.Len(t, res.Instances, 1)

	var instanceName ident.Canonical
	for name := range res.Instances {
		instanceName = name
	}

	g := causal.Build(m, res, nil)
	require.Contains(t, g.Nodes, instanceName)
	require.Equal(t, causal.Dynamic, g.Classes[instanceName])
	require.Contains(t, g.Out["raw_signal"], instanceName)
	require.Contains(t, g.Out[instanceName], ident.Canonical("smoothed"))
}

func TestBuildPassthroughModuleHasNoSubGraph(t *testing.T) {
	m := newModel(
		&datamodel.Variable{Name: ident.New("x"), Kind: datamodel.AuxiliaryKind, Equation: "1"},
		&datamodel.Variable{Name: ident.New("result"), Kind: datamodel.AuxiliaryKind, Equation: "ABS(x)"},
	)
	res, rep := elaborate.Model(m, nil)
	require.Nil(t, rep)

	g := causal.Build(m, res, nil)
	// ABS is a pure (non-stateful) builtin: it lowers to a Call2, never an
	// Instance, so no module vertex exists for it at all.
	require.Empty(t, res.Instances)
	require.Contains(t, g.Out["x"], ident.Canonical("result"))
}

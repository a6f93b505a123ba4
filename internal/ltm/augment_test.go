package ltm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/ltm"
)

func reinforcingModel() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("level"), Kind: datamodel.StockKind,
		InitialEquation: "100", Inflows: []ident.Canonical{"growth"},
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("growth"), Kind: datamodel.FlowKind, Equation: "level * 0.1",
	})
	return m
}

func syntheticNames(m *datamodel.Model) []ident.Canonical {
	var out []ident.Canonical
	for _, v := range m.Variables {
		if ident.IsSynthetic(v.Name.Canonical) {
			out = append(out, v.Name.Canonical)
		}
	}
	return out
}

func TestAugmentAddsLinkLoopAndRelativeScoreVariables(t *testing.T) {
	p := datamodel.NewProject()
	p.AddModel(reinforcingModel())

	out, rep := ltm.Augment(p, "main")
	require.Nil(t, rep)
	require.NotNil(t, out)

	original, _ := p.Model("main")
	require.Len(t, syntheticNames(original), 0, "Augment must not mutate its input project")

	augmented, ok := out.Model("main")
	require.True(t, ok)
	synthetic := syntheticNames(augmented)
	// one loop (level -> growth -> level), two edges => two link scores,
	// plus one loop score and one relative loop score.
	require.Len(t, synthetic, 4)
	for _, v := range augmented.Variables {
		if !ident.IsSynthetic(v.Name.Canonical) {
			continue
		}
		require.Equal(t, datamodel.AuxiliaryKind, v.Kind)
		require.NotEmpty(t, v.Equation)
	}
}

func TestAugmentWithNoLoopsReturnsClonedProjectUnchanged(t *testing.T) {
	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{Name: ident.New("a"), Kind: datamodel.AuxiliaryKind, Equation: "1"})
	m.AddVariable(&datamodel.Variable{Name: ident.New("b"), Kind: datamodel.AuxiliaryKind, Equation: "a"})
	p := datamodel.NewProject()
	p.AddModel(m)

	out, rep := ltm.Augment(p, "main")
	require.Nil(t, rep)
	augmented, _ := out.Model("main")
	require.Len(t, augmented.Variables, 2)
}

func TestAugmentRejectsUnknownModel(t *testing.T) {
	p := datamodel.NewProject()
	p.AddModel(reinforcingModel())

	_, rep := ltm.Augment(p, "does not exist")
	require.NotNil(t, rep)
	require.Equal(t, "MDL002", rep.Code)
}

func TestAugmentRejectsArrays(t *testing.T) {
	m := reinforcingModel()
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("widgets"), Kind: datamodel.AuxiliaryKind,
		Equation: "1", Dimensions: []ident.Canonical{"size"},
	})
	p := datamodel.NewProject()
	p.AddModel(m)

	_, rep := ltm.Augment(p, "main")
	require.NotNil(t, rep)
	require.Equal(t, "LTM001", rep.Code)
}

func TestAugmentRejectsRK4(t *testing.T) {
	p := datamodel.NewProject()
	p.AddModel(reinforcingModel())
	p.SimSpecs.Method = datamodel.RK4

	_, rep := ltm.Augment(p, "main")
	require.NotNil(t, rep)
	require.Equal(t, "LTM003", rep.Code)
}

func TestAugmentRejectsInfrastructureSubject(t *testing.T) {
	p := datamodel.NewProject()
	p.AddModel(reinforcingModel())

	_, rep := ltm.Augment(p, "previous")
	require.NotNil(t, rep)
	require.Equal(t, "LTM002", rep.Code)
}

package ltm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/ltm"
)

func TestAugmentAllLinksInstrumentsEveryEdgeNotJustLoopEdges(t *testing.T) {
	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("level"), Kind: datamodel.StockKind,
		InitialEquation: "100", Inflows: []ident.Canonical{"growth"},
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("growth"), Kind: datamodel.FlowKind, Equation: "level * rate",
	})
	// rate -> growth is a causal edge that never closes a loop, so
	// Augment would never instrument it but AugmentAllLinks must.
	m.AddVariable(&datamodel.Variable{Name: ident.New("rate"), Kind: datamodel.AuxiliaryKind, Equation: "0.1"})

	p := datamodel.NewProject()
	p.AddModel(m)

	out, rep := ltm.AugmentAllLinks(p, "main")
	require.Nil(t, rep)

	original, _ := p.Model("main")
	require.Len(t, syntheticNames(original), 0, "AugmentAllLinks must not mutate its input project")

	augmented, ok := out.Model("main")
	require.True(t, ok)
	synthetic := syntheticNames(augmented)
	// level->growth, growth->level, rate->growth: three edges, no loop
	// or relative-loop scores since AugmentAllLinks never enumerates loops.
	require.Len(t, synthetic, 3)
	for _, name := range synthetic {
		require.Contains(t, string(name), string(ident.Arrow))
	}
}

func TestAugmentAllLinksRejectsUnknownModel(t *testing.T) {
	p := datamodel.NewProject()
	_, rep := ltm.AugmentAllLinks(p, "does not exist")
	require.NotNil(t, rep)
	require.Equal(t, "MDL002", rep.Code)
}

func TestAugmentAllLinksRejectsArrays(t *testing.T) {
	m := reinforcingModel()
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("widgets"), Kind: datamodel.AuxiliaryKind,
		Equation: "1", Dimensions: []ident.Canonical{"size"},
	})
	p := datamodel.NewProject()
	p.AddModel(m)

	_, rep := ltm.AugmentAllLinks(p, "main")
	require.NotNil(t, rep)
	require.Equal(t, "LTM001", rep.Code)
}

func TestAugmentAllLinksRejectsInfrastructureSubject(t *testing.T) {
	p := datamodel.NewProject()
	p.AddModel(reinforcingModel())

	_, rep := ltm.AugmentAllLinks(p, "previous")
	require.NotNil(t, rep)
	require.Equal(t, "LTM002", rep.Code)
}

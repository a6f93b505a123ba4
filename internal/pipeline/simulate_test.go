package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/pipeline"
	"github.com/simlin-go/core/internal/vm"
)

func reinforcingProject() *datamodel.Project {
	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("level"), Kind: datamodel.StockKind,
		InitialEquation: "100", Inflows: []ident.Canonical{"growth"},
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("growth"), Kind: datamodel.FlowKind, Equation: "level * 0.1",
	})
	p := datamodel.NewProject()
	p.SimSpecs = datamodel.SimSpecs{Start: 0, Stop: 10, Dt: 0.25, Method: datamodel.Euler}
	p.AddModel(m)
	return p
}

func syntheticSlots(s *vm.Sim) []ident.Canonical {
	var out []ident.Canonical
	for name := range s.Compiled.Layout.Slots {
		if ident.IsSynthetic(name) {
			out = append(out, name)
		}
	}
	return out
}

func TestSimulateRunsWithoutLTM(t *testing.T) {
	p := reinforcingProject()
	s, rep := pipeline.Simulate(p, "main", nil, false)
	require.Nil(t, rep)

	s.RunToEnd()
	series, ok := s.GetSeries("level")
	require.True(t, ok)
	require.Greater(t, series[len(series)-1], series[0])

	require.Len(t, syntheticSlots(s), 0, "no LTM instrumentation requested, no synthetic series expected")
}

func TestSimulateWithLTMExposesLinkScores(t *testing.T) {
	p := reinforcingProject()
	s, rep := pipeline.Simulate(p, "main", nil, true)
	require.Nil(t, rep)
	s.RunToEnd()

	require.NotEmpty(t, syntheticSlots(s), "enableLTM should have added synthetic link/loop-score variables")
}

func TestSimulateForDiscoveryInstrumentsEveryEdge(t *testing.T) {
	p := reinforcingProject()
	s, rep := pipeline.SimulateForDiscovery(p, "main", nil)
	require.Nil(t, rep)
	s.RunToEnd()

	require.Len(t, syntheticSlots(s), 2, "two edges in the level<->growth loop, each gets one link-score var")
}

func TestSimulateRejectsUnknownModel(t *testing.T) {
	p := reinforcingProject()
	_, rep := pipeline.Simulate(p, "nope", nil, false)
	require.NotNil(t, rep)
	require.Equal(t, "MDL002", rep.Code)
}

func TestWithLTMAllLinksMatchesLTMPackage(t *testing.T) {
	p := reinforcingProject()
	out, rep := pipeline.WithLTMAllLinks(p, "main")
	require.Nil(t, rep)
	m, ok := out.Model("main")
	require.True(t, ok)
	require.Len(t, m.Variables, 4, "2 original + 2 synthetic link scores")
}

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/pipeline"
)

func TestToRunFindsReinforcingLoop(t *testing.T) {
	p := reinforcingProject()
	s, rep := pipeline.SimulateForDiscovery(p, "main", nil)
	require.Nil(t, rep)
	s.RunToEnd()

	m, _ := p.Model("main")
	run := pipeline.ToRun(s, m)

	require.NotEmpty(t, run.Time)
	require.Contains(t, run.Series, ident.New("level").Canonical)
	require.Contains(t, run.Series, ident.New("growth").Canonical)
	for name := range run.Series {
		require.False(t, ident.IsSynthetic(name), "Series must exclude synthetic link-score variables")
	}

	require.Len(t, run.Loops, 1)
	require.NotEmpty(t, run.DominantPeriods)
	require.Equal(t, run.Loops[0].ID, run.DominantPeriods[0].LoopID)
}

func TestToRunWithoutDiscoveryInstrumentationFindsNoLoops(t *testing.T) {
	p := reinforcingProject()
	s, rep := pipeline.Simulate(p, "main", nil, false)
	require.Nil(t, rep)
	s.RunToEnd()

	m, _ := p.Model("main")
	run := pipeline.ToRun(s, m)
	require.Empty(t, run.Loops)
	require.Empty(t, run.DominantPeriods)
}

func TestDiscoverLoopsMatchesToRun(t *testing.T) {
	p := reinforcingProject()
	s, rep := pipeline.SimulateForDiscovery(p, "main", nil)
	require.Nil(t, rep)
	s.RunToEnd()

	results := make(map[string][]float64)
	for _, name := range s.Compiled.Layout.Order {
		vals, _ := s.GetSeries(name)
		results[string(name)] = vals
	}

	found := pipeline.DiscoverLoops(results, []ident.Canonical{ident.New("level").Canonical})
	require.Len(t, found, 1)
}

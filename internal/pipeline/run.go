package pipeline

import (
	"math"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/ltm"
	"github.com/simlin-go/core/internal/vm"
)

// DominantPeriod is one contiguous stretch of save-steps in which a single
// loop's |score| exceeds every other loop's (spec.md §6 "run = sim.to_run()
// -> yields time series + loops + dominant periods").
type DominantPeriod struct {
	LoopID               string
	StartIndex, EndIndex int // inclusive indices into Run.Time
	Start, End           float64
}

// Run is a completed discovery-mode simulation: its recorded series (link
// scores excluded — spec.md §9's synthetic-variable namespace is an
// implementation detail, not part of a run's reported output), the loops
// DiscoverLoops found in it, and the dominant-loop timeline derived from
// their scores.
type Run struct {
	Time            []float64
	Series          map[ident.Canonical][]float64
	Loops           []ltm.DiscoveredLoop
	DominantPeriods []DominantPeriod
}

// ToRun builds a Run from a Sim that was compiled via
// SimulateForDiscovery against model (spec.md §6 "sim.to_run()"). Passing
// a Sim compiled without all-links instrumentation just yields a Run with
// no loops: DiscoverLoops finds nothing without link-score series to walk.
func ToRun(s *vm.Sim, model *datamodel.Model) *Run {
	resultsForDiscovery := make(map[string][]float64, len(s.Compiled.Layout.Order))
	series := make(map[ident.Canonical][]float64, len(s.Compiled.Layout.Order))
	for _, name := range s.Compiled.Layout.Order {
		vals, _ := s.GetSeries(name)
		resultsForDiscovery[string(name)] = vals
		if !ident.IsSynthetic(name) {
			series[name] = vals
		}
	}

	stocks := stockNames(model)
	found := ltm.Discover(resultsForDiscovery, stocks)
	times := s.GetTime()
	return &Run{
		Time:            times,
		Series:          series,
		Loops:           found,
		DominantPeriods: computeDominantPeriods(times, found),
	}
}

// DiscoverLoops exposes internal/ltm's discovery search directly (spec.md
// §6 "discover_loops(results) -> [FoundLoop]"), for callers that already
// have a raw results table rather than a live Sim.
func DiscoverLoops(results map[string][]float64, stocks []ident.Canonical) []ltm.DiscoveredLoop {
	return ltm.Discover(results, stocks)
}

func stockNames(m *datamodel.Model) []ident.Canonical {
	var out []ident.Canonical
	for _, v := range m.Variables {
		if v.Kind == datamodel.StockKind {
			out = append(out, v.Name.Canonical)
		}
	}
	return out
}

// computeDominantPeriods walks each save-step's set of loop scores,
// picking whichever loop has the largest |score| at that step, and
// collapses consecutive steps with the same dominant loop into one
// DominantPeriod. A step where every loop scores zero (or no loop
// reaches it, e.g. before the cycle first activates) has no dominant loop
// and falls outside any period.
func computeDominantPeriods(times []float64, found []ltm.DiscoveredLoop) []DominantPeriod {
	n := len(times)
	dominant := make([]string, n)
	for i := 0; i < n; i++ {
		best := ""
		bestAbs := 0.0
		for _, l := range found {
			if i >= len(l.Scores) {
				continue
			}
			v := math.Abs(l.Scores[i])
			if v > bestAbs {
				bestAbs = v
				best = l.ID
			}
		}
		dominant[i] = best
	}

	var periods []DominantPeriod
	for i := 0; i < n; {
		id := dominant[i]
		j := i
		for j+1 < n && dominant[j+1] == id {
			j++
		}
		if id != "" {
			periods = append(periods, DominantPeriod{
				LoopID: id, StartIndex: i, EndIndex: j, Start: times[i], End: times[j],
			})
		}
		i = j + 1
	}
	return periods
}

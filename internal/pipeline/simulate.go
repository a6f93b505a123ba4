package pipeline

import (
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/ltm"
	"github.com/simlin-go/core/internal/vm"
)

// WithLTM returns a copy of p whose modelName model carries the exhaustive
// link/loop/relative-loop-score instrumentation of spec.md §4.9 (spec.md
// §6 "project.with_ltm() -> Project | LtmError").
func WithLTM(p *datamodel.Project, modelName ident.Canonical) (*datamodel.Project, *errors.Report) {
	return ltm.Augment(p, modelName)
}

// WithLTMAllLinks returns a copy of p whose modelName model carries a
// link-score variable for every causal edge, the discovery-mode
// instrumentation spec.md §6 names "project.with_ltm_all_links()". Unlike
// WithLTM it never presupposes which edges close a loop — DiscoverLoops
// determines that afterward from the resulting run.
func WithLTMAllLinks(p *datamodel.Project, modelName ident.Canonical) (*datamodel.Project, *errors.Report) {
	return ltm.AugmentAllLinks(p, modelName)
}

// Simulate compiles modelName and returns a freshly reset Sim ready to
// run (spec.md §6 "model.simulate(overrides?, enable_ltm?) -> Sim"). When
// enableLTM is set, p is augmented with exhaustive LTM instrumentation
// before compiling, so the returned Sim's series already include every
// link/loop/relative-loop-score variable spec.md §4.9 defines.
func Simulate(p *datamodel.Project, modelName ident.Canonical, overrides map[ident.Canonical]float64, enableLTM bool) (*vm.Sim, *errors.Report) {
	if enableLTM {
		augmented, rep := ltm.Augment(p, modelName)
		if rep != nil {
			return nil, rep
		}
		p = augmented
	}
	cm, rep := vm.Compile(p, modelName)
	if rep != nil {
		return nil, rep
	}
	return vm.New(cm, p.SimSpecs, overrides)
}

// SimulateForDiscovery is Simulate's discovery-mode counterpart: it
// augments modelName with WithLTMAllLinks rather than WithLTM, so the
// resulting Sim's series are suited to DiscoverLoops/ToRun instead of the
// exhaustive loop/relative-loop scores WithLTM produces.
func SimulateForDiscovery(p *datamodel.Project, modelName ident.Canonical, overrides map[ident.Canonical]float64) (*vm.Sim, *errors.Report) {
	augmented, rep := ltm.AugmentAllLinks(p, modelName)
	if rep != nil {
		return nil, rep
	}
	cm, rep := vm.Compile(augmented, modelName)
	if rep != nil {
		return nil, rep
	}
	return vm.New(cm, augmented.SimSpecs, overrides)
}

package vm

import (
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// Results is the time-sampled output of a run: one Time entry and one value
// per series per recorded row (spec.md §4.6 "Output: a row per save_step,
// plus the final time regardless of alignment").
type Results struct {
	Time   []float64
	Series map[ident.Canonical][]float64
}

func newResults(cm *CompiledModule) *Results {
	series := make(map[ident.Canonical][]float64, len(cm.Layout.Order))
	for _, name := range cm.Layout.Order {
		series[name] = nil
	}
	return &Results{Series: series}
}

func (r *Results) record(time float64, fs *frameState, cm *CompiledModule) {
	r.Time = append(r.Time, time)
	for _, name := range cm.Layout.Order {
		slot, _ := cm.Layout.Offset(name)
		r.Series[name] = append(r.Series[name], fs.slots[slot.Offset])
	}
}

// Sim runs one CompiledModule forward under its declared integration method,
// recording a Results row every save_step (spec.md §4.5-4.6).
type Sim struct {
	Compiled  *CompiledModule
	specs     datamodel.SimSpecs
	overrides map[ident.Canonical]float64
	skip      map[ident.Canonical]bool
	state     *frameState
	time      float64
	nextSave  float64
	stepCount int
	results   *Results
}

// New validates specs and the override set, then resets to a freshly
// initialized t=start state (spec.md §4.5 "A run starts by evaluating the
// initials runlist once, then applying any variable overrides").
func New(cm *CompiledModule, specs datamodel.SimSpecs, overrides map[ident.Canonical]float64) (*Sim, *errors.Report) {
	if rep := specs.Validate(); rep != nil {
		return nil, rep
	}
	skip := make(map[ident.Canonical]bool, len(overrides))
	for name := range overrides {
		if _, ok := cm.Layout.Offset(name); !ok {
			return nil, errors.New(errors.RUN001, nil, "unknown variable in override: "+string(name)).WithVariable(string(name))
		}
		skip[name] = true
	}
	s := &Sim{
		Compiled:  cm,
		specs:     specs,
		overrides: overrides,
		skip:      skip,
	}
	s.Reset()
	return s, nil
}

// Reset rewinds the run to t=start, re-running initials and re-applying
// overrides, and clears any recorded Results.
func (s *Sim) Reset() {
	cm := s.Compiled
	s.state = newFrameState(cm)
	s.time = s.specs.Start
	s.nextSave = s.specs.Start
	s.stepCount = 0
	s.results = newResults(cm)

	initModule(cm, s.state, s.time)
	s.applyOverrides()
	evalFlows(cm, s.state, s.time, s.skip)
	s.applyOverrides()
	s.maybeRecord()
}

func (s *Sim) applyOverrides() {
	for name, v := range s.overrides {
		if slot, ok := s.Compiled.Layout.Offset(name); ok {
			s.state.slots[slot.Offset] = v
		}
	}
}

func (s *Sim) maybeRecord() {
	saveStep := s.specs.EffectiveSaveStep()
	if s.time+saveStep/2 >= s.nextSave {
		s.results.record(s.time, s.state, s.Compiled)
		s.nextSave += saveStep
	}
}

// RunToEnd advances the simulation to specs.Stop.
func (s *Sim) RunToEnd() {
	s.RunTo(s.specs.Stop)
}

// RunTo advances the simulation to target, one dt tick at a time (spec.md
// §4.5 "Stepping"), recording a Results row whenever a tick crosses a
// save_step boundary, and always recording the very last tick even if it
// falls short of a full dt (spec.md §4.6 "the final time regardless of
// alignment").
func (s *Sim) RunTo(target float64) {
	dt := s.specs.EffectiveDt()
	if dt <= 0 {
		return
	}
	for s.time < target {
		step := dt
		if s.time+step > target {
			step = target - s.time
		}
		s.tick(step)
		s.time += step
		s.stepCount++
		s.applyOverrides()
		s.maybeRecord()
	}
	if len(s.results.Time) == 0 || s.results.Time[len(s.results.Time)-1] != s.time {
		s.results.record(s.time, s.state, s.Compiled)
	}
}

func (s *Sim) tick(dt float64) {
	switch s.specs.Method {
	case datamodel.RK4:
		tickRK4(s.Compiled, s.state, s.time, dt, s.skip)
	default:
		tickEuler(s.Compiled, s.state, s.time, dt, s.skip)
	}
}

// tickEuler evaluates this step's flows against the already-current stock
// values, then integrates every stock (root and nested instances alike) by
// one Euler step.
func tickEuler(cm *CompiledModule, fs *frameState, time float64, dt float64, skip map[ident.Canonical]bool) {
	evalFlows(cm, fs, time+dt, skip)
	advanceStocks(cm, fs, dt)
	applyEulerStocks(cm, fs, dt)
}

// tickRK4 evaluates the four classical Runge-Kutta stages against the root
// module's stocks only; nested module instances (stateful builtins) always
// integrate with a single Euler step per tick regardless of the parent's
// method, a simplification recorded in DESIGN.md to avoid re-deriving
// fractional-step semantics for state embedded arbitrarily deep in a module
// tree.
func tickRK4(cm *CompiledModule, fs *frameState, time float64, dt float64, skip map[ident.Canonical]bool) {
	stockNames := make([]ident.Canonical, 0, len(cm.Stocks))
	for name := range cm.Stocks {
		stockNames = append(stockNames, name)
	}
	base := make(map[ident.Canonical]float64, len(stockNames))
	for _, name := range stockNames {
		slot, _ := cm.Layout.Offset(name)
		base[name] = fs.slots[slot.Offset]
	}

	evalFlows(cm, fs, time, skip)
	k1 := captureDerivatives(cm, fs, stockNames)

	applyTrial(cm, fs, base, stockNames, k1, dt/2)
	evalFlows(cm, fs, time+dt/2, skip)
	k2 := captureDerivatives(cm, fs, stockNames)

	applyTrial(cm, fs, base, stockNames, k2, dt/2)
	evalFlows(cm, fs, time+dt/2, skip)
	k3 := captureDerivatives(cm, fs, stockNames)

	applyTrial(cm, fs, base, stockNames, k3, dt)
	evalFlows(cm, fs, time+dt, skip)
	k4 := captureDerivatives(cm, fs, stockNames)

	for _, name := range stockNames {
		slot, _ := cm.Layout.Offset(name)
		w := cm.Stocks[name]
		v := base[name] + (dt/6)*(k1[name]+2*k2[name]+2*k3[name]+k4[name])
		fs.slots[slot.Offset] = clampNonNegative(w, v)
	}

	advanceStocks(cm, fs, dt)
}

func captureDerivatives(cm *CompiledModule, fs *frameState, stockNames []ident.Canonical) map[ident.Canonical]float64 {
	d := make(map[ident.Canonical]float64, len(stockNames))
	for _, name := range stockNames {
		d[name] = netFlow(cm, fs, cm.Stocks[name])
	}
	return d
}

func applyTrial(cm *CompiledModule, fs *frameState, base map[ident.Canonical]float64, stockNames []ident.Canonical, k map[ident.Canonical]float64, step float64) {
	for _, name := range stockNames {
		slot, _ := cm.Layout.Offset(name)
		fs.slots[slot.Offset] = base[name] + step*k[name]
	}
}

// GetValue returns the current value of a root-level variable.
func (s *Sim) GetValue(name ident.Canonical) (float64, bool) {
	slot, ok := s.Compiled.Layout.Offset(name)
	if !ok {
		return 0, false
	}
	return s.state.slots[slot.Offset], true
}

// SetValue overrides name for the remainder of the run, the same as an
// override passed to New (spec.md §4.5 "overrides apply from the point
// they're set, and the variable's own equation is skipped thereafter").
func (s *Sim) SetValue(name ident.Canonical, value float64) bool {
	slot, ok := s.Compiled.Layout.Offset(name)
	if !ok {
		return false
	}
	if s.overrides == nil {
		s.overrides = make(map[ident.Canonical]float64)
	}
	if s.skip == nil {
		s.skip = make(map[ident.Canonical]bool)
	}
	s.overrides[name] = value
	s.skip[name] = true
	s.state.slots[slot.Offset] = value
	return true
}

// GetSeries returns the recorded time series for name, and whether it was
// found.
func (s *Sim) GetSeries(name ident.Canonical) ([]float64, bool) {
	series, ok := s.results.Series[name]
	return series, ok
}

// GetTime returns the recorded sample times.
func (s *Sim) GetTime() []float64 {
	return s.results.Time
}

// GetStepCount returns the number of dt ticks executed since the last
// Reset.
func (s *Sim) GetStepCount() int {
	return s.stepCount
}

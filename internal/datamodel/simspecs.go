// Package datamodel is the typed in-memory representation of a system-
// dynamics project: models, variables, sim-specs, and dimensions
// (spec.md §3). Every type here is a plain value type; the pipeline that
// turns these into a runnable simulation (parsing, dependency analysis,
// offset layout, codegen) lives in the later stages
// (internal/elaborate, internal/depgraph, internal/layout, internal/bytecode,
// internal/vm) and in internal/pipeline, which wires them together.
package datamodel

import "github.com/simlin-go/core/internal/errors"

// IntegrationMethod selects the ODE integration scheme (spec.md §4.5).
type IntegrationMethod int

const (
	Euler IntegrationMethod = iota
	RK4
)

func (m IntegrationMethod) String() string {
	if m == RK4 {
		return "rk4"
	}
	return "euler"
}

// SimSpecs are the project-level simulation parameters (spec.md §3).
type SimSpecs struct {
	Start        float64
	Stop         float64
	Dt           float64
	SaveStep     *float64 // nil => defaults to Dt (spec.md §4.5 "Save-step semantics")
	TimeUnits    string
	Method       IntegrationMethod
	ReciprocalDt bool // Dt stored as 1/Dt, as some import formats encode it
}

// EffectiveDt returns the step size actually used for integration,
// resolving the reciprocal-dt flag.
func (s SimSpecs) EffectiveDt() float64 {
	if s.ReciprocalDt && s.Dt != 0 {
		return 1 / s.Dt
	}
	return s.Dt
}

// EffectiveSaveStep returns the save-step, defaulting to EffectiveDt when
// unset (spec.md §4.5).
func (s SimSpecs) EffectiveSaveStep() float64 {
	if s.SaveStep == nil {
		return s.EffectiveDt()
	}
	return *s.SaveStep
}

// Validate checks the structural well-formedness invariants sim-specs must
// hold before compilation can proceed (spec.md §7 CMP002 "bad sim-specs").
func (s SimSpecs) Validate() *errors.Report {
	dt := s.EffectiveDt()
	switch {
	case s.Stop < s.Start:
		return errors.New(errors.CMP002, nil, "stop time precedes start time")
	case dt <= 0:
		return errors.New(errors.CMP002, nil, "dt must be positive")
	case s.SaveStep != nil && *s.SaveStep <= 0:
		return errors.New(errors.CMP002, nil, "save_step must be positive")
	}
	return nil
}

// Clone returns a value copy (SimSpecs has no reference fields except the
// optional SaveStep pointer, which is deep-copied so mutating a clone never
// affects the original — spec.md §3 "a project is immutable once compiled").
func (s SimSpecs) Clone() SimSpecs {
	clone := s
	if s.SaveStep != nil {
		v := *s.SaveStep
		clone.SaveStep = &v
	}
	return clone
}

package datamodel

import (
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// Kind tags which of the four variable flavors a Variable is. Call sites
// switch exhaustively on Kind rather than using a Go interface per kind:
// spec.md §9 reserves interfaces for cross-cutting concerns (AST walkers,
// polarity analyzers), not the variable type itself.
type Kind int

const (
	StockKind Kind = iota
	FlowKind
	AuxiliaryKind
	ModuleKind
)

func (k Kind) String() string {
	switch k {
	case StockKind:
		return "stock"
	case FlowKind:
		return "flow"
	case AuxiliaryKind:
		return "auxiliary"
	case ModuleKind:
		return "module"
	default:
		return "unknown"
	}
}

// ModuleInput binds one input port of a referenced model to a source
// expression in the enclosing model (spec.md §3 "Module").
type ModuleInput struct {
	Dst ident.Ident // input name in the referenced model
	Src string      // source expression text in the enclosing model (usually a bare variable name)
}

// Variable is the tagged union over Stock/Flow/Auxiliary/Module (spec.md
// §3). Fields not meaningful for the current Kind are left zero-valued.
type Variable struct {
	Name ident.Ident
	Kind Kind

	Units         string
	Documentation string
	Dimensions    []ident.Canonical // declared array dimensions, in declaration order; empty => scalar

	// Stock
	InitialEquation string
	Inflows         []ident.Canonical
	Outflows        []ident.Canonical
	NonNegative     bool // also used by Flow

	// Flow, Auxiliary
	Equation string
	GF       *GraphicalFunction

	// Module
	ModelName ident.Canonical
	Inputs    []ModuleInput

	// Errors accumulated during Stage0/Stage1 compilation (spec.md §7
	// "Parse and model errors are accumulated per-variable and stored on
	// the Stage1 variable"). A variable with any fatal Report makes its
	// owning model not simulatable (internal/pipeline.Project.IsSimulatable).
	Errors []*errors.Report
}

// IsArray reports whether the variable is subscripted.
func (v *Variable) IsArray() bool { return len(v.Dimensions) > 0 }

// HasFatalError reports whether any accumulated error is fatal (every
// Report currently produced by this module is fatal; non-fatal diagnostics
// are not modeled, matching spec.md §7's "a project is simulatable iff no
// variable carries a fatal error").
func (v *Variable) HasFatalError() bool { return len(v.Errors) > 0 }

// EquationText returns the expression text that must be parsed for this
// variable: the stock's initial-value expression, or the flow/auxiliary's
// rate/value expression. Modules have no equation of their own.
func (v *Variable) EquationText() (string, bool) {
	switch v.Kind {
	case StockKind:
		return v.InitialEquation, true
	case FlowKind, AuxiliaryKind:
		return v.Equation, true
	default:
		return "", false
	}
}

// Clone returns a deep copy of the variable.
func (v *Variable) Clone() *Variable {
	clone := *v
	clone.Dimensions = append([]ident.Canonical(nil), v.Dimensions...)
	clone.Inflows = append([]ident.Canonical(nil), v.Inflows...)
	clone.Outflows = append([]ident.Canonical(nil), v.Outflows...)
	clone.Inputs = append([]ModuleInput(nil), v.Inputs...)
	clone.Errors = append([]*errors.Report(nil), v.Errors...)
	if v.GF != nil {
		gf := v.GF.Clone()
		clone.GF = &gf
	}
	return &clone
}

// Connection records a stock<->flow wiring edge surfaced to diagram/view
// layout at the import/export boundary (spec.md §3 "a set of connections
// (stock ↔ flow)"). internal/elaborate and internal/depgraph derive the
// same wiring directly from Variable.Inflows/Outflows; Connection exists so
// round-tripped views (arc geometry) have somewhere to anchor, without the
// core interpreting their coordinates (spec.md §1 Non-goals).
type Connection struct {
	Stock   ident.Canonical
	Flow    ident.Canonical
	Inflow  bool // true: Flow feeds Stock; false: Flow drains Stock
}

// View is an opaque diagram-layout blob (spec.md §1 Non-goals: "The
// diagram/view layout machinery ... is specified only at the boundary
// needed by import/export"). The core never interprets Raw.
type View struct {
	Name string
	Raw  []byte
}

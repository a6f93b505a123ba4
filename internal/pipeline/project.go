// Package pipeline wires together every compiler stage and external
// format into the public surface a host application drives: opening and
// serializing projects in their various external representations,
// compiling and simulating a named model, augmenting a project for Loops
// That Matter analysis, and patching a project's variables in place
// (spec.md §6 "External interfaces"). Every exported function here is a
// thin orchestrator: the actual work happens in internal/importer,
// internal/ltm, internal/vm, and the stages vm.Compile itself chains
// together (internal/elaborate, internal/depgraph, internal/layout,
// internal/bytecode).
package pipeline

import (
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/importer"
	"github.com/simlin-go/core/internal/vm"
)

// OpenXMILE, OpenMDL, OpenJSON, and OpenProtobuf parse one of spec.md §6's
// external project formats; each is a direct re-export of the matching
// internal/importer function, kept here so callers have one package to
// import for the whole external-interface surface.
func OpenXMILE(data []byte) (*datamodel.Project, *errors.Report)    { return importer.OpenXMILE(data) }
func OpenMDL(data []byte) (*datamodel.Project, *errors.Report)      { return importer.OpenMDL(data) }
func OpenJSON(data []byte) (*datamodel.Project, *errors.Report)     { return importer.OpenJSON(data) }
func OpenProtobuf(data []byte) (*datamodel.Project, *errors.Report) { return importer.OpenProtobuf(data) }

// SerializeXMILE, SerializeJSON, and SerializeProtobuf render a project
// back to one of its external forms (spec.md §6). There is no
// SerializeMDL: spec.md §1 treats MDL as import-only.
func SerializeXMILE(p *datamodel.Project) ([]byte, *errors.Report)    { return importer.SerializeXMILE(p) }
func SerializeJSON(p *datamodel.Project) ([]byte, *errors.Report)     { return importer.SerializeJSON(p) }
func SerializeProtobuf(p *datamodel.Project) ([]byte, *errors.Report) { return importer.SerializeProtobuf(p) }

// GetErrors collects every fatal error accumulated against any variable
// in any model of p (spec.md §6 "project.get_errors() -> [CompilationError]").
// These are the parse/elaborate-time errors importer and hand-built
// projects alike attach directly to Variable.Errors; structural errors
// that only surface once a specific model is actually compiled (an
// unresolvable dependency, a circular reference) are not included here —
// query IsSimulatable for those.
func GetErrors(p *datamodel.Project) []*errors.Report {
	var out []*errors.Report
	for _, m := range p.Models {
		for _, v := range m.Variables {
			out = append(out, v.Errors...)
		}
	}
	return out
}

// IsSimulatable reports whether modelName can be compiled into a runnable
// Sim: every variable is free of fatal errors, and the model's dependency
// graph and bytecode actually compile (spec.md §7 "a project is
// simulatable iff no variable carries a fatal error" — extended here to
// also require that vm.Compile itself succeeds, since a model can be
// error-free per-variable and still be uncompilable, e.g. an unresolved
// circular dependency MDL001 only depgraph.Sort can detect).
func IsSimulatable(p *datamodel.Project, modelName ident.Canonical) bool {
	model, ok := p.Model(modelName)
	if !ok {
		return false
	}
	for _, v := range model.Variables {
		if v.HasFatalError() {
			return false
		}
	}
	_, rep := vm.Compile(p, modelName)
	return rep == nil
}

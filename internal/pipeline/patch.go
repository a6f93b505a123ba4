package pipeline

import (
	"encoding/json"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/vm"
)

// patchDTO is the JSON shape spec.md §6 names for model.apply_patch:
// `{"project_ops": [...], "models": [{"name": "...", "ops": [...]}]}`.
// project_ops apply against the project's main model (the natural target
// for a patch that does not name one, matching Project.Main's own "first
// model when MainModel is unset" fallback); models[].ops apply against
// the explicitly named model.
type patchDTO struct {
	ProjectOps []opDTO          `json:"project_ops,omitempty"`
	Models     []modelPatchDTO  `json:"models,omitempty"`
}

type modelPatchDTO struct {
	Name string  `json:"name"`
	Ops  []opDTO `json:"ops"`
}

// opDTO covers every patch operation spec.md §6 names: upsert_stock,
// upsert_flow, upsert_aux, delete_variable, and rename_variable. Fields
// not meaningful for Type are simply left zero-valued in the JSON.
type opDTO struct {
	Type string `json:"type"`
	Name string `json:"name"`

	Equation        string   `json:"equation,omitempty"`         // upsert_flow, upsert_aux
	InitialEquation string   `json:"initial_equation,omitempty"` // upsert_stock
	Inflows         []string `json:"inflows,omitempty"`          // upsert_stock
	Outflows        []string `json:"outflows,omitempty"`         // upsert_stock
	NonNegative     bool     `json:"non_negative,omitempty"`     // upsert_stock, upsert_flow
	Units           string   `json:"units,omitempty"`
	Documentation   string   `json:"documentation,omitempty"`

	NewName string `json:"new_name,omitempty"` // rename_variable
}

// ApplyPatch applies a JSON patch document to p, returning the resulting
// project (or p itself, unmodified, when dryRun is set) and every
// compilation error IsSimulatable-style checking found in the models the
// patch touched (spec.md §6 "model.apply_patch(json_patch, allow_errors,
// dry_run) -> [CompilationError]"). When allowErrors is false, the first
// operation that cannot be applied (an unknown target model or, for
// rename/delete, an unknown target variable) aborts the whole patch and
// returns that failure as the function's own *errors.Report; when true,
// failed operations are skipped and every other operation in the patch
// still applies.
func ApplyPatch(p *datamodel.Project, patch []byte, allowErrors, dryRun bool) (*datamodel.Project, []*errors.Report, *errors.Report) {
	var dto patchDTO
	if err := json.Unmarshal(patch, &dto); err != nil {
		return nil, nil, errors.New(errors.IMP004, nil, "malformed patch json: "+err.Error())
	}

	out := p.Clone()
	touched := map[ident.Canonical]bool{}

	if len(dto.ProjectOps) > 0 {
		main, ok := out.Main()
		if !ok {
			return nil, nil, errors.New(errors.MDL002, nil, "project has no main model for project_ops")
		}
		touched[main.Name.Canonical] = true
		for _, op := range dto.ProjectOps {
			if rep := applyOp(main, op); rep != nil {
				if !allowErrors {
					return nil, nil, rep
				}
			}
		}
	}

	for _, md := range dto.Models {
		name := ident.New(md.Name).Canonical
		model, ok := out.Model(name)
		if !ok {
			rep := errors.New(errors.MDL002, nil, "unknown model "+md.Name).WithModel(md.Name)
			if !allowErrors {
				return nil, nil, rep
			}
			continue
		}
		touched[name] = true
		for _, op := range md.Ops {
			if rep := applyOp(model, op); rep != nil {
				if !allowErrors {
					return nil, nil, rep
				}
			}
		}
	}

	var compileErrs []*errors.Report
	for name := range touched {
		if _, rep := vm.Compile(out, name); rep != nil {
			compileErrs = append(compileErrs, rep)
		}
	}

	if dryRun {
		return p, compileErrs, nil
	}
	return out, compileErrs, nil
}

func canonSlice(names []string) []ident.Canonical {
	if len(names) == 0 {
		return nil
	}
	out := make([]ident.Canonical, len(names))
	for i, n := range names {
		out[i] = ident.New(n).Canonical
	}
	return out
}

func applyOp(m *datamodel.Model, op opDTO) *errors.Report {
	name := ident.New(op.Name).Canonical
	switch op.Type {
	case "upsert_stock":
		m.RemoveVariable(name)
		m.AddVariable(&datamodel.Variable{
			Name: ident.New(op.Name), Kind: datamodel.StockKind,
			InitialEquation: op.InitialEquation,
			Inflows:         canonSlice(op.Inflows), Outflows: canonSlice(op.Outflows),
			NonNegative: op.NonNegative, Units: op.Units, Documentation: op.Documentation,
		})
		return nil
	case "upsert_flow":
		m.RemoveVariable(name)
		m.AddVariable(&datamodel.Variable{
			Name: ident.New(op.Name), Kind: datamodel.FlowKind,
			Equation: op.Equation, NonNegative: op.NonNegative,
			Units: op.Units, Documentation: op.Documentation,
		})
		return nil
	case "upsert_aux":
		m.RemoveVariable(name)
		m.AddVariable(&datamodel.Variable{
			Name: ident.New(op.Name), Kind: datamodel.AuxiliaryKind,
			Equation: op.Equation, Units: op.Units, Documentation: op.Documentation,
		})
		return nil
	case "delete_variable":
		if !m.RemoveVariable(name) {
			return errors.New(errors.MDL002, nil, "unknown variable "+op.Name).WithModel(m.Name.Original).WithVariable(op.Name)
		}
		return nil
	case "rename_variable":
		v, ok := m.ByName(name)
		if !ok {
			return errors.New(errors.MDL002, nil, "unknown variable "+op.Name).WithModel(m.Name.Original).WithVariable(op.Name)
		}
		v.Name = ident.New(op.NewName)
		renameReferences(m, name, v.Name.Canonical)
		return nil
	default:
		return errors.New(errors.IMP004, nil, "unknown patch op "+op.Type).WithModel(m.Name.Original)
	}
}

// renameReferences fixes up every Inflow/Outflow name and every module input
// source that is a plain reference to from, after a rename_variable op — equation text
// itself is left untouched (a textual rewrite risks corrupting a builtin
// name or a substring match), matching spec.md §4.1's identifier rules:
// equations re-resolve an old bare name as MDL002 at the next compile,
// surfacing in ApplyPatch's own returned compile-error list.
func renameReferences(m *datamodel.Model, from, to ident.Canonical) {
	for _, v := range m.Variables {
		for i, f := range v.Inflows {
			if f == from {
				v.Inflows[i] = to
			}
		}
		for i, f := range v.Outflows {
			if f == from {
				v.Outflows[i] = to
			}
		}
		for i, in := range v.Inputs {
			if src := ident.Canon(in.Src); src == from || src == "\""+from+"\"" {
				v.Inputs[i].Src = "\"" + string(to) + "\""
			}
		}
	}
}

// Package importer implements spec.md §6's external project formats:
// the native JSON encoding, XMILE, Vensim MDL, and protobuf. Every Open*
// function returns a *datamodel.Project built directly out of equation
// text and Variable/Model values — none of them invoke internal/elaborate
// or internal/bytecode, so a project with unparseable equations still
// imports; its per-variable errors surface later, at compile time, the
// same way a hand-built Project's would (spec.md §7 "Import errors ...
// are distinct from parse errors raised against equation text").
package importer

import (
	"encoding/json"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// projectDTO is the on-disk shape of the native JSON format (spec.md §6
// "project.serialize_json() -> text" / "project.open_json(text) ->
// Project"). Field names are deliberately snake_case, the convention the
// rest of the external-format corpus (XMILE attributes, MDL keywords)
// also uses, rather than mirroring Go's exported-field casing.
type projectDTO struct {
	MainModel  string          `json:"main_model,omitempty"`
	SimSpecs   simSpecsDTO     `json:"sim_specs"`
	Dimensions []dimensionDTO  `json:"dimensions,omitempty"`
	Models     []modelDTO      `json:"models"`
}

type simSpecsDTO struct {
	Start        float64  `json:"start"`
	Stop         float64  `json:"stop"`
	Dt           float64  `json:"dt"`
	SaveStep     *float64 `json:"save_step,omitempty"`
	TimeUnits    string   `json:"time_units,omitempty"`
	Method       string   `json:"method,omitempty"` // "euler" (default) or "rk4"
	ReciprocalDt bool     `json:"reciprocal_dt,omitempty"`
}

type dimensionDTO struct {
	Name     string   `json:"name"`
	Elements []string `json:"elements"`
}

type modelDTO struct {
	Name        string           `json:"name"`
	Variables   []variableDTO    `json:"variables"`
	Connections []connectionDTO  `json:"connections,omitempty"`
}

type connectionDTO struct {
	Stock   string `json:"stock"`
	Flow    string `json:"flow"`
	Inflow  bool   `json:"inflow"`
}

type moduleInputDTO struct {
	Dst string `json:"dst"`
	Src string `json:"src"`
}

type variableDTO struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"` // "stock", "flow", "auxiliary", "module"
	Units         string   `json:"units,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Dimensions    []string `json:"dimensions,omitempty"`

	InitialEquation string   `json:"initial_equation,omitempty"`
	Inflows         []string `json:"inflows,omitempty"`
	Outflows        []string `json:"outflows,omitempty"`
	NonNegative     bool     `json:"non_negative,omitempty"`

	Equation string               `json:"equation,omitempty"`
	GF       *graphicalFunctionDTO `json:"gf,omitempty"`

	ModelName string           `json:"model_name,omitempty"`
	Inputs    []moduleInputDTO `json:"inputs,omitempty"`
}

type graphicalFunctionDTO struct {
	X      []float64  `json:"x,omitempty"`
	Y      []float64  `json:"y"`
	XScale [2]float64 `json:"x_scale"`
	YScale [2]float64 `json:"y_scale"`
	Kind   string     `json:"kind,omitempty"` // "continuous" (default), "discrete", "extrapolate"
}

func kindToString(k datamodel.Kind) string {
	switch k {
	case datamodel.StockKind:
		return "stock"
	case datamodel.FlowKind:
		return "flow"
	case datamodel.ModuleKind:
		return "module"
	default:
		return "auxiliary"
	}
}

func kindFromString(s string) (datamodel.Kind, bool) {
	switch s {
	case "stock":
		return datamodel.StockKind, true
	case "flow":
		return datamodel.FlowKind, true
	case "auxiliary", "":
		return datamodel.AuxiliaryKind, true
	case "module":
		return datamodel.ModuleKind, true
	default:
		return 0, false
	}
}

func gfKindToString(k datamodel.GFKind) string {
	switch k {
	case datamodel.Discrete:
		return "discrete"
	case datamodel.Extrapolate:
		return "extrapolate"
	default:
		return "continuous"
	}
}

func gfKindFromString(s string) (datamodel.GFKind, bool) {
	switch s {
	case "continuous", "":
		return datamodel.Continuous, true
	case "discrete":
		return datamodel.Discrete, true
	case "extrapolate":
		return datamodel.Extrapolate, true
	default:
		return 0, false
	}
}

func canonSlice(names []string) []ident.Canonical {
	if names == nil {
		return nil
	}
	out := make([]ident.Canonical, len(names))
	for i, n := range names {
		out[i] = ident.New(n).Canonical
	}
	return out
}

func stringSlice(names []ident.Canonical) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// OpenJSON parses the native JSON project format into a *datamodel.Project.
func OpenJSON(data []byte) (*datamodel.Project, *errors.Report) {
	var dto projectDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errors.New(errors.IMP004, nil, "invalid json: "+err.Error())
	}

	p := datamodel.NewProject()
	p.MainModel = ident.New(dto.MainModel).Canonical
	p.SimSpecs = simSpecsFromDTO(dto.SimSpecs)
	for _, d := range dto.Dimensions {
		elems := make([]ident.Ident, len(d.Elements))
		for i, e := range d.Elements {
			elems[i] = ident.New(e)
		}
		p.Dimensions.Add(datamodel.Dimension{Name: ident.New(d.Name), Elements: elems})
	}

	for _, md := range dto.Models {
		m := &datamodel.Model{Name: ident.New(md.Name)}
		for _, vd := range md.Variables {
			v, rep := variableFromDTO(vd)
			if rep != nil {
				return nil, rep.WithModel(md.Name)
			}
			m.AddVariable(v)
		}
		for _, cd := range md.Connections {
			m.Connections = append(m.Connections, datamodel.Connection{
				Stock: ident.New(cd.Stock).Canonical, Flow: ident.New(cd.Flow).Canonical, Inflow: cd.Inflow,
			})
		}
		p.AddModel(m)
	}
	if len(dto.Models) > 0 && dto.MainModel == "" {
		p.MainModel = p.Models[0].Name.Canonical
	}
	return p, nil
}

func variableFromDTO(vd variableDTO) (*datamodel.Variable, *errors.Report) {
	kind, ok := kindFromString(vd.Kind)
	if !ok {
		return nil, errors.New(errors.IMP004, nil, "unknown variable kind "+vd.Kind).WithVariable(vd.Name)
	}
	v := &datamodel.Variable{
		Name:            ident.New(vd.Name),
		Kind:            kind,
		Units:           vd.Units,
		Documentation:   vd.Documentation,
		Dimensions:      canonSlice(vd.Dimensions),
		InitialEquation: vd.InitialEquation,
		Inflows:         canonSlice(vd.Inflows),
		Outflows:        canonSlice(vd.Outflows),
		NonNegative:     vd.NonNegative,
		Equation:        vd.Equation,
		ModelName:       ident.New(vd.ModelName).Canonical,
	}
	if vd.GF != nil {
		gfKind, ok := gfKindFromString(vd.GF.Kind)
		if !ok {
			return nil, errors.New(errors.IMP004, nil, "unknown gf kind "+vd.GF.Kind).WithVariable(vd.Name)
		}
		v.GF = &datamodel.GraphicalFunction{
			X: vd.GF.X, Y: vd.GF.Y, XScale: vd.GF.XScale, YScale: vd.GF.YScale, Kind: gfKind,
		}
	}
	for _, id := range vd.Inputs {
		v.Inputs = append(v.Inputs, datamodel.ModuleInput{Dst: ident.New(id.Dst), Src: id.Src})
	}
	return v, nil
}

func simSpecsFromDTO(d simSpecsDTO) datamodel.SimSpecs {
	s := datamodel.SimSpecs{
		Start: d.Start, Stop: d.Stop, Dt: d.Dt,
		SaveStep: d.SaveStep, TimeUnits: d.TimeUnits, ReciprocalDt: d.ReciprocalDt,
	}
	if d.Method == "rk4" {
		s.Method = datamodel.RK4
	}
	return s
}

// SerializeJSON renders p in the native JSON project format.
func SerializeJSON(p *datamodel.Project) ([]byte, *errors.Report) {
	dto := projectDTO{
		MainModel: string(p.MainModel),
		SimSpecs:  simSpecsToDTO(p.SimSpecs),
	}
	for _, name := range p.Dimensions.Names() {
		d, _ := p.Dimensions.Get(name)
		elems := make([]string, len(d.Elements))
		for i, e := range d.Elements {
			elems[i] = e.Original
		}
		dto.Dimensions = append(dto.Dimensions, dimensionDTO{Name: d.Name.Original, Elements: elems})
	}
	for _, m := range p.Models {
		md := modelDTO{Name: m.Name.Original}
		for _, v := range m.Variables {
			md.Variables = append(md.Variables, variableToDTO(v))
		}
		for _, c := range m.Connections {
			md.Connections = append(md.Connections, connectionDTO{
				Stock: string(c.Stock), Flow: string(c.Flow), Inflow: c.Inflow,
			})
		}
		dto.Models = append(dto.Models, md)
	}

	out, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return nil, errors.New(errors.IMP004, nil, "cannot serialize project: "+err.Error())
	}
	return out, nil
}

func variableToDTO(v *datamodel.Variable) variableDTO {
	vd := variableDTO{
		Name: v.Name.Original, Kind: kindToString(v.Kind),
		Units: v.Units, Documentation: v.Documentation,
		Dimensions:      stringSlice(v.Dimensions),
		InitialEquation: v.InitialEquation,
		Inflows:         stringSlice(v.Inflows),
		Outflows:        stringSlice(v.Outflows),
		NonNegative:     v.NonNegative,
		Equation:        v.Equation,
		ModelName:       string(v.ModelName),
	}
	if v.GF != nil {
		vd.GF = &graphicalFunctionDTO{
			X: v.GF.X, Y: v.GF.Y, XScale: v.GF.XScale, YScale: v.GF.YScale, Kind: gfKindToString(v.GF.Kind),
		}
	}
	for _, in := range v.Inputs {
		vd.Inputs = append(vd.Inputs, moduleInputDTO{Dst: in.Dst.Original, Src: in.Src})
	}
	return vd
}

func simSpecsToDTO(s datamodel.SimSpecs) simSpecsDTO {
	return simSpecsDTO{
		Start: s.Start, Stop: s.Stop, Dt: s.Dt,
		SaveStep: s.SaveStep, TimeUnits: s.TimeUnits,
		Method: s.Method.String(), ReciprocalDt: s.ReciprocalDt,
	}
}

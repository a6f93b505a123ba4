package importer

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// XMILE v1.0 (OASIS) subset. No vendor namespace is used for the two things
// the base schema has no slot for: a flow's graphical function is written as
// a plain <gf> child of <flow> (base XMILE only allows <gf> on auxiliaries),
// and view-layout metadata (spec.md §1 Non-goals treats diagram layout as
// opaque) round-trips as the raw inner XML of <views> rather than being parsed. Round-tripping a
// project through OpenXMILE/SerializeXMILE is lossy only on view-layout
// coordinates within that opaque block, matching spec.md §6.

type xmileDoc struct {
	XMLName  xml.Name      `xml:"xmile"`
	Version  string        `xml:"version,attr"`
	SimSpecs xmileSimSpecs `xml:"sim_specs"`
	Model    xmileModel    `xml:"model"`
}

type xmileSimSpecs struct {
	Start  float64 `xml:"start"`
	Stop   float64 `xml:"stop"`
	DT     xmileDT `xml:"dt"`
	Method string  `xml:"method,attr"`
}

// xmileDT models XMILE's reciprocal-dt convention: <dt reciprocal="true">4</dt>
// means dt = 1/4, matching spec.md §4.5's SimSpecs.ReciprocalDt field.
type xmileDT struct {
	Value       float64 `xml:",chardata"`
	Reciprocal  bool    `xml:"reciprocal,attr"`
}

type xmileModel struct {
	Name      string          `xml:"name,attr"`
	Variables xmileVariables  `xml:"variables"`
	Views     *xmileRawViews  `xml:"views"`
}

type xmileRawViews struct {
	Raw []byte `xml:",innerxml"`
}

type xmileVariables struct {
	Stocks []xmileStock `xml:"stock"`
	Flows  []xmileFlow  `xml:"flow"`
	Auxes  []xmileAux   `xml:"aux"`
	Mods   []xmileModule `xml:"module"`
}

type xmileStock struct {
	Name     string   `xml:"name,attr"`
	Eqn      string   `xml:"eqn"`
	Inflow   []string `xml:"inflow"`
	Outflow  []string `xml:"outflow"`
	NonNeg   *string  `xml:"non_negative"`
	Units    string   `xml:"units"`
	Doc      string   `xml:"doc"`
}

type xmileFlow struct {
	Name  string   `xml:"name,attr"`
	Eqn   string   `xml:"eqn"`
	GF    *xmileGF `xml:"gf"`
	Units string   `xml:"units"`
	Doc   string   `xml:"doc"`
}

type xmileAux struct {
	Name  string   `xml:"name,attr"`
	Eqn   string   `xml:"eqn"`
	GF    *xmileGF `xml:"gf"`
	Units string   `xml:"units"`
	Doc   string   `xml:"doc"`
}

type xmileModule struct {
	Name    string         `xml:"name,attr"`
	Model   string         `xml:"model_name,attr"`
	Connect []xmileConnect `xml:"connect"`
	Units   string         `xml:"units"`
	Doc     string         `xml:"doc"`
}

type xmileConnect struct {
	To   string `xml:"to,attr"`
	From string `xml:"from,attr"`
}

type xmileGF struct {
	Type   string      `xml:"type,attr"`
	XScale xmileScale  `xml:"xscale"`
	YScale xmileScale  `xml:"yscale"`
	XPts   string      `xml:"xpts"`
	YPts   string      `xml:"ypts"`
}

type xmileScale struct {
	Min float64 `xml:"min,attr"`
	Max float64 `xml:"max,attr"`
}

// OpenXMILE parses an OASIS XMILE v1.0 document (single <model>; spec.md
// §1 Non-goals excludes multi-model module linking detail beyond what
// internal/elaborate already resolves through Variable.ModelName) into a
// *datamodel.Project.
func OpenXMILE(data []byte) (*datamodel.Project, *errors.Report) {
	var doc xmileDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.IMP001, nil, "malformed xmile document: "+err.Error())
	}

	p := datamodel.NewProject()
	p.SimSpecs = datamodel.SimSpecs{
		Start: doc.SimSpecs.Start, Stop: doc.SimSpecs.Stop,
		Dt: doc.SimSpecs.DT.Value, ReciprocalDt: doc.SimSpecs.DT.Reciprocal,
	}
	if strings.EqualFold(doc.SimSpecs.Method, "rk4") || strings.EqualFold(doc.SimSpecs.Method, "rk4auto") {
		p.SimSpecs.Method = datamodel.RK4
	}

	m := &datamodel.Model{Name: ident.New(doc.Model.Name)}
	if m.Name.Canonical == "" {
		m.Name = ident.New("main")
	}

	for _, s := range doc.Model.Variables.Stocks {
		nonNeg := s.NonNeg != nil
		m.AddVariable(&datamodel.Variable{
			Name: ident.New(s.Name), Kind: datamodel.StockKind,
			InitialEquation: s.Eqn, Inflows: canonSlice(s.Inflow), Outflows: canonSlice(s.Outflow),
			NonNegative: nonNeg, Units: s.Units, Documentation: s.Doc,
		})
	}
	for _, f := range doc.Model.Variables.Flows {
		gf, rep := gfFromXMILE(f.GF, f.Name)
		if rep != nil {
			return nil, rep
		}
		m.AddVariable(&datamodel.Variable{
			Name: ident.New(f.Name), Kind: datamodel.FlowKind,
			Equation: f.Eqn, GF: gf, Units: f.Units, Documentation: f.Doc,
		})
	}
	for _, a := range doc.Model.Variables.Auxes {
		gf, rep := gfFromXMILE(a.GF, a.Name)
		if rep != nil {
			return nil, rep
		}
		m.AddVariable(&datamodel.Variable{
			Name: ident.New(a.Name), Kind: datamodel.AuxiliaryKind,
			Equation: a.Eqn, GF: gf, Units: a.Units, Documentation: a.Doc,
		})
	}
	for _, mod := range doc.Model.Variables.Mods {
		v := &datamodel.Variable{
			Name: ident.New(mod.Name), Kind: datamodel.ModuleKind,
			ModelName: ident.New(mod.Model).Canonical, Units: mod.Units, Documentation: mod.Doc,
		}
		for _, c := range mod.Connect {
			v.Inputs = append(v.Inputs, datamodel.ModuleInput{Dst: ident.New(c.To), Src: c.From})
		}
		m.AddVariable(v)
	}

	if doc.Model.Views != nil {
		m.Views = append(m.Views, datamodel.View{Name: "default", Raw: doc.Model.Views.Raw})
	}

	p.AddModel(m)
	return p, nil
}

func gfFromXMILE(gf *xmileGF, variable string) (*datamodel.GraphicalFunction, *errors.Report) {
	if gf == nil {
		return nil, nil
	}
	ys, rep := parseFloatCSV(gf.YPts, variable)
	if rep != nil {
		return nil, rep
	}
	var xs []float64
	if gf.XPts != "" {
		xs, rep = parseFloatCSV(gf.XPts, variable)
		if rep != nil {
			return nil, rep
		}
	}
	kind := datamodel.Continuous
	switch strings.ToLower(gf.Type) {
	case "discrete":
		kind = datamodel.Discrete
	case "extrapolate":
		kind = datamodel.Extrapolate
	}
	return &datamodel.GraphicalFunction{
		X: xs, Y: ys,
		XScale: [2]float64{gf.XScale.Min, gf.XScale.Max},
		YScale: [2]float64{gf.YScale.Min, gf.YScale.Max},
		Kind:   kind,
	}, nil
}

func parseFloatCSV(s, variable string) ([]float64, *errors.Report) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, errors.New(errors.IMP001, nil, "bad graphical-function point "+p).WithVariable(variable)
		}
		out = append(out, v)
	}
	return out, nil
}

// SerializeXMILE renders p's main model as an OASIS XMILE v1.0 document.
// Only the main model is emitted: spec.md §1 Non-goals leaves multi-model
// export out of scope for the XMILE writer (every module instance's
// ModelName/Inputs survive the round trip regardless, since they are
// ordinary Variable fields on the emitted model).
func SerializeXMILE(p *datamodel.Project) ([]byte, *errors.Report) {
	main, ok := p.Main()
	if !ok {
		return nil, errors.New(errors.IMP004, nil, "project has no models")
	}

	doc := xmileDoc{
		Version: "1.0",
		SimSpecs: xmileSimSpecs{
			Start: p.SimSpecs.Start, Stop: p.SimSpecs.Stop,
			DT:     xmileDT{Value: p.SimSpecs.Dt, Reciprocal: p.SimSpecs.ReciprocalDt},
			Method: p.SimSpecs.Method.String(),
		},
		Model: xmileModel{Name: main.Name.Original},
	}

	for _, v := range main.Variables {
		switch v.Kind {
		case datamodel.StockKind:
			var nonNeg *string
			if v.NonNegative {
				empty := ""
				nonNeg = &empty
			}
			doc.Model.Variables.Stocks = append(doc.Model.Variables.Stocks, xmileStock{
				Name: v.Name.Original, Eqn: v.InitialEquation,
				Inflow: stringSlice(v.Inflows), Outflow: stringSlice(v.Outflows),
				NonNeg: nonNeg, Units: v.Units, Doc: v.Documentation,
			})
		case datamodel.FlowKind:
			doc.Model.Variables.Flows = append(doc.Model.Variables.Flows, xmileFlow{
				Name: v.Name.Original, Eqn: v.Equation, GF: gfToXMILE(v.GF), Units: v.Units, Doc: v.Documentation,
			})
		case datamodel.ModuleKind:
			mod := xmileModule{Name: v.Name.Original, Model: string(v.ModelName), Units: v.Units, Doc: v.Documentation}
			for _, in := range v.Inputs {
				mod.Connect = append(mod.Connect, xmileConnect{To: in.Dst.Original, From: in.Src})
			}
			doc.Model.Variables.Mods = append(doc.Model.Variables.Mods, mod)
		default:
			doc.Model.Variables.Auxes = append(doc.Model.Variables.Auxes, xmileAux{
				Name: v.Name.Original, Eqn: v.Equation, GF: gfToXMILE(v.GF), Units: v.Units, Doc: v.Documentation,
			})
		}
	}

	for _, view := range main.Views {
		doc.Model.Views = &xmileRawViews{Raw: view.Raw}
		break
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.New(errors.IMP004, nil, "cannot serialize xmile: "+err.Error())
	}
	return append([]byte(xml.Header), out...), nil
}

func gfToXMILE(gf *datamodel.GraphicalFunction) *xmileGF {
	if gf == nil {
		return nil
	}
	xs, ys := gf.Points()
	out := &xmileGF{
		XScale: xmileScale{Min: gf.XScale[0], Max: gf.XScale[1]},
		YScale: xmileScale{Min: gf.YScale[0], Max: gf.YScale[1]},
		XPts:   floatCSV(xs),
		YPts:   floatCSV(ys),
	}
	switch gf.Kind {
	case datamodel.Discrete:
		out.Type = "discrete"
	case datamodel.Extrapolate:
		out.Type = "extrapolate"
	}
	return out
}

func floatCSV(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

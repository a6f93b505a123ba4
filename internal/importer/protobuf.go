package importer

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// Protobuf wire schema for Project (spec.md §6 "canonical wire form for
// persistence/cross-language transport"). There is no .proto file and no
// protoc-gen-go generated type: encoding/decoding is written directly
// against google.golang.org/protobuf/encoding/protowire's field-level
// primitives (tags, varints, length-delimited submessages), the same
// module's own low-level API for producing wire-compatible bytes without
// running the protoc code generator. Field numbers below are the schema;
// changing one is a wire-breaking change exactly as it would be for a
// generated message, and new fields must be added at the next free number
// to preserve proto3 forward/backward compatibility (spec.md §6 "schema
// evolution rules apply").
const (
	fieldProjectMainModel  = 1
	fieldProjectSimSpecs   = 2
	fieldProjectDimensions = 3
	fieldProjectModels     = 4

	fieldSimSpecsStart        = 1
	fieldSimSpecsStop         = 2
	fieldSimSpecsDt           = 3
	fieldSimSpecsSaveStep     = 4
	fieldSimSpecsTimeUnits    = 5
	fieldSimSpecsMethod       = 6
	fieldSimSpecsReciprocalDt = 7

	fieldDimensionName     = 1
	fieldDimensionElements = 2

	fieldModelName        = 1
	fieldModelVariables   = 2
	fieldModelConnections = 3

	fieldConnectionStock  = 1
	fieldConnectionFlow   = 2
	fieldConnectionInflow = 3

	fieldVariableName            = 1
	fieldVariableKind            = 2
	fieldVariableUnits           = 3
	fieldVariableDoc             = 4
	fieldVariableDimensions      = 5
	fieldVariableInitialEqn      = 6
	fieldVariableInflows         = 7
	fieldVariableOutflows        = 8
	fieldVariableNonNegative     = 9
	fieldVariableEquation        = 10
	fieldVariableGF              = 11
	fieldVariableModelName       = 12
	fieldVariableInputs          = 13

	fieldGFX      = 1
	fieldGFY      = 2
	fieldGFXScale = 3 // packed [min, max]
	fieldGFYScale = 4 // packed [min, max]
	fieldGFKind   = 5

	fieldModuleInputDst = 1
	fieldModuleInputSrc = 2

	methodRK4       = 1
	kindStock       = 0
	kindFlow        = 1
	kindAuxiliary   = 2
	kindModule      = 3
	gfDiscrete      = 1
	gfExtrapolate   = 2
)

// --- encode ---

func appendTagVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendTagBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendTagVarint(b, num, 1)
}

func appendTagDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendTagString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTagBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// SerializeProtobuf renders p in the canonical wire form.
func SerializeProtobuf(p *datamodel.Project) ([]byte, *errors.Report) {
	var b []byte
	b = appendTagString(b, fieldProjectMainModel, string(p.MainModel))
	b = appendTagBytes(b, fieldProjectSimSpecs, encodeSimSpecs(p.SimSpecs))
	for _, name := range p.Dimensions.Names() {
		d, _ := p.Dimensions.Get(name)
		b = appendTagBytes(b, fieldProjectDimensions, encodeDimension(d))
	}
	for _, m := range p.Models {
		b = appendTagBytes(b, fieldProjectModels, encodeModel(m))
	}
	return b, nil
}

func encodeSimSpecs(s datamodel.SimSpecs) []byte {
	var b []byte
	b = appendTagDouble(b, fieldSimSpecsStart, s.Start)
	b = appendTagDouble(b, fieldSimSpecsStop, s.Stop)
	b = appendTagDouble(b, fieldSimSpecsDt, s.Dt)
	if s.SaveStep != nil {
		b = appendTagDouble(b, fieldSimSpecsSaveStep, *s.SaveStep)
	}
	b = appendTagString(b, fieldSimSpecsTimeUnits, s.TimeUnits)
	if s.Method == datamodel.RK4 {
		b = appendTagVarint(b, fieldSimSpecsMethod, methodRK4)
	}
	b = appendTagBool(b, fieldSimSpecsReciprocalDt, s.ReciprocalDt)
	return b
}

func encodeDimension(d datamodel.Dimension) []byte {
	var b []byte
	b = appendTagString(b, fieldDimensionName, d.Name.Original)
	for _, e := range d.Elements {
		b = appendTagString(b, fieldDimensionElements, e.Original)
	}
	return b
}

func encodeModel(m *datamodel.Model) []byte {
	var b []byte
	b = appendTagString(b, fieldModelName, m.Name.Original)
	for _, v := range m.Variables {
		b = appendTagBytes(b, fieldModelVariables, encodeVariable(v))
	}
	for _, c := range m.Connections {
		b = appendTagBytes(b, fieldModelConnections, encodeConnection(c))
	}
	return b
}

func encodeConnection(c datamodel.Connection) []byte {
	var b []byte
	b = appendTagString(b, fieldConnectionStock, string(c.Stock))
	b = appendTagString(b, fieldConnectionFlow, string(c.Flow))
	b = appendTagBool(b, fieldConnectionInflow, c.Inflow)
	return b
}

func encodeVariable(v *datamodel.Variable) []byte {
	var b []byte
	b = appendTagString(b, fieldVariableName, v.Name.Original)
	kind := uint64(kindAuxiliary)
	switch v.Kind {
	case datamodel.StockKind:
		kind = kindStock
	case datamodel.FlowKind:
		kind = kindFlow
	case datamodel.ModuleKind:
		kind = kindModule
	}
	b = appendTagVarint(b, fieldVariableKind, kind)
	b = appendTagString(b, fieldVariableUnits, v.Units)
	b = appendTagString(b, fieldVariableDoc, v.Documentation)
	for _, d := range v.Dimensions {
		b = appendTagString(b, fieldVariableDimensions, string(d))
	}
	b = appendTagString(b, fieldVariableInitialEqn, v.InitialEquation)
	for _, f := range v.Inflows {
		b = appendTagString(b, fieldVariableInflows, string(f))
	}
	for _, f := range v.Outflows {
		b = appendTagString(b, fieldVariableOutflows, string(f))
	}
	b = appendTagBool(b, fieldVariableNonNegative, v.NonNegative)
	b = appendTagString(b, fieldVariableEquation, v.Equation)
	if v.GF != nil {
		b = appendTagBytes(b, fieldVariableGF, encodeGF(v.GF))
	}
	b = appendTagString(b, fieldVariableModelName, string(v.ModelName))
	for _, in := range v.Inputs {
		b = appendTagBytes(b, fieldVariableInputs, encodeModuleInput(in))
	}
	return b
}

func encodeModuleInput(in datamodel.ModuleInput) []byte {
	var b []byte
	b = appendTagString(b, fieldModuleInputDst, in.Dst.Original)
	b = appendTagString(b, fieldModuleInputSrc, in.Src)
	return b
}

func encodeGF(gf *datamodel.GraphicalFunction) []byte {
	var b []byte
	for _, x := range gf.X {
		b = appendTagDouble(b, fieldGFX, x)
	}
	for _, y := range gf.Y {
		b = appendTagDouble(b, fieldGFY, y)
	}
	b = appendTagDouble(b, fieldGFXScale, gf.XScale[0])
	b = appendTagDouble(b, fieldGFXScale, gf.XScale[1])
	b = appendTagDouble(b, fieldGFYScale, gf.YScale[0])
	b = appendTagDouble(b, fieldGFYScale, gf.YScale[1])
	kind := uint64(0)
	switch gf.Kind {
	case datamodel.Discrete:
		kind = gfDiscrete
	case datamodel.Extrapolate:
		kind = gfExtrapolate
	}
	b = appendTagVarint(b, fieldGFKind, kind)
	return b
}

// --- decode ---

// wireFields indexes one message's raw field occurrences by number,
// preserving repeat order within a field — the minimum needed to decode
// this schema's singular and repeated fields alike, since protobuf's wire
// format represents "repeated" as nothing more than the same tag appearing
// more than once.
type wireFields struct {
	varint map[protowire.Number][]uint64
	fixed64 map[protowire.Number][]uint64
	bytes  map[protowire.Number][][]byte
}

func parseWireFields(b []byte, code string) (*wireFields, *errors.Report) {
	w := &wireFields{
		varint:  map[protowire.Number][]uint64{},
		fixed64: map[protowire.Number][]uint64{},
		bytes:   map[protowire.Number][][]byte{},
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.New(code, nil, "malformed protobuf tag")
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.New(code, nil, "malformed protobuf varint")
			}
			w.varint[num] = append(w.varint[num], v)
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, errors.New(code, nil, "malformed protobuf fixed64")
			}
			w.fixed64[num] = append(w.fixed64[num], v)
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.New(code, nil, "malformed protobuf length-delimited field")
			}
			w.bytes[num] = append(w.bytes[num], append([]byte(nil), v...))
			b = b[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, errors.New(code, nil, "malformed protobuf fixed32")
			}
			_ = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.New(code, nil, "malformed protobuf field")
			}
			b = b[n:]
		}
	}
	return w, nil
}

func (w *wireFields) str(num protowire.Number) string {
	vs := w.bytes[num]
	if len(vs) == 0 {
		return ""
	}
	return string(vs[len(vs)-1])
}

func (w *wireFields) strRepeated(num protowire.Number) []string {
	vs := w.bytes[num]
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func (w *wireFields) dbl(num protowire.Number) float64 {
	vs := w.fixed64[num]
	if len(vs) == 0 {
		return 0
	}
	return math.Float64frombits(vs[len(vs)-1])
}

func (w *wireFields) dblRepeated(num protowire.Number) []float64 {
	vs := w.fixed64[num]
	if len(vs) == 0 {
		return nil
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = math.Float64frombits(v)
	}
	return out
}

func (w *wireFields) vint(num protowire.Number) uint64 {
	vs := w.varint[num]
	if len(vs) == 0 {
		return 0
	}
	return vs[len(vs)-1]
}

func (w *wireFields) bool(num protowire.Number) bool {
	return w.vint(num) != 0
}

// OpenProtobuf decodes the canonical wire form back into a *datamodel.Project.
func OpenProtobuf(data []byte) (*datamodel.Project, *errors.Report) {
	w, rep := parseWireFields(data, errors.IMP003)
	if rep != nil {
		return nil, rep
	}

	p := datamodel.NewProject()
	p.MainModel = ident.New(w.str(fieldProjectMainModel)).Canonical
	if raw := w.bytes[fieldProjectSimSpecs]; len(raw) > 0 {
		specs, rep := decodeSimSpecs(raw[len(raw)-1])
		if rep != nil {
			return nil, rep
		}
		p.SimSpecs = specs
	}
	for _, raw := range w.bytes[fieldProjectDimensions] {
		d, rep := decodeDimension(raw)
		if rep != nil {
			return nil, rep
		}
		p.Dimensions.Add(d)
	}
	for _, raw := range w.bytes[fieldProjectModels] {
		m, rep := decodeModel(raw)
		if rep != nil {
			return nil, rep
		}
		p.AddModel(m)
	}
	if len(p.Models) > 0 && w.str(fieldProjectMainModel) == "" {
		p.MainModel = p.Models[0].Name.Canonical
	}
	return p, nil
}

func decodeSimSpecs(raw []byte) (datamodel.SimSpecs, *errors.Report) {
	w, rep := parseWireFields(raw, errors.IMP003)
	if rep != nil {
		return datamodel.SimSpecs{}, rep
	}
	s := datamodel.SimSpecs{
		Start: w.dbl(fieldSimSpecsStart), Stop: w.dbl(fieldSimSpecsStop), Dt: w.dbl(fieldSimSpecsDt),
		TimeUnits: w.str(fieldSimSpecsTimeUnits), ReciprocalDt: w.bool(fieldSimSpecsReciprocalDt),
	}
	if len(w.fixed64[fieldSimSpecsSaveStep]) > 0 {
		v := w.dbl(fieldSimSpecsSaveStep)
		s.SaveStep = &v
	}
	if w.vint(fieldSimSpecsMethod) == methodRK4 {
		s.Method = datamodel.RK4
	}
	return s, nil
}

func decodeDimension(raw []byte) (datamodel.Dimension, *errors.Report) {
	w, rep := parseWireFields(raw, errors.IMP003)
	if rep != nil {
		return datamodel.Dimension{}, rep
	}
	names := w.strRepeated(fieldDimensionElements)
	elems := make([]ident.Ident, len(names))
	for i, n := range names {
		elems[i] = ident.New(n)
	}
	return datamodel.Dimension{Name: ident.New(w.str(fieldDimensionName)), Elements: elems}, nil
}

func decodeModel(raw []byte) (*datamodel.Model, *errors.Report) {
	w, rep := parseWireFields(raw, errors.IMP003)
	if rep != nil {
		return nil, rep
	}
	m := &datamodel.Model{Name: ident.New(w.str(fieldModelName))}
	for _, vraw := range w.bytes[fieldModelVariables] {
		v, rep := decodeVariable(vraw)
		if rep != nil {
			return nil, rep
		}
		m.AddVariable(v)
	}
	for _, craw := range w.bytes[fieldModelConnections] {
		cw, rep := parseWireFields(craw, errors.IMP003)
		if rep != nil {
			return nil, rep
		}
		m.Connections = append(m.Connections, datamodel.Connection{
			Stock:  ident.New(cw.str(fieldConnectionStock)).Canonical,
			Flow:   ident.New(cw.str(fieldConnectionFlow)).Canonical,
			Inflow: cw.bool(fieldConnectionInflow),
		})
	}
	return m, nil
}

func decodeVariable(raw []byte) (*datamodel.Variable, *errors.Report) {
	w, rep := parseWireFields(raw, errors.IMP003)
	if rep != nil {
		return nil, rep
	}
	v := &datamodel.Variable{
		Name:            ident.New(w.str(fieldVariableName)),
		Units:           w.str(fieldVariableUnits),
		Documentation:   w.str(fieldVariableDoc),
		Dimensions:      canonSlice(w.strRepeated(fieldVariableDimensions)),
		InitialEquation: w.str(fieldVariableInitialEqn),
		Inflows:         canonSlice(w.strRepeated(fieldVariableInflows)),
		Outflows:        canonSlice(w.strRepeated(fieldVariableOutflows)),
		NonNegative:     w.bool(fieldVariableNonNegative),
		Equation:        w.str(fieldVariableEquation),
		ModelName:       ident.New(w.str(fieldVariableModelName)).Canonical,
	}
	switch w.vint(fieldVariableKind) {
	case kindStock:
		v.Kind = datamodel.StockKind
	case kindFlow:
		v.Kind = datamodel.FlowKind
	case kindModule:
		v.Kind = datamodel.ModuleKind
	default:
		v.Kind = datamodel.AuxiliaryKind
	}
	if raws := w.bytes[fieldVariableGF]; len(raws) > 0 {
		gf, rep := decodeGF(raws[len(raws)-1])
		if rep != nil {
			return nil, rep
		}
		v.GF = gf
	}
	for _, iraw := range w.bytes[fieldVariableInputs] {
		iw, rep := parseWireFields(iraw, errors.IMP003)
		if rep != nil {
			return nil, rep
		}
		v.Inputs = append(v.Inputs, datamodel.ModuleInput{
			Dst: ident.New(iw.str(fieldModuleInputDst)), Src: iw.str(fieldModuleInputSrc),
		})
	}
	return v, nil
}

func decodeGF(raw []byte) (*datamodel.GraphicalFunction, *errors.Report) {
	w, rep := parseWireFields(raw, errors.IMP003)
	if rep != nil {
		return nil, rep
	}
	gf := &datamodel.GraphicalFunction{
		X: w.dblRepeated(fieldGFX),
		Y: w.dblRepeated(fieldGFY),
	}
	if scale := w.dblRepeated(fieldGFXScale); len(scale) == 2 {
		gf.XScale = [2]float64{scale[0], scale[1]}
	}
	if scale := w.dblRepeated(fieldGFYScale); len(scale) == 2 {
		gf.YScale = [2]float64{scale[0], scale[1]}
	}
	switch w.vint(fieldGFKind) {
	case gfDiscrete:
		gf.Kind = datamodel.Discrete
	case gfExtrapolate:
		gf.Kind = datamodel.Extrapolate
	default:
		gf.Kind = datamodel.Continuous
	}
	return gf, nil
}

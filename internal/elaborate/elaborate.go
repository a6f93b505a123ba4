// Package elaborate implements Stage1 of the compiler pipeline (spec.md
// §4.1-§4.2): it resolves each variable's parsed equation (ast.Expr0, the
// output of internal/parser) into ast.Expr2 — array subscripts resolved to
// integer positions, and every module reference (the explicit
// `instance·port` syntax, a user Module variable's bound inputs, or a
// stateful-builtin call like SMTH1) rewritten into an ast.ModuleOutput2
// pointing at a newly discovered module instance.
//
// Stage1 works one model at a time. A model that itself instantiates other
// models (user Module variables) or stdlib templates (stateful builtins)
// produces an Instance entry per instantiation; internal/pipeline resolves
// those entries to actual compiled sub-modules once every model in a
// project has been elaborated, and wires them into a vm.CompiledModule tree.
package elaborate

import (
	"fmt"
	"sort"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/parser"
	"github.com/simlin-go/core/internal/stdlib"
)

// Instance is one module instantiation discovered while elaborating a
// model's equations.
type Instance struct {
	SubModel ident.Canonical               // the stdlib template name, or another model's canonical name
	Stdlib   bool                          // true when SubModel names a stdlib.Template rather than a project model
	Inputs   map[ident.Canonical]ast.Expr2 // input port name -> expression bound against the PARENT model's frame
}

// Result is everything Stage1 produces for one model.
type Result struct {
	// Exprs holds, per variable, the expression codegen must compile: a
	// stock's INITIAL equation (stocks are otherwise integrated, never
	// re-evaluated from Exprs each step), or a flow/auxiliary's equation.
	// Module variables have no entry here; see Instances instead.
	Exprs map[ident.Canonical]ast.Expr2

	// Instances holds every module instantiation this model creates, keyed
	// by a canonical id unique within the model (the user Module variable's
	// own name, or a generated id for a stdlib expansion).
	Instances map[ident.Canonical]*Instance
}

// stdlibPorts gives the positional-argument-to-port-name mapping for each
// stateful builtin (spec.md §4.2 "State lowering"), matching
// internal/stdlib/models.go's template variable names in call-argument
// order. A template's optional trailing arguments (the initial value) are
// left unbound when the call omits them, so the template's own default
// equation (usually `initial = input`) takes over.
var stdlibPorts = map[ident.Canonical][]ident.Canonical{
	"smth1":    {"input", "tau", "initial"},
	"smth3":    {"input", "tau", "initial"},
	"delay1":   {"input", "tau", "initial"},
	"delay3":   {"input", "tau", "initial"},
	"trend":    {"input", "average_time", "initial"},
	"previous": {"input", "initial"},
	"init":     {"input"},
}

type elaborator struct {
	model     *datamodel.Model
	dims      *datamodel.DimensionRegistry
	instances map[ident.Canonical]*Instance
	seq       int
	current   ident.Canonical // variable currently being elaborated, for instance-id generation and error tagging
}

// Model elaborates every variable in m.
func Model(m *datamodel.Model, dims *datamodel.DimensionRegistry) (*Result, *errors.Report) {
	e := &elaborator{model: m, dims: dims, instances: make(map[ident.Canonical]*Instance)}
	exprs := make(map[ident.Canonical]ast.Expr2, len(m.Variables))

	names := make([]ident.Canonical, len(m.Variables))
	for i, v := range m.Variables {
		names[i] = v.Name.Canonical
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		v, _ := m.ByName(name)
		e.current = name

		if v.Kind == datamodel.ModuleKind {
			if rep := e.elaborateModuleVariable(v); rep != nil {
				return nil, rep.WithVariable(string(name))
			}
			continue
		}

		text, ok := v.EquationText()
		if !ok || text == "" {
			continue
		}
		expr0, perrs := parser.ParseEquation(text)
		if len(perrs) > 0 {
			return nil, perrs[0].WithVariable(string(name))
		}
		expr2, rep := e.lower(expr0)
		if rep != nil {
			return nil, rep.WithVariable(string(name))
		}
		if v.GF != nil {
			expr2 = ast.NewLookup2(expr0.Span(), name, expr2)
		}
		exprs[name] = expr2
	}

	return &Result{Exprs: exprs, Instances: e.instances}, nil
}

// elaborateModuleVariable parses and lowers each of a user Module
// variable's bound input expressions, and registers the instance. The
// module variable itself contributes no Exprs entry: references to it go
// through ModuleOutput2, parsed from `instance·port` syntax. A bare
// reference to the module's name in another equation is rejected by
// lowerVar (MDL002), since every reference to a module must name a port.
func (e *elaborator) elaborateModuleVariable(v *datamodel.Variable) *errors.Report {
	inputs := make(map[ident.Canonical]ast.Expr2, len(v.Inputs))
	for _, in := range v.Inputs {
		expr0, perrs := parser.ParseEquation(in.Src)
		if len(perrs) > 0 {
			return perrs[0]
		}
		expr2, rep := e.lower(expr0)
		if rep != nil {
			return rep
		}
		inputs[in.Dst.Canonical] = expr2
	}
	e.instances[v.Name.Canonical] = &Instance{
		SubModel: v.ModelName,
		Stdlib:   false,
		Inputs:   inputs,
	}
	return nil
}

// lower recursively rewrites one Expr0 subtree to Expr2.
func (e *elaborator) lower(expr ast.Expr0) (ast.Expr2, *errors.Report) {
	switch n := expr.(type) {
	case *ast.NumberLit0:
		return ast.NewNumberLit2(n.Span(), n.Value), nil
	case *ast.Time0:
		return ast.NewTime2(n.Span()), nil
	case *ast.Var0:
		return e.lowerVar(n)
	case *ast.Subscript0:
		return e.lowerSubscript(n)
	case *ast.Unary0:
		x, rep := e.lower(n.X)
		if rep != nil {
			return nil, rep
		}
		return ast.NewUnary2(n.Span(), n.Op, x), nil
	case *ast.Binary0:
		x, rep := e.lower(n.X)
		if rep != nil {
			return nil, rep
		}
		y, rep := e.lower(n.Y)
		if rep != nil {
			return nil, rep
		}
		return ast.NewBinary2(n.Span(), n.Op, x, y), nil
	case *ast.If0:
		cond, rep := e.lower(n.Cond)
		if rep != nil {
			return nil, rep
		}
		then, rep := e.lower(n.Then)
		if rep != nil {
			return nil, rep
		}
		els, rep := e.lower(n.Else)
		if rep != nil {
			return nil, rep
		}
		return ast.NewIf2(n.Span(), cond, then, els), nil
	case *ast.Call0:
		return e.lowerCall(n)
	case *ast.ModuleRef0:
		instanceVar, ok := e.model.ByName(n.Instance.Canonical)
		if !ok || instanceVar.Kind != datamodel.ModuleKind {
			return nil, errors.New(errors.MDL002, span(n), "unknown module instance "+string(n.Instance.Canonical))
		}
		return ast.NewModuleOutput2(n.Span(), n.Instance.Canonical, n.Port.Canonical), nil
	case *ast.StringLit0:
		return nil, errors.New(errors.MDL002, span(n), "string literals are not valid in numeric equations")
	default:
		return nil, errors.New(errors.MDL002, span(n), fmt.Sprintf("unsupported expression node %T", n))
	}
}

func span(e ast.Expr0) *ast.Span {
	sp := e.Span()
	return &sp
}

func (e *elaborator) lowerVar(v *ast.Var0) (ast.Expr2, *errors.Report) {
	name := v.Name.Canonical
	mv, ok := e.model.ByName(name)
	if !ok {
		return nil, errors.New(errors.MDL002, span(v), "unknown variable "+string(name))
	}
	if mv.Kind == datamodel.ModuleKind {
		return nil, errors.New(errors.MDL002, span(v), "module "+string(name)+" must be referenced through a port")
	}
	return ast.NewVar2(v.Span(), name), nil
}

// lowerSubscript resolves a[elem, *] against the base variable's declared
// dimensions, producing an Index2 with one zero-based position (or -1 for
// a wildcard axis) per dimension.
func (e *elaborator) lowerSubscript(s *ast.Subscript0) (ast.Expr2, *errors.Report) {
	baseVar, ok := s.Base.(*ast.Var0)
	if !ok {
		return nil, errors.New(errors.MDL007, span(s), "array subscript base must be a bare variable reference")
	}
	v, ok := e.model.ByName(baseVar.Name.Canonical)
	if !ok {
		return nil, errors.New(errors.MDL002, span(s), "unknown variable "+string(baseVar.Name.Canonical))
	}
	if len(v.Dimensions) != len(s.Indices) {
		return nil, errors.New(errors.MDL006, span(s), fmt.Sprintf("%s has %d dimension(s), %d subscript(s) given", v.Name.Canonical, len(v.Dimensions), len(s.Indices)))
	}
	if e.dims == nil {
		return nil, errors.New(errors.MDL005, span(s), "no dimension registry available to resolve subscripts")
	}
	indices := make([]int, len(s.Indices))
	for i, idx := range s.Indices {
		if idx.Wildcard {
			indices[i] = -1
			continue
		}
		d, ok := e.dims.Get(v.Dimensions[i])
		if !ok {
			return nil, errors.New(errors.MDL005, span(s), "unknown dimension "+string(v.Dimensions[i]))
		}
		pos, ok := d.IndexOf(idx.Name.Canonical)
		if !ok {
			return nil, errors.New(errors.MDL005, span(s), fmt.Sprintf("%s is not an element of dimension %s", idx.Name.Original, v.Dimensions[i]))
		}
		indices[i] = pos
	}
	base, rep := e.lower(s.Base)
	if rep != nil {
		return nil, rep
	}
	return ast.NewIndex2(s.Span(), base, indices), nil
}

// lowerCall dispatches a Call0 to a pure Call2, a Lookup2 (the `lookup`
// pseudo-builtin, explicit table indexing), or — for a stateful builtin —
// expands it into a fresh module instance and returns a ModuleOutput2
// pointing at its "output" port (spec.md §4.2 "State lowering").
func (e *elaborator) lowerCall(c *ast.Call0) (ast.Expr2, *errors.Report) {
	if c.Builtin == "lookup" {
		return e.lowerLookupCall(c)
	}

	meta, ok := stdlib.Lookup(c.Builtin)
	if !ok {
		return nil, errors.New(errors.MDL002, span(c), "unknown builtin "+string(c.Builtin))
	}
	if len(c.Args) < meta.MinArgs || len(c.Args) > meta.MaxArgs {
		return nil, errors.New(errors.MDL003, span(c), fmt.Sprintf("%s takes %d-%d arguments, %d given", c.Builtin, meta.MinArgs, meta.MaxArgs, len(c.Args)))
	}

	if !meta.Stateful {
		args := make([]ast.Expr2, len(c.Args))
		for i, a := range c.Args {
			arg, rep := e.lower(a)
			if rep != nil {
				return nil, rep
			}
			args[i] = arg
		}
		return ast.NewCall2(c.Span(), c.Builtin, args), nil
	}

	return e.expandStateful(c, meta)
}

// expandStateful binds a stateful builtin's call-site arguments to the
// stdlib template's port names, registers the resulting module instance
// under a fresh id scoped to the owning variable, and returns the
// ModuleOutput2 the caller's Exprs entry should hold.
func (e *elaborator) expandStateful(c *ast.Call0, meta *stdlib.Meta) (ast.Expr2, *errors.Report) {
	ports, ok := stdlibPorts[c.Builtin]
	if !ok {
		return nil, errors.New(errors.MDL002, span(c), "no port mapping for stateful builtin "+string(c.Builtin))
	}

	inputs := make(map[ident.Canonical]ast.Expr2, len(c.Args))
	for i, a := range c.Args {
		if i >= len(ports) {
			break
		}
		arg, rep := e.lower(a)
		if rep != nil {
			return nil, rep
		}
		inputs[ports[i]] = arg
	}

	id := e.nextInstanceID(c.Builtin)
	e.instances[id] = &Instance{SubModel: c.Builtin, Stdlib: true, Inputs: inputs}
	return ast.NewModuleOutput2(c.Span(), id, "output"), nil
}

// nextInstanceID generates a unique, deterministic instance id for a
// stdlib expansion, scoped to the variable whose equation contains the
// call and disambiguated with a sequence number for variables that call
// more than one stateful builtin.
func (e *elaborator) nextInstanceID(builtin ident.Canonical) ident.Canonical {
	e.seq++
	return ident.Canonical(fmt.Sprintf("%s_%s_%d", builtin, e.current, e.seq))
}

func (e *elaborator) lowerLookupCall(c *ast.Call0) (ast.Expr2, *errors.Report) {
	if len(c.Args) != 2 {
		return nil, errors.New(errors.MDL003, span(c), "lookup takes exactly 2 arguments: table name and x")
	}
	tableVar, ok := c.Args[0].(*ast.Var0)
	if !ok {
		return nil, errors.New(errors.MDL003, span(c), "lookup's first argument must be a bare variable name")
	}
	x, rep := e.lower(c.Args[1])
	if rep != nil {
		return nil, rep
	}
	return ast.NewLookup2(c.Span(), tableVar.Name.Canonical, x), nil
}

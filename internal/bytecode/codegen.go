package bytecode

import (
	"sort"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/layout"
)

// LookupTable is the resolved graphical-function data an OpLookup indexes
// into (spec.md §4.4 "Lookup table encoding"): x-coordinates (already
// defaulted to equal spacing when the source table omitted them), the
// matching y-coordinates, the declared scale bounds, and the interpolation
// kind.
type LookupTable struct {
	X, Y   []float64
	XScale [2]float64
	YScale [2]float64
	Kind   datamodel.GFKind
}

// Module is one model instantiation's compiled bytecode: a Program per
// variable plus the two tables its OpLookup/OpModuleCall instructions index
// into (spec.md §4.4 "Per-module output: opcode stream, lookup/graphical-
// function table, module-call table, and a metadata header").
type Module struct {
	Programs  map[ident.Canonical]Program
	Lookups   []LookupTable
	Instances []ident.Canonical // instance id -> canonical name, the module-call table
}

// compiler accumulates the lookup and instance tables shared across every
// variable compiled for one Module, so ids are assigned once.
type compiler struct {
	layout      *layout.Layout
	model       *datamodel.Model
	dims        *datamodel.DimensionRegistry
	lookupIdx   map[ident.Canonical]int
	lookups     []LookupTable
	instanceIdx map[ident.Canonical]int
	instances   []ident.Canonical
	instrs      []Instr
}

// CompileModule compiles every variable's Expr2 (as produced by
// internal/elaborate) into bytecode, in canonical name order for
// deterministic table ids.
func CompileModule(m *datamodel.Model, dims *datamodel.DimensionRegistry, exprs map[ident.Canonical]ast.Expr2, l *layout.Layout) (*Module, *errors.Report) {
	c := &compiler{
		layout:      l,
		model:       m,
		dims:        dims,
		lookupIdx:   make(map[ident.Canonical]int),
		instanceIdx: make(map[ident.Canonical]int),
	}
	names := make([]ident.Canonical, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	programs := make(map[ident.Canonical]Program, len(names))
	for _, name := range names {
		prog, rep := c.compileVariable(name, exprs[name])
		if rep != nil {
			return nil, rep
		}
		programs[name] = prog
	}
	return &Module{Programs: programs, Lookups: c.lookups, Instances: c.instances}, nil
}

// spanOf takes the address of an Expr2's span, since Expr2.Span()
// returns a value and errors.New wants a pointer.
func spanOf(e ast.Expr2) *ast.Span {
	sp := e.Span()
	return &sp
}

// CompileExpr compiles expr to a value-producing instruction stream with no
// trailing store, for contexts that need the plain value rather than a
// variable assignment: module-instance input bindings and other ad hoc
// argument evaluation. It does not share the lookup/instance tables of a
// CompileModule call, so expr must not itself reference a graphical
// function or a module instance.
func CompileExpr(m *datamodel.Model, dims *datamodel.DimensionRegistry, l *layout.Layout, expr ast.Expr2) (Program, *errors.Report) {
	c := &compiler{
		layout:      l,
		model:       m,
		dims:        dims,
		lookupIdx:   make(map[ident.Canonical]int),
		instanceIdx: make(map[ident.Canonical]int),
	}
	if rep := c.emit(expr); rep != nil {
		return Program{}, rep
	}
	return Program{Instrs: c.instrs}, nil
}

func (c *compiler) compileVariable(name ident.Canonical, expr ast.Expr2) (Program, *errors.Report) {
	c.instrs = nil
	if rep := c.emit(expr); rep != nil {
		return Program{}, rep
	}
	slot, ok := c.layout.Offset(name)
	if !ok {
		return Program{}, errors.New(errors.MDL002, nil, "no layout offset for variable "+string(name))
	}
	c.instrs = append(c.instrs, Instr{Op: OpStoreVar, Operand: slot.Offset})
	return Program{Instrs: c.instrs}, nil
}

func (c *compiler) emit(expr ast.Expr2) *errors.Report {
	switch e := expr.(type) {
	case *ast.NumberLit2:
		c.instrs = append(c.instrs, Instr{Op: OpLoadConst, Const: e.Value})
		return nil
	case *ast.Time2:
		c.instrs = append(c.instrs, Instr{Op: OpLoadTime})
		return nil
	case *ast.Var2:
		slot, ok := c.layout.Offset(e.Name)
		if !ok {
			return errors.New(errors.MDL002, spanOf(e), "unknown variable "+string(e.Name))
		}
		c.instrs = append(c.instrs, Instr{Op: OpLoadVar, Operand: slot.Offset})
		return nil
	case *ast.Index2:
		return c.emitIndex(e)
	case *ast.Unary2:
		return c.emitUnary(e)
	case *ast.Binary2:
		return c.emitBinary(e)
	case *ast.If2:
		return c.emitIf(e)
	case *ast.Call2:
		return c.emitCall(e)
	case *ast.Lookup2:
		return c.emitLookup(e)
	case *ast.ModuleOutput2:
		return c.emitModuleOutput(e)
	default:
		return errors.New(errors.MDL002, spanOf(expr), "unsupported expression node in codegen")
	}
}

func (c *compiler) emitIndex(e *ast.Index2) *errors.Report {
	base, ok := e.Base.(*ast.Var2)
	if !ok {
		return errors.New(errors.MDL007, spanOf(e), "array subscript base must be a variable reference")
	}
	for _, idx := range e.Indices {
		if idx < 0 {
			return errors.New(errors.MDL007, spanOf(e), "wildcard array subscripts must be expanded before codegen")
		}
	}
	v, ok := c.model.ByName(base.Name)
	if !ok {
		return errors.New(errors.MDL002, spanOf(e), "unknown variable "+string(base.Name))
	}
	slot, ok := c.layout.Offset(base.Name)
	if !ok {
		return errors.New(errors.MDL002, spanOf(e), "no layout offset for variable "+string(base.Name))
	}
	flat, rep := c.flatIndex(v, e.Indices)
	if rep != nil {
		return rep
	}
	c.instrs = append(c.instrs, Instr{Op: OpLoadVar, Operand: slot.Offset + flat})
	return nil
}

// flatIndex resolves a per-dimension index tuple to a single row-major
// offset within a variable's array storage, matching the element order
// internal/layout assumes when it sizes the variable's slot range.
func (c *compiler) flatIndex(v *datamodel.Variable, indices []int) (int, *errors.Report) {
	if c.dims == nil || len(v.Dimensions) != len(indices) {
		return 0, errors.New(errors.MDL006, nil, "mismatched dimensions for "+string(v.Name.Canonical))
	}
	flat := 0
	for i, dimName := range v.Dimensions {
		d, ok := c.dims.Get(dimName)
		if !ok {
			return 0, errors.New(errors.MDL005, nil, "unknown dimension "+string(dimName))
		}
		flat = flat*d.Size() + indices[i]
	}
	return flat, nil
}

func (c *compiler) emitUnary(e *ast.Unary2) *errors.Report {
	if rep := c.emit(e.X); rep != nil {
		return rep
	}
	switch e.Op {
	case "-":
		c.instrs = append(c.instrs, Instr{Op: OpNeg})
	case "+":
		// unary plus is a no-op
	case "not":
		c.instrs = append(c.instrs, Instr{Op: OpNot})
	default:
		return errors.New(errors.MDL002, spanOf(e), "unknown unary operator "+e.Op)
	}
	return nil
}

var binaryOps = map[string]Op{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "^": OpPow,
	"=": OpEq, "<>": OpNeq, "<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
	"and": OpAnd, "or": OpOr,
}

func (c *compiler) emitBinary(e *ast.Binary2) *errors.Report {
	if rep := c.emit(e.X); rep != nil {
		return rep
	}
	if rep := c.emit(e.Y); rep != nil {
		return rep
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		return errors.New(errors.MDL002, spanOf(e), "unknown binary operator "+e.Op)
	}
	c.instrs = append(c.instrs, Instr{Op: op})
	return nil
}

// emitIf lowers `if cond then a else b` to a conditional jump over the
// then-branch, landing on the else-branch, followed by an unconditional
// jump past it: Cond; JumpIfFalse(elseAddr); Then; Jump(endAddr); Else.
func (c *compiler) emitIf(e *ast.If2) *errors.Report {
	if rep := c.emit(e.Cond); rep != nil {
		return rep
	}
	jumpIfFalseIdx := len(c.instrs)
	c.instrs = append(c.instrs, Instr{Op: OpJumpIfFalse})

	if rep := c.emit(e.Then); rep != nil {
		return rep
	}
	jumpIdx := len(c.instrs)
	c.instrs = append(c.instrs, Instr{Op: OpJump})

	c.instrs[jumpIfFalseIdx].Operand = len(c.instrs)
	if rep := c.emit(e.Else); rep != nil {
		return rep
	}
	c.instrs[jumpIdx].Operand = len(c.instrs)
	return nil
}

func (c *compiler) emitCall(e *ast.Call2) *errors.Report {
	for _, arg := range e.Args {
		if rep := c.emit(arg); rep != nil {
			return rep
		}
	}
	c.instrs = append(c.instrs, Instr{Op: OpCallBuiltin, Operand: len(e.Args), Name: string(e.Builtin)})
	return nil
}

func (c *compiler) emitLookup(e *ast.Lookup2) *errors.Report {
	if rep := c.emit(e.X); rep != nil {
		return rep
	}
	id, rep := c.lookupID(e.Of)
	if rep != nil {
		return rep
	}
	c.instrs = append(c.instrs, Instr{Op: OpLookup, Operand: id, Name: string(e.Of)})
	return nil
}

func (c *compiler) lookupID(of ident.Canonical) (int, *errors.Report) {
	if id, ok := c.lookupIdx[of]; ok {
		return id, nil
	}
	v, ok := c.model.ByName(of)
	if !ok || v.GF == nil {
		return 0, errors.New(errors.CMP003, nil, "no graphical function attached to "+string(of))
	}
	xs, ys := v.GF.Points()
	id := len(c.lookups)
	c.lookups = append(c.lookups, LookupTable{
		X: xs, Y: ys, XScale: v.GF.XScale, YScale: v.GF.YScale, Kind: v.GF.Kind,
	})
	c.lookupIdx[of] = id
	return id, nil
}

func (c *compiler) emitModuleOutput(e *ast.ModuleOutput2) *errors.Report {
	id := c.instanceID(e.Instance)
	c.instrs = append(c.instrs, Instr{Op: OpModuleCall, Operand: id, Name: string(e.Port)})
	return nil
}

func (c *compiler) instanceID(instance ident.Canonical) int {
	if id, ok := c.instanceIdx[instance]; ok {
		return id
	}
	id := len(c.instances)
	c.instances = append(c.instances, instance)
	c.instanceIdx[instance] = id
	return id
}

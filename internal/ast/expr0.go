package ast

import (
	"fmt"
	"strings"

	"github.com/simlin-go/core/internal/ident"
)

// Expr0 is the direct parse tree of an equation: the output of
// internal/parser, before dimension resolution or module-reference
// rewriting. Every node kind implements expr0() as a marker so the Go
// compiler enforces exhaustiveness at each type-switch call site (spec.md
// §9 "Dynamic dispatch on variable kind" applies equally to AST node
// dispatch: interfaces for the cross-cutting walkers, not for the data
// itself).
type Expr0 interface {
	Span() Span
	String() string
	expr0()
}

type base struct {
	span Span
}

func (b base) Span() Span { return b.span }

// NumberLit0 is a numeric literal.
type NumberLit0 struct {
	base
	Value float64
}

func NewNumberLit0(sp Span, v float64) *NumberLit0 { return &NumberLit0{base{sp}, v} }
func (*NumberLit0) expr0()                         {}
func (n *NumberLit0) String() string               { return fmt.Sprintf("%g", n.Value) }

// StringLit0 is a quoted string literal, used only as an argument to
// string-accepting builtins (none in the base registry, reserved for
// forward compatibility with format-specific extensions).
type StringLit0 struct {
	base
	Value string
}

func (*StringLit0) expr0()           {}
func (s *StringLit0) String() string { return fmt.Sprintf("%q", s.Value) }

// Var0 is a reference to another variable by name.
type Var0 struct {
	base
	Name ident.Ident
}

func NewVar0(sp Span, name ident.Ident) *Var0 { return &Var0{base{sp}, name} }
func (*Var0) expr0()                          {}
func (v *Var0) String() string                { return v.Name.Original }

// Time0 is a reference to the TIME builtin (kept distinct from Var0 since
// it never resolves against the variable table).
type Time0 struct{ base }

func (*Time0) expr0()         {}
func (*Time0) String() string { return "TIME" }

// Subscript0 is an unresolved dimension subscript on a variable reference,
// e.g. `population[region]` or `flow[region, *]`. Each index is either a
// named dimension element, a wildcard "*", or a range "a:b"; resolution to
// integer positions happens in internal/elaborate.
type Subscript0 struct {
	base
	Base    Expr0
	Indices []DimIndex0
}

func (*Subscript0) expr0() {}
func (s *Subscript0) String() string {
	parts := make([]string, len(s.Indices))
	for i, idx := range s.Indices {
		parts[i] = idx.String()
	}
	return fmt.Sprintf("%s[%s]", s.Base, strings.Join(parts, ", "))
}

// DimIndex0 is one subscript position.
type DimIndex0 struct {
	Wildcard bool        // "*": every element of the dimension
	Name     ident.Ident // named element or named dimension, when !Wildcard
}

func (d DimIndex0) String() string {
	if d.Wildcard {
		return "*"
	}
	return d.Name.Original
}

// Unary0 is a prefix operator: "-" or "not".
type Unary0 struct {
	base
	Op string
	X  Expr0
}

func (*Unary0) expr0()           {}
func (u *Unary0) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.X) }

// Binary0 is an infix operator: arithmetic, comparison, or boolean.
type Binary0 struct {
	base
	Op   string
	X, Y Expr0
}

func (*Binary0) expr0() {}
func (b *Binary0) String() string {
	return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y)
}

// If0 is `if Cond then Then else Else`.
type If0 struct {
	base
	Cond, Then, Else Expr0
}

func (*If0) expr0() {}
func (i *If0) String() string {
	return fmt.Sprintf("if %s then %s else %s", i.Cond, i.Then, i.Else)
}

// Call0 is a builtin function call, name-dispatched via the canonical-form
// registry in internal/stdlib (spec.md §4.1). Module instantiation calls
// for stateful builtins (SMTH1, DELAY1, ...) are represented the same way
// and expanded into module instances during elaboration.
type Call0 struct {
	base
	Builtin ident.Canonical
	Args    []Expr0
}

func (*Call0) expr0() {}
func (c *Call0) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Builtin, strings.Join(parts, ", "))
}

// ModuleRef0 is an unresolved `module_instance·port` reference (spec.md
// §4.1 "references of the form module·port"). Resolved in internal/elaborate
// to ModuleOutput2.
type ModuleRef0 struct {
	base
	Instance ident.Ident
	Port     ident.Ident
}

func (*ModuleRef0) expr0() {}
func (m *ModuleRef0) String() string {
	return fmt.Sprintf("%s·%s", m.Instance.Original, m.Port.Original)
}

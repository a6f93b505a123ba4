package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/simlin-go/core/internal/ident"
)

// Expr2 is the lowered AST produced by internal/elaborate's Stage1: dimension
// subscripts are resolved to integer positions and module references (both
// explicit `module·port` syntax and stdlib-builtin calls like `SMTH1(x, tau)`)
// are rewritten to ModuleOutput2 nodes pointing at a module instance's output.
// internal/bytecode compiles Expr2 directly to opcodes; internal/polarity and
// internal/causal walk Expr2 to build edges and infer signs.
type Expr2 interface {
	Span() Span
	String() string
	expr2()
}

// NumberLit2 is a numeric literal.
type NumberLit2 struct {
	base
	Value float64
}

func (*NumberLit2) expr2()           {}
func (n *NumberLit2) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

// Var2 is a resolved reference to a scalar (or whole-array) variable within
// the current module instantiation.
type Var2 struct {
	base
	Name ident.Canonical
}

func (*Var2) expr2()           {}
func (v *Var2) String() string { return string(v.Name) }

// Time2 references the simulation clock.
type Time2 struct{ base }

func (*Time2) expr2()         {}
func (*Time2) String() string { return "TIME" }

// Index2 is a resolved array subscript: Indices holds one zero-based
// position (or -1 for a wildcard axis, which codegen rejects with MDL007
// rather than expanding) per dimension of the array referenced by Base.
type Index2 struct {
	base
	Base    Expr2
	Indices []int
}

func (*Index2) expr2() {}
func (x *Index2) String() string {
	parts := make([]string, len(x.Indices))
	for i, idx := range x.Indices {
		if idx < 0 {
			parts[i] = "*"
		} else {
			parts[i] = strconv.Itoa(idx)
		}
	}
	return fmt.Sprintf("%s[%s]", x.Base, strings.Join(parts, ","))
}

// Unary2 is a prefix operator.
type Unary2 struct {
	base
	Op string
	X  Expr2
}

func (*Unary2) expr2()           {}
func (u *Unary2) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.X) }

// Binary2 is an infix operator.
type Binary2 struct {
	base
	Op   string
	X, Y Expr2
}

func (*Binary2) expr2() {}
func (b *Binary2) String() string {
	return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y)
}

// If2 is `if Cond then Then else Else`.
type If2 struct {
	base
	Cond, Then, Else Expr2
}

func (*If2) expr2() {}
func (i *If2) String() string {
	return fmt.Sprintf("if %s then %s else %s", i.Cond, i.Then, i.Else)
}

// Call2 is a call to a pure builtin (spec.md §4.1 registry), after any
// stateful builtins have already been rewritten to ModuleOutput2.
type Call2 struct {
	base
	Builtin ident.Canonical
	Args    []Expr2
}

func (*Call2) expr2() {}
func (c *Call2) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Builtin, strings.Join(parts, ", "))
}

// Lookup2 evaluates a graphical function attached to variable Of at point X.
// Of is the canonical name of the variable owning the graphical function
// (the variable's own equation, when it has one, supplies X implicitly; a
// standalone `LOOKUP(table, x)` call supplies X explicitly).
type Lookup2 struct {
	base
	Of ident.Canonical
	X  Expr2
}

func (*Lookup2) expr2() {}
func (l *Lookup2) String() string {
	return fmt.Sprintf("LOOKUP(%s, %s)", l.Of, l.X)
}

// ModuleOutput2 references the output port of a module instance (whether
// the instance is a user-authored Module variable or a stdlib builtin
// expansion like SMTH1). Module instances are opaque vertices at the parent
// level (spec.md §4.6): this node never exposes the module's internals to
// the referencing expression.
type ModuleOutput2 struct {
	base
	Instance ident.Canonical
	Port     ident.Canonical
}

func (*ModuleOutput2) expr2() {}
func (m *ModuleOutput2) String() string {
	return fmt.Sprintf("%s·%s", m.Instance, m.Port)
}

// Package ast holds the equation expression AST, in two progressively
// lowered forms:
//
//   - Expr0: the direct parse tree produced by internal/parser — literals,
//     identifiers, unresolved dimension subscripts, operators, builtin
//     calls, if-then-else, and graphical-function calls.
//   - Expr2: the AST after internal/elaborate's Stage1 lowering — dimension
//     subscripts are resolved to integer positions and module references
//     are rewritten to module-instance output identifiers.
//
// There is no separate "Expr1"; spec.md names Expr0/Expr1/Expr2 as the
// conceptual stages of lowering, but this implementation performs the
// dimension-resolution and module-rewrite passes together in one elaborate
// step, so only the before (Expr0) and after (Expr2) ASTs are materialized.
package ast

import "fmt"

// Pos is a single position in an equation's source text.
type Pos struct {
	Offset int // byte offset within the equation text
	Line   int // 1-based line (equations are almost always one line)
	Column int // 1-based column
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open [Start, End) byte range within the equation text,
// used to localize parse and model errors (spec.md §4.1, §7).
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// Merge returns the smallest span containing both s and other.
func (s Span) Merge(other Span) Span {
	start, end := s.Start, s.End
	if other.Start.Offset < start.Offset {
		start = other.Start
	}
	if other.End.Offset > end.Offset {
		end = other.End
	}
	return Span{Start: start, End: end}
}

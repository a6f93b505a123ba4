package ast

import "github.com/simlin-go/core/internal/ident"

// Children2 returns the direct subexpressions of e, in evaluation order.
// Used by internal/causal (dependency extraction), internal/polarity
// (AST-driven sign propagation), and internal/ltm (PREVIOUS-wrapping
// rewrites) so that each only needs one generic traversal instead of a
// bespoke switch per concern.
func Children2(e Expr2) []Expr2 {
	switch n := e.(type) {
	case *NumberLit2, *Var2, *Time2, *ModuleOutput2:
		return nil
	case *Index2:
		return []Expr2{n.Base}
	case *Unary2:
		return []Expr2{n.X}
	case *Binary2:
		return []Expr2{n.X, n.Y}
	case *If2:
		return []Expr2{n.Cond, n.Then, n.Else}
	case *Call2:
		return n.Args
	case *Lookup2:
		return []Expr2{n.X}
	default:
		return nil
	}
}

// Rebuild reconstructs e with its children replaced by newChildren, which
// must have the same length and order as Children2(e) returned. Used by
// ltm's ceteris-paribus PREVIOUS-wrapping, which rewrites the AST rather
// than the equation text so that identifier/operator substrings are never
// corrupted (spec.md §4.9).
func Rebuild(e Expr2, newChildren []Expr2) Expr2 {
	switch n := e.(type) {
	case *NumberLit2, *Var2, *Time2, *ModuleOutput2:
		return e
	case *Index2:
		return &Index2{n.base, newChildren[0], n.Indices}
	case *Unary2:
		return &Unary2{n.base, n.Op, newChildren[0]}
	case *Binary2:
		return &Binary2{n.base, n.Op, newChildren[0], newChildren[1]}
	case *If2:
		return &If2{n.base, newChildren[0], newChildren[1], newChildren[2]}
	case *Call2:
		return &Call2{n.base, n.Builtin, newChildren}
	case *Lookup2:
		return &Lookup2{n.base, n.Of, newChildren[0]}
	default:
		return e
	}
}

// Vars2 collects every distinct canonical variable name directly referenced
// by e: Var2, the base of an Index2, and the instance of a ModuleOutput2.
// TIME and numeric literals are not variables. This is the dependency
// extraction used by internal/causal and internal/depgraph.
func Vars2(e Expr2) []ident.Canonical {
	seen := map[ident.Canonical]bool{}
	var out []ident.Canonical
	var walk func(Expr2)
	walk = func(e Expr2) {
		switch n := e.(type) {
		case *Var2:
			if !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case *ModuleOutput2:
			if !seen[n.Instance] {
				seen[n.Instance] = true
				out = append(out, n.Instance)
			}
		default:
			for _, c := range Children2(e) {
				walk(c)
			}
		}
	}
	walk(e)
	return out
}

// ContainsVar2 reports whether e references name anywhere in its tree.
func ContainsVar2(e Expr2, name ident.Canonical) bool {
	for _, v := range Vars2(e) {
		if v == name {
			return true
		}
	}
	return false
}

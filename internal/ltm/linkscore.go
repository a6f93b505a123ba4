// Package ltm implements Loops That Matter: link/loop/relative-loop-score
// synthetic variable synthesis (spec.md §4.9) and discovery-mode loop
// ranking (spec.md §4.10). It sits downstream of internal/causal and
// internal/loops: causal builds the variable graph, loops enumerates
// elementary circuits, and this package scores them and augments the
// model with the synthetic variables that make loop dominance observable
// in a simulation run.
package ltm

import (
	"strconv"
	"strings"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
)

func numLit(v float64) ast.Expr2   { return ast.NewNumberLit2(ast.Span{}, v) }
func zero() ast.Expr2              { return numLit(0) }
func timeRef() ast.Expr2           { return ast.NewTime2(ast.Span{}) }
func varRef(name ident.Canonical) ast.Expr2 { return ast.NewVar2(ast.Span{}, name) }

func previousOf(e ast.Expr2) ast.Expr2 {
	return ast.NewCall2(ast.Span{}, "previous", []ast.Expr2{e})
}

func callFn(name ident.Canonical, args ...ast.Expr2) ast.Expr2 {
	return ast.NewCall2(ast.Span{}, name, args)
}

func binary(op string, x, y ast.Expr2) ast.Expr2 { return ast.NewBinary2(ast.Span{}, op, x, y) }

func ifExpr(cond, then, els ast.Expr2) ast.Expr2 { return ast.NewIf2(ast.Span{}, cond, then, els) }

func safediv(num, denom, def ast.Expr2) ast.Expr2 { return callFn("safediv", num, denom, def) }

// refFor builds the expression that reads name's current value: a plain
// variable reference when name is one of model's own variables, or the
// module-output reference when name is a causal-graph vertex with no
// backing Variable (an inline stateful-builtin instance, or an explicit
// Module variable — both are read through their output port).
func refFor(model *datamodel.Model, name ident.Canonical) ast.Expr2 {
	if v, ok := model.ByName(name); ok && v.Kind != datamodel.ModuleKind {
		return varRef(name)
	}
	return ast.NewModuleOutput2(ast.Span{}, name, "output")
}

// wrapPrevious rebuilds e with every Var2/ModuleOutput2 reference other
// than keep wrapped in PREVIOUS(·), walking the AST rather than rewriting
// equation text so identifiers like x inside x_rate, and builtin names,
// are never corrupted (spec.md §4.9).
func wrapPrevious(e ast.Expr2, keep ident.Canonical) ast.Expr2 {
	switch n := e.(type) {
	case *ast.Var2:
		if n.Name == keep {
			return n
		}
		return previousOf(n)
	case *ast.ModuleOutput2:
		if n.Instance == keep {
			return n
		}
		return previousOf(n)
	case *ast.NumberLit2, *ast.Time2:
		return n
	default:
		children := ast.Children2(e)
		if children == nil {
			return e
		}
		newChildren := make([]ast.Expr2, len(children))
		for i, c := range children {
			newChildren[i] = wrapPrevious(c, keep)
		}
		return ast.Rebuild(e, newChildren)
	}
}

// instantaneousLinkScore builds the link-score equation for an Aux->Aux,
// Flow->Aux, or Stock->Flow edge (spec.md §4.9 shapes 1 and 3 share this
// formula): targetExpr is the target's own equation (z = f(...)), zRef/xRef
// read the target's and source's current values, and from is the source's
// canonical name, used to decide which occurrence in targetExpr stays at
// its current value while every other dependency is held at PREVIOUS.
func instantaneousLinkScore(targetExpr ast.Expr2, zRef, xRef ast.Expr2, from ident.Canonical) ast.Expr2 {
	partial := wrapPrevious(targetExpr, from)
	prevZ := previousOf(zRef)
	prevX := previousOf(xRef)
	zDelta := binary("-", zRef, prevZ)
	xDelta := binary("-", xRef, prevX)
	partialMinusPrevZ := binary("-", partial, prevZ)

	magnitude := callFn("abs", safediv(partialMinusPrevZ, zDelta, zero()))
	sign := callFn("sign", safediv(partialMinusPrevZ, xDelta, zero()))
	product := binary("*", magnitude, sign)

	guard := binary("or", binary("=", zDelta, zero()), binary("=", xDelta, zero()))
	inner := ifExpr(guard, zero(), product)
	return ifExpr(binary("=", timeRef(), previousOf(timeRef())), zero(), inner)
}

// flowToStockLinkScore builds the link-score equation for a flow's edge
// into the stock it moves (spec.md §4.9 shape 2). Sign is structural, not
// derived from the flow's equation: +1 for an inflow, -1 for an outflow.
// The numerator reads PREVIOUS(flow) rather than the flow's current value
// so timing aligns with Euler integration; this shifts results by one dt
// relative to reference SD tools (spec.md §9 "Known limitations").
func flowToStockLinkScore(flowRef, stockRef ast.Expr2, isInflow bool) ast.Expr2 {
	prevFlow := previousOf(flowRef)
	prevPrevFlow := previousOf(prevFlow)
	num := binary("-", prevFlow, prevPrevFlow)

	prevStock := previousOf(stockRef)
	prevPrevStock := previousOf(prevStock)
	denom := binary("-", binary("-", stockRef, prevStock), binary("-", prevStock, prevPrevStock))

	magnitude := callFn("abs", safediv(num, denom, zero()))
	sign := numLit(1)
	if !isInflow {
		sign = numLit(-1)
	}
	signed := binary("*", sign, magnitude)

	t := timeRef()
	prevT := previousOf(t)
	prevPrevT := previousOf(prevT)
	guard1 := binary("=", t, prevT)
	guard2 := binary("=", prevT, prevPrevT)
	return ifExpr(guard1, zero(), ifExpr(guard2, zero(), signed))
}

// blackBoxLinkScore is the fallback transfer formula (total output change
// over total input change across one dt) for an edge whose target has no
// single equation to hold dependencies at PREVIOUS against: an edge into a
// module-instance vertex. An edge out of a module instance into a flow or
// auxiliary uses instantaneousLinkScore with the module output as the
// source, and one into a stock uses flowToStockLinkScore. Internal pathways
// of Dynamic modules are not enumerated or composited; see DESIGN.md.
func blackBoxLinkScore(zRef, xRef ast.Expr2) ast.Expr2 {
	zDelta := binary("-", zRef, previousOf(zRef))
	xDelta := binary("-", xRef, previousOf(xRef))
	ratio := safediv(zDelta, xDelta, zero())
	t := timeRef()
	return ifExpr(binary("=", t, previousOf(t)), zero(), ratio)
}

// linkScoreExpr dispatches an edge to the matching link-score shape.
func linkScoreExpr(model *datamodel.Model, exprs map[ident.Canonical]ast.Expr2, from, to ident.Canonical) ast.Expr2 {
	zRef := refFor(model, to)
	xRef := refFor(model, from)

	if v, ok := model.ByName(to); ok {
		switch v.Kind {
		case datamodel.StockKind:
			isInflow := false
			for _, in := range v.Inflows {
				if in == from {
					isInflow = true
					break
				}
			}
			return flowToStockLinkScore(xRef, zRef, isInflow)
		case datamodel.FlowKind, datamodel.AuxiliaryKind:
			if expr, ok := exprs[to]; ok {
				return instantaneousLinkScore(expr, zRef, xRef, from)
			}
		}
	}
	return blackBoxLinkScore(zRef, xRef)
}

// render turns e back into parseable equation text. It never reuses
// Expr2.String(): that rendering leaves variable references unquoted, but
// the reserved prefix and arrow characters synthetic names are built from
// (internal/ident.ReservedPrefix, internal/ident.Arrow) are not valid bare
// identifier characters, so every reference here is quoted defensively.
func render(e ast.Expr2) string {
	switch n := e.(type) {
	case *ast.NumberLit2:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *ast.Var2:
		return quoteIdent(string(n.Name))
	case *ast.Time2:
		return "TIME"
	case *ast.Unary2:
		return "(" + n.Op + render(n.X) + ")"
	case *ast.Binary2:
		return "(" + render(n.X) + " " + n.Op + " " + render(n.Y) + ")"
	case *ast.If2:
		return "if " + render(n.Cond) + " then " + render(n.Then) + " else " + render(n.Else)
	case *ast.Call2:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = render(a)
		}
		return string(n.Builtin) + "(" + strings.Join(parts, ", ") + ")"
	case *ast.ModuleOutput2:
		return quoteIdent(string(n.Instance)) + "·" + quoteIdent(string(n.Port))
	case *ast.Lookup2:
		return "LOOKUP(" + quoteIdent(string(n.Of)) + ", " + render(n.X) + ")"
	default:
		// Index2 cannot appear: LTM001 rejects any model with array
		// variables before augmentation builds a single link-score
		// expression.
		return e.String()
	}
}

func quoteIdent(name string) string {
	return "\"" + strings.ReplaceAll(name, "\"", "") + "\""
}

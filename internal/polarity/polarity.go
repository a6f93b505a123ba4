// Package polarity classifies the sign of a causal edge: whether an
// increase in the source variable tends to increase or decrease the
// target, inferred either statically from AST structure (spec.md §4.8
// "Static polarity") or at runtime from the signs a simulated link score
// takes across a run ("Runtime polarity"). internal/loops uses Static to
// give a structural classification to every loop it enumerates;
// internal/ltm's discovery mode uses RuntimeClassification once link
// scores have actually been simulated.
package polarity

import (
	"math"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/stdlib"
)

// Sign is a causal edge's inferred polarity.
type Sign int

const (
	Positive Sign = iota
	Negative
	Unknown
)

// Flip inverts a definite sign; Unknown flips to Unknown.
func (s Sign) Flip() Sign {
	switch s {
	case Positive:
		return Negative
	case Negative:
		return Positive
	default:
		return Unknown
	}
}

func (s Sign) String() string {
	switch s {
	case Positive:
		return "+"
	case Negative:
		return "-"
	default:
		return "?"
	}
}

func combine(a, b Sign) Sign {
	if a == Unknown || b == Unknown {
		return Unknown
	}
	if a == b {
		return Positive
	}
	return Negative
}

// FlowToStock is the fixed structural polarity of a stock's inflow or
// outflow edge (spec.md §4.8 table, last row): this never depends on the
// flow's own equation, only on whether it is wired as an inflow or an
// outflow.
func FlowToStock(isInflow bool) Sign {
	if isInflow {
		return Positive
	}
	return Negative
}

// StaticEdge computes the polarity of the causal edge from -> target, whose
// equation is expr, per spec.md §4.8's table. model resolves graphical
// functions attached to other variables referenced via LOOKUP. Returns
// Unknown if from does not actually appear in expr (callers should not
// build an edge for that pair).
func StaticEdge(model *datamodel.Model, expr ast.Expr2, from ident.Canonical) Sign {
	s, ok := polarityAt(model, expr, from)
	if !ok {
		return Unknown
	}
	return s
}

// polarityAt returns the combined polarity of every occurrence of `from`
// within e, and whether `from` appears in e's subtree at all. The `ok`
// return lets callers like addition/min/max fall through to "inherit the
// other operand's polarity" when one side never references from.
func polarityAt(model *datamodel.Model, e ast.Expr2, from ident.Canonical) (Sign, bool) {
	switch n := e.(type) {
	case *ast.Var2:
		if n.Name == from {
			return Positive, true
		}
		return Unknown, false
	case *ast.ModuleOutput2:
		if n.Instance == from {
			return Positive, true
		}
		return Unknown, false
	case *ast.NumberLit2, *ast.Time2:
		return Unknown, false
	case *ast.Index2:
		if base, ok := n.Base.(*ast.Var2); ok && base.Name == from {
			return Positive, true
		}
		return Unknown, false
	case *ast.Unary2:
		s, ok := polarityAt(model, n.X, from)
		if !ok {
			return Unknown, false
		}
		if n.Op == "-" || n.Op == "not" {
			return s.Flip(), true
		}
		return s, true
	case *ast.Binary2:
		return binaryPolarity(model, n, from)
	case *ast.If2:
		return ifPolarity(model, n, from)
	case *ast.Call2:
		return callPolarity(model, n, from)
	case *ast.Lookup2:
		return lookupPolarity(model, n, from)
	default:
		return Unknown, false
	}
}

func constSign(e ast.Expr2) Sign {
	if n, ok := e.(*ast.Unary2); ok && n.Op == "-" {
		return constSign(n.X).Flip()
	}
	if n, ok := e.(*ast.NumberLit2); ok {
		switch {
		case n.Value > 0:
			return Positive
		case n.Value < 0:
			return Negative
		}
	}
	return Unknown
}

func binaryPolarity(model *datamodel.Model, n *ast.Binary2, from ident.Canonical) (Sign, bool) {
	lx, lok := polarityAt(model, n.X, from)
	ry, rok := polarityAt(model, n.Y, from)
	if !lok && !rok {
		return Unknown, false
	}
	switch n.Op {
	case "+":
		if lok && rok {
			if lx == ry {
				return lx, true
			}
			return Unknown, true
		}
		if lok {
			return lx, true
		}
		return ry, true
	case "-":
		if lok && rok {
			r := ry.Flip()
			if lx == r {
				return lx, true
			}
			return Unknown, true
		}
		if lok {
			return lx, true
		}
		return ry.Flip(), true
	case "*":
		if lok && rok {
			return combine(lx, ry), true
		}
		if lok {
			return combine(lx, constSign(n.Y)), true
		}
		return combine(constSign(n.X), ry), true
	case "/":
		if lok && rok {
			return combine(lx, ry.Flip()), true
		}
		if lok {
			return lx, true
		}
		return ry.Flip(), true
	default:
		// comparisons and boolean connectives do not carry a continuous
		// sign; a reference inside one is always Unknown.
		return Unknown, true
	}
}

func ifPolarity(model *datamodel.Model, n *ast.If2, from ident.Canonical) (Sign, bool) {
	ts, tok := polarityAt(model, n.Then, from)
	es, eok := polarityAt(model, n.Else, from)
	switch {
	case !tok && !eok:
		if ast.ContainsVar2(n.Cond, from) {
			return Unknown, true
		}
		return Unknown, false
	case tok && eok && ts == es:
		return ts, true
	default:
		return Unknown, true
	}
}

func callPolarity(model *datamodel.Model, n *ast.Call2, from ident.Canonical) (Sign, bool) {
	meta, hasMeta := stdlib.Lookup(n.Builtin)
	found := false
	result := Positive
	first := true
	for i, arg := range n.Args {
		s, ok := polarityAt(model, arg, from)
		if !ok {
			continue
		}
		found = true
		contrib := Unknown
		if hasMeta {
			switch meta.ArgSignAt(i) {
			case stdlib.Same:
				contrib = s
			case stdlib.Opposite:
				contrib = s.Flip()
			}
		}
		if first {
			result = contrib
			first = false
		} else if result != contrib {
			result = Unknown
		}
	}
	if !found {
		return Unknown, false
	}
	return result, true
}

func lookupPolarity(model *datamodel.Model, n *ast.Lookup2, from ident.Canonical) (Sign, bool) {
	argSign, ok := polarityAt(model, n.X, from)
	if !ok {
		return Unknown, false
	}
	v, ok := model.ByName(n.Of)
	if !ok || v.GF == nil {
		return Unknown, true
	}
	return combine(gfMonotonicity(*v.GF), argSign), true
}

// gfMonotonicity classifies a graphical function's y-values as an overall
// non-decreasing, non-increasing, or neither shape (spec.md §4.8 "analyze
// monotonicity of the y-values").
func gfMonotonicity(gf datamodel.GraphicalFunction) Sign {
	if len(gf.Y) < 2 {
		return Unknown
	}
	nonDecreasing, nonIncreasing := true, true
	for i := 1; i < len(gf.Y); i++ {
		switch {
		case gf.Y[i] < gf.Y[i-1]:
			nonDecreasing = false
		case gf.Y[i] > gf.Y[i-1]:
			nonIncreasing = false
		}
	}
	switch {
	case nonDecreasing && !nonIncreasing:
		return Positive
	case nonIncreasing && !nonDecreasing:
		return Negative
	default:
		return Unknown
	}
}

// LoopPolarity is a loop's classification (spec.md §3 "Loop").
type LoopPolarity int

const (
	Reinforcing LoopPolarity = iota
	Balancing
	Undetermined
	None
)

func (p LoopPolarity) String() string {
	switch p {
	case Reinforcing:
		return "reinforcing"
	case Balancing:
		return "balancing"
	case Undetermined:
		return "undetermined"
	default:
		return "none"
	}
}

// Letter returns the deterministic-ID prefix spec.md §4.7 assigns each
// polarity ("r"/"b"/"u"); None never gets an ID.
func (p LoopPolarity) Letter() string {
	switch p {
	case Reinforcing:
		return "r"
	case Balancing:
		return "b"
	default:
		return "u"
	}
}

// StructuralLoop combines a loop's edge signs into one classification
// (spec.md §4.7 "Polarity of a loop is the product of its edges'
// polarities; any Unknown edge makes the loop Undetermined").
func StructuralLoop(edges []Sign) LoopPolarity {
	if len(edges) == 0 {
		return None
	}
	acc := Positive
	for _, s := range edges {
		if s == Unknown {
			return Undetermined
		}
		acc = combine(acc, s)
	}
	if acc == Positive {
		return Reinforcing
	}
	return Balancing
}

// RuntimeClassification classifies a loop from the signs its simulated
// loop-score series took across a run, ignoring NaN and exactly-zero
// samples (spec.md §4.8 "Runtime polarity"): all positive -> Reinforcing,
// all negative -> Balancing, mixed -> Undetermined, no valid sample ->
// None (callers then fall back to the structural classification).
func RuntimeClassification(scores []float64) LoopPolarity {
	sawPositive, sawNegative := false, false
	for _, v := range scores {
		if math.IsNaN(v) || v == 0 {
			continue
		}
		if v > 0 {
			sawPositive = true
		} else {
			sawNegative = true
		}
	}
	switch {
	case !sawPositive && !sawNegative:
		return None
	case sawPositive && sawNegative:
		return Undetermined
	case sawPositive:
		return Reinforcing
	default:
		return Balancing
	}
}

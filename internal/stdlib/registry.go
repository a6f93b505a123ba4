// Package stdlib is the canonical-form builtin registry for equation
// function calls (spec.md §4.1), plus the micro stock-flow models that
// realize the builtins with internal memory (SMTH1/3, DELAY1/3, TREND,
// PREVIOUS) as module instantiations rather than VM primitives (spec.md
// §4.2 "State lowering", Design Notes "Stateful builtins as sub-models").
package stdlib

import "github.com/simlin-go/core/internal/ident"

// Sign is a static polarity contribution: +1 propagates the sign of its
// argument, -1 inverts it, 0 means the relationship is argument- and
// runtime-value-dependent (spec.md §4.8 "Monotone builtins propagate").
type Sign int

const (
	Same     Sign = 1
	Opposite Sign = -1
	Ambig    Sign = 0
)

// Meta describes one builtin's call signature and static polarity shape.
type Meta struct {
	Name       ident.Canonical
	MinArgs    int
	MaxArgs    int  // == MinArgs when arity is fixed
	Stateful   bool // realized as a module instantiation, not a pure Call2
	ArgSign    []Sign // static polarity contribution per argument position; last entry repeats for variadic tails
}

// Registry is the canonical-name -> Meta table. Every entry here must
// have a corresponding evaluator in eval.go (pure) or a model builder in
// models.go (stateful).
var Registry = map[ident.Canonical]*Meta{}

func reg(name string, min, max int, stateful bool, signs ...Sign) {
	Registry[ident.Canonical(name)] = &Meta{
		Name: ident.Canonical(name), MinArgs: min, MaxArgs: max, Stateful: stateful, ArgSign: signs,
	}
}

func init() {
	// Pure scalar math, single argument, monotone (spec.md §4.8 table).
	reg("abs", 1, 1, false, Ambig)
	reg("exp", 1, 1, false, Same)
	reg("ln", 1, 1, false, Same)
	reg("log10", 1, 1, false, Same)
	reg("sqrt", 1, 1, false, Same)
	reg("sin", 1, 1, false, Ambig)
	reg("cos", 1, 1, false, Ambig)
	reg("tan", 1, 1, false, Ambig)
	reg("arctan", 1, 1, false, Same)
	reg("int", 1, 1, false, Same)
	reg("sign", 1, 1, false, Same)

	// Pure, multi-argument, runtime-dependent polarity.
	reg("min", 2, 2, false, Ambig, Ambig)
	reg("max", 2, 2, false, Ambig, Ambig)
	reg("modulo", 2, 2, false, Ambig, Ambig)
	reg("safediv", 2, 3, false, Same, Opposite, Ambig)
	reg("if_then_else", 3, 3, false, Ambig, Same, Same)

	// Time-dependent test inputs, pure functions of TIME and their params.
	reg("step", 2, 2, false, Same, Ambig)
	reg("pulse", 2, 3, false, Same, Ambig, Ambig)
	reg("ramp", 1, 3, false, Same, Ambig, Ambig)

	// Stateful (module-backed): single dynamic input plus time-constant
	// parameters, output always Same-signed in its input (spec.md §4.8
	// "Dynamic ... composite link scores").
	reg("smth1", 2, 3, true, Same, Ambig, Ambig)
	reg("smth3", 2, 3, true, Same, Ambig, Ambig)
	reg("delay1", 2, 3, true, Same, Ambig, Ambig)
	reg("delay3", 2, 3, true, Same, Ambig, Ambig)
	reg("trend", 2, 3, true, Same, Ambig, Ambig)
	reg("previous", 1, 2, true, Same, Ambig)
	reg("init", 1, 1, true, Same)
}

// Lookup returns the Meta for a canonical builtin name.
func Lookup(name ident.Canonical) (*Meta, bool) {
	m, ok := Registry[name]
	return m, ok
}

// ArgSignAt returns the static polarity contribution of argument index i,
// clamping to the last declared entry when i is past the declared entries
// (e.g. index 3 of PULSE, which declares three entries, yields its last
// entry, Ambig).
func (m *Meta) ArgSignAt(i int) Sign {
	if len(m.ArgSign) == 0 {
		return Ambig
	}
	if i >= len(m.ArgSign) {
		return m.ArgSign[len(m.ArgSign)-1]
	}
	return m.ArgSign[i]
}

// Names returns every registered builtin name, for validator/doc use.
func Names() []ident.Canonical {
	names := make([]ident.Canonical, 0, len(Registry))
	for n := range Registry {
		names = append(names, n)
	}
	return names
}

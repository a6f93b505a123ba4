package stdlib

import (
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
)

// Template returns a fresh micro stock-flow model realizing a stateful
// builtin (spec.md §4.2 "State lowering"). internal/elaborate clones the
// template per call site, renames it to a unique instance id, and wires
// its "input"/parameter placeholder variables to the call's actual
// argument expressions via Variable.Inputs on the ModuleKind instance
// variable it creates in the calling model.
//
// Every template exposes exactly one output variable, canonically named
// "output", so elaborate's module·port rewriting is uniform across user
// modules and builtin-backed ones.
func Template(name ident.Canonical) (*datamodel.Model, bool) {
	switch name {
	case "smth1":
		return smth1Model(), true
	case "smth3":
		return smth3Model(), true
	case "delay1":
		return delay1Model(), true
	case "delay3":
		return delay3Model(), true
	case "trend":
		return trendModel(), true
	case "previous":
		return previousModel(), true
	case "init":
		return initModel(), true
	default:
		return nil, false
	}
}

func aux(name, eq string) *datamodel.Variable {
	return &datamodel.Variable{Name: ident.New(name), Kind: datamodel.AuxiliaryKind, Equation: eq}
}

func stock(name, initEq string, outflow ident.Canonical) *datamodel.Variable {
	v := &datamodel.Variable{Name: ident.New(name), Kind: datamodel.StockKind, InitialEquation: initEq}
	if outflow != "" {
		v.Outflows = []ident.Canonical{outflow}
	}
	return v
}

func flow(name, eq string) *datamodel.Variable {
	return &datamodel.Variable{Name: ident.New(name), Kind: datamodel.FlowKind, Equation: eq}
}

// smth1Model is first-order exponential smoothing: one stock integrating
// (input - level)/tau, output is the stock itself.
func smth1Model() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("smth1")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(aux("tau", "1"))
	m.AddVariable(aux("initial", "input"))
	m.AddVariable(stock("level", "initial", "adjustment"))
	m.AddVariable(flow("adjustment", "(input - level) / tau"))
	m.AddVariable(aux("output", "level"))
	return m
}

// smth3Model cascades three first-order stages, each with tau/3, the
// standard third-order smooth approximation.
func smth3Model() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("smth3")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(aux("tau", "1"))
	m.AddVariable(aux("initial", "input"))
	m.AddVariable(aux("stage_time", "tau / 3"))
	m.AddVariable(stock("stage1", "initial", "flow1"))
	m.AddVariable(flow("flow1", "(input - stage1) / stage_time"))
	m.AddVariable(stock("stage2", "initial", "flow2"))
	m.AddVariable(flow("flow2", "(stage1 - stage2) / stage_time"))
	m.AddVariable(stock("stage3", "initial", "flow3"))
	m.AddVariable(flow("flow3", "(stage2 - stage3) / stage_time"))
	m.AddVariable(aux("output", "stage3"))
	return m
}

// delay1Model is a first-order material delay: a stock holding tau*input
// worth of material, output is level/tau.
func delay1Model() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("delay1")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(aux("tau", "1"))
	m.AddVariable(aux("initial", "input"))
	m.AddVariable(stock("level", "initial * tau", "outrate"))
	m.AddVariable(flow("outrate", "level / tau"))
	m.AddVariable(aux("output", "outrate"))
	return m
}

// delay3Model cascades three first-order material delays of tau/3 each.
func delay3Model() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("delay3")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(aux("tau", "1"))
	m.AddVariable(aux("initial", "input"))
	m.AddVariable(aux("stage_time", "tau / 3"))
	m.AddVariable(stock("level1", "initial * stage_time", "rate1"))
	m.AddVariable(flow("rate1", "level1 / stage_time"))
	m.AddVariable(stock("level2", "initial * stage_time", "rate2"))
	m.AddVariable(flow("rate2", "level2 / stage_time"))
	m.AddVariable(stock("level3", "initial * stage_time", "rate3"))
	m.AddVariable(flow("rate3", "level3 / stage_time"))
	m.AddVariable(aux("output", "rate3"))
	return m
}

// trendModel tracks the fractional rate of change of input over
// average_time, the standard SD TREND idiom built from a smoothed
// reference level.
func trendModel() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("trend")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(aux("average_time", "1"))
	m.AddVariable(aux("initial", "0"))
	m.AddVariable(stock("reference", "input / (1 + initial * average_time)", "change"))
	m.AddVariable(flow("change", "(input - reference) / average_time"))
	m.AddVariable(aux("output", "safediv(input - reference, average_time * reference, 0)"))
	return m
}

// previousModel returns input delayed by one dt tick, via a one-slot stock
// with no flows, initialized from input. internal/vm gives this stock special
// "snapshot, don't integrate" treatment: after every dt tick it overwrites the
// slot with the current input. When the save step is larger than dt, the
// delay is still one dt tick, not one save step.
func previousModel() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("previous")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(aux("initial", "input"))
	v := stock("slot", "initial", "")
	m.AddVariable(v)
	m.AddVariable(aux("output", "slot"))
	return m
}

// initModel captures input at t=start and holds it constant, via a stock
// with a zero outflow.
func initModel() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("init")}
	m.AddVariable(aux("input", ""))
	m.AddVariable(stock("captured", "input", ""))
	m.AddVariable(aux("output", "captured"))
	return m
}

package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/bytecode"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/depgraph"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/layout"
	"github.com/simlin-go/core/internal/vm"
)

func sp() ast.Span { return ast.Span{} }

// buildTeacup assembles the teacup-cooling model (spec.md §8 scenario 1)
// directly at the datamodel/bytecode layer, bypassing the parser/elaborate
// stages this package doesn't depend on.
func buildTeacup(t *testing.T) *vm.CompiledModule {
	t.Helper()
	m := &datamodel.Model{Name: ident.New("teacup")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("teacup_temperature"), Kind: datamodel.StockKind,
		InitialEquation: "180", Outflows: []ident.Canonical{"heat_loss"},
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("heat_loss"), Kind: datamodel.FlowKind,
		Equation: "(teacup_temperature - room_temperature) / characteristic_time",
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("room_temperature"), Kind: datamodel.AuxiliaryKind, Equation: "70",
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("characteristic_time"), Kind: datamodel.AuxiliaryKind, Equation: "10",
	})

	exprs := map[ident.Canonical]ast.Expr2{
		"teacup_temperature": ast.NewNumberLit2(sp(), 180),
		"heat_loss": ast.NewBinary2(sp(), "/",
			ast.NewBinary2(sp(), "-", ast.NewVar2(sp(), "teacup_temperature"), ast.NewVar2(sp(), "room_temperature")),
			ast.NewVar2(sp(), "characteristic_time")),
		"room_temperature":    ast.NewNumberLit2(sp(), 70),
		"characteristic_time": ast.NewNumberLit2(sp(), 10),
	}

	l := layout.Build(m, nil)
	mod, rep := bytecode.CompileModule(m, nil, exprs, l)
	require.Nil(t, rep)

	g := depgraph.New()
	g.Add(depgraph.Node{Name: "teacup_temperature", Stock: true})
	g.Add(depgraph.Node{Name: "heat_loss", Deps: []ident.Canonical{"teacup_temperature", "room_temperature", "characteristic_time"}})
	g.Add(depgraph.Node{Name: "room_temperature"})
	g.Add(depgraph.Node{Name: "characteristic_time"})
	runLists, rep := depgraph.Sort(g)
	require.Nil(t, rep)

	return &vm.CompiledModule{
		Model:    m,
		Layout:   l,
		RunLists: runLists,
		Program:  mod,
		Stocks:   vm.BuildStockWiring(m),
	}
}

func TestTeacupCoolingEndToEnd(t *testing.T) {
	cm := buildTeacup(t)
	specs := datamodel.SimSpecs{Start: 0, Stop: 30, Dt: 0.125, Method: datamodel.Euler}

	s, rep := vm.New(cm, specs, nil)
	require.Nil(t, rep)

	s.RunToEnd()

	temps, ok := s.GetSeries("teacup_temperature")
	require.True(t, ok)
	require.NotEmpty(t, temps)
	require.Equal(t, 180.0, temps[0])
	require.Less(t, temps[len(temps)-1], temps[0])

	times := s.GetTime()
	require.Equal(t, 30.0, times[len(times)-1])
	require.Greater(t, s.GetStepCount(), 0)
}

func TestTeacupCoolingOverrideRoomTemperature(t *testing.T) {
	cm := buildTeacup(t)
	specs := datamodel.SimSpecs{Start: 0, Stop: 30, Dt: 0.125, Method: datamodel.Euler}

	baseline, rep := vm.New(cm, specs, nil)
	require.Nil(t, rep)
	baseline.RunToEnd()
	baseTemps, _ := baseline.GetSeries("teacup_temperature")

	overridden, rep := vm.New(cm, specs, map[ident.Canonical]float64{"room_temperature": 30})
	require.Nil(t, rep)

	rt, ok := overridden.GetValue("room_temperature")
	require.True(t, ok)
	require.Equal(t, 30.0, rt)

	overridden.RunToEnd()
	overrideTemps, _ := overridden.GetSeries("teacup_temperature")

	require.Less(t, overrideTemps[len(overrideTemps)-1], baseTemps[len(baseTemps)-1])
}

func TestTeacupCoolingUnknownOverrideErrors(t *testing.T) {
	cm := buildTeacup(t)
	specs := datamodel.SimSpecs{Start: 0, Stop: 30, Dt: 0.125, Method: datamodel.Euler}

	_, rep := vm.New(cm, specs, map[ident.Canonical]float64{"not_a_variable": 1})
	require.NotNil(t, rep)
	require.Equal(t, "RUN001", rep.Code)
}

func TestTeacupCoolingRK4MatchesEulerDirection(t *testing.T) {
	cm := buildTeacup(t)
	specs := datamodel.SimSpecs{Start: 0, Stop: 30, Dt: 0.125, Method: datamodel.RK4}

	s, rep := vm.New(cm, specs, nil)
	require.Nil(t, rep)
	s.RunToEnd()

	temps, _ := s.GetSeries("teacup_temperature")
	require.Equal(t, 180.0, temps[0])
	require.Less(t, temps[len(temps)-1], temps[0])
	require.InDelta(t, 70.0, temps[len(temps)-1], 15.0)
}

// buildSmoothed wires a module instance (an SMTH1 stdlib template) whose
// input is bound to a root-level stock, matching how internal/elaborate
// expands a SMTH1(...) call into a nested CompiledModule (spec.md §4.4
// "State lowering").
func buildSmoothed(t *testing.T) *vm.CompiledModule {
	t.Helper()
	sub := &datamodel.Model{Name: ident.New("smth1")}
	sub.AddVariable(&datamodel.Variable{Name: ident.New("input"), Kind: datamodel.AuxiliaryKind, Equation: "0"})
	sub.AddVariable(&datamodel.Variable{Name: ident.New("tau"), Kind: datamodel.AuxiliaryKind, Equation: "0"})
	sub.AddVariable(&datamodel.Variable{
		Name: ident.New("initial"), Kind: datamodel.AuxiliaryKind, Equation: "input",
	})
	sub.AddVariable(&datamodel.Variable{
		Name: ident.New("level"), Kind: datamodel.StockKind,
		InitialEquation: "initial", Inflows: []ident.Canonical{"adjustment"},
	})
	sub.AddVariable(&datamodel.Variable{
		Name: ident.New("adjustment"), Kind: datamodel.FlowKind, Equation: "(input - level) / tau",
	})
	sub.AddVariable(&datamodel.Variable{Name: ident.New("output"), Kind: datamodel.AuxiliaryKind, Equation: "level"})

	subExprs := map[ident.Canonical]ast.Expr2{
		"input":      ast.NewNumberLit2(sp(), 0),
		"tau":        ast.NewNumberLit2(sp(), 0),
		"initial":    ast.NewVar2(sp(), "input"),
		"level":      ast.NewVar2(sp(), "initial"),
		"adjustment": ast.NewBinary2(sp(), "/", ast.NewBinary2(sp(), "-", ast.NewVar2(sp(), "input"), ast.NewVar2(sp(), "level")), ast.NewVar2(sp(), "tau")),
		"output":     ast.NewVar2(sp(), "level"),
	}
	subLayout := layout.Build(sub, nil)
	subProg, rep := bytecode.CompileModule(sub, nil, subExprs, subLayout)
	require.Nil(t, rep)

	subGraph := depgraph.New()
	subGraph.Add(depgraph.Node{Name: "input"})
	subGraph.Add(depgraph.Node{Name: "tau"})
	subGraph.Add(depgraph.Node{Name: "initial", Deps: []ident.Canonical{"input"}})
	subGraph.Add(depgraph.Node{Name: "level", Stock: true, Deps: []ident.Canonical{"initial"}})
	subGraph.Add(depgraph.Node{Name: "adjustment", Deps: []ident.Canonical{"input", "level", "tau"}})
	subGraph.Add(depgraph.Node{Name: "output", Deps: []ident.Canonical{"level"}})
	subRunLists, rep := depgraph.Sort(subGraph)
	require.Nil(t, rep)

	subCompiled := &vm.CompiledModule{
		Model:    sub,
		Layout:   subLayout,
		RunLists: subRunLists,
		Program:  subProg,
		Stocks:   vm.BuildStockWiring(sub),
	}

	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("raw_signal"), Kind: datamodel.StockKind,
		InitialEquation: "0", Inflows: []ident.Canonical{"growth"},
	})
	m.AddVariable(&datamodel.Variable{Name: ident.New("growth"), Kind: datamodel.FlowKind, Equation: "1"})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("smoothed"), Kind: datamodel.AuxiliaryKind, Equation: "SMTH1(raw_signal, 5)",
	})

	exprs := map[ident.Canonical]ast.Expr2{
		"raw_signal": ast.NewNumberLit2(sp(), 0),
		"growth":     ast.NewNumberLit2(sp(), 1),
		"smoothed":   ast.NewModuleOutput2(sp(), "smth1_smoothed", "output"),
	}
	l := layout.Build(m, nil)
	mod, rep := bytecode.CompileModule(m, nil, exprs, l)
	require.Nil(t, rep)

	g := depgraph.New()
	g.Add(depgraph.Node{Name: "raw_signal", Stock: true})
	g.Add(depgraph.Node{Name: "growth"})
	g.Add(depgraph.Node{Name: "smoothed", Deps: []ident.Canonical{"raw_signal"}})
	runLists, rep := depgraph.Sort(g)
	require.Nil(t, rep)

	inputProg, rep := bytecode.CompileExpr(m, nil, l, ast.NewVar2(sp(), "raw_signal"))
	require.Nil(t, rep)
	tauProg, rep := bytecode.CompileExpr(m, nil, l, ast.NewNumberLit2(sp(), 5))
	require.Nil(t, rep)

	return &vm.CompiledModule{
		Model:    m,
		Layout:   l,
		RunLists: runLists,
		Program:  mod,
		Stocks:   vm.BuildStockWiring(m),
		Instances: map[ident.Canonical]*vm.Instance{
			"smth1_smoothed": {
				Sub: subCompiled,
				Inputs: map[ident.Canonical]bytecode.Program{
					"input": inputProg,
					"tau":   tauProg,
				},
			},
		},
	}
}

func TestModuleInstanceSmoothsLaggedBehindInput(t *testing.T) {
	cm := buildSmoothed(t)
	specs := datamodel.SimSpecs{Start: 0, Stop: 20, Dt: 0.25, Method: datamodel.Euler}

	s, rep := vm.New(cm, specs, nil)
	require.Nil(t, rep)
	s.RunToEnd()

	raw, ok := s.GetSeries("raw_signal")
	require.True(t, ok)
	smoothed, ok := s.GetSeries("smoothed")
	require.True(t, ok)
	require.Equal(t, len(raw), len(smoothed))

	last := len(raw) - 1
	require.Less(t, smoothed[last], raw[last])
	require.Greater(t, smoothed[last], 0.0)
}

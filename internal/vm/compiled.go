// Package vm executes compiled bytecode under an ODE integration scheme,
// producing a time-sampled Results buffer (spec.md §4.5). It is a stack
// machine at the instruction level (internal/bytecode defines the opcode
// set); at the module level it is a flat-frame interpreter generalized from
// the teacher's map-based Environment/evaluator-dispatch idiom to the
// offset-indexed storage internal/layout assigns.
package vm

import (
	"github.com/simlin-go/core/internal/bytecode"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/depgraph"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/layout"
)

// StockWiring is the structural inflow/outflow wiring the VM needs to
// integrate a stock each step (spec.md §4.5 "stock += dt × (Σ inflows −
// Σ outflows)"); it does not depend on the stock's initial-value expression,
// which only runs once via RunLists.Initials.
type StockWiring struct {
	Inflows, Outflows []ident.Canonical
	NonNegative       bool
}

// Instance is a compiled stateful-builtin (or user module) instantiation
// embedded in a parent module: its own compiled sub-model, plus how each of
// its input ports is bound to an expression evaluated against the PARENT's
// frame (spec.md §4.4 "State lowering": "each instantiation gets an
// independent state-block inside the parent module's storage").
type Instance struct {
	Sub    *CompiledModule
	Inputs map[ident.Canonical]bytecode.Program // port name -> value-producing program (no trailing store), evaluated against the parent frame
}

// CompiledModule is the static, immutable result of compiling one model
// instantiation: its offset layout, dependency runlists, per-variable
// bytecode, stock wiring, and any embedded module instances. Safe to share
// read-only across many concurrently-reset Sim runners (spec.md §5
// "Ownership": "A CompiledSimulation exclusively owns its opcode streams").
type CompiledModule struct {
	Model     *datamodel.Model
	Layout    *layout.Layout
	RunLists  depgraph.RunLists
	Program   *bytecode.Module
	Stocks    map[ident.Canonical]StockWiring
	Instances map[ident.Canonical]*Instance
}

// BuildStockWiring derives the stock wiring table directly from the model's
// Stock variables, the one piece of integration metadata that does not flow
// through Expr2/bytecode.
func BuildStockWiring(m *datamodel.Model) map[ident.Canonical]StockWiring {
	wiring := make(map[ident.Canonical]StockWiring)
	for _, v := range m.Variables {
		if v.Kind != datamodel.StockKind {
			continue
		}
		wiring[v.Name.Canonical] = StockWiring{
			Inflows:     append([]ident.Canonical(nil), v.Inflows...),
			Outflows:    append([]ident.Canonical(nil), v.Outflows...),
			NonNegative: v.NonNegative,
		}
	}
	return wiring
}

// frameState is the mutable runtime state for one CompiledModule
// instantiation: its slot vector, any nested instance states, and whether
// its Initials runlist has run yet (spec.md §5 "A Sim exclusively owns its
// state vector").
type frameState struct {
	slots       []float64
	instances   map[ident.Canonical]*frameState
	initialized bool
}

func newFrameState(cm *CompiledModule) *frameState {
	fs := &frameState{slots: make([]float64, cm.Layout.NumSlots)}
	if len(cm.Instances) > 0 {
		fs.instances = make(map[ident.Canonical]*frameState, len(cm.Instances))
		for name, inst := range cm.Instances {
			fs.instances[name] = newFrameState(inst.Sub)
		}
	}
	return fs
}

package vm

import (
	"sort"

	"github.com/simlin-go/core/internal/ident"
)

// buildInstanceRefs resolves cm's module-call table (bytecode.Module.
// Instances, built in first-encounter order during codegen) to live
// instance frames, indexed the same way OpModuleCall's operand addresses
// them.
func buildInstanceRefs(cm *CompiledModule, fs *frameState) []instanceRef {
	names := cm.Program.Instances
	if len(names) == 0 {
		return nil
	}
	refs := make([]instanceRef, len(names))
	for i, name := range names {
		inst := cm.Instances[name]
		refs[i] = instanceRef{sub: inst.Sub, fs: fs.instances[name]}
	}
	return refs
}

// initModule runs cm's Initials runlist once, seeding stocks and any
// auxiliaries referenced only by initial-value expressions (spec.md §4.5
// "evaluate the initials runlist once at t=start").
func initModule(cm *CompiledModule, fs *frameState, time float64) {
	ctx := &execCtx{frame: fs.slots, time: time, lookups: cm.Program.Lookups, instances: buildInstanceRefs(cm, fs)}
	for _, name := range cm.RunLists.Initials {
		prog, ok := cm.Program.Programs[name]
		if !ok {
			continue
		}
		exec(prog, ctx)
	}
}

// evalFlows recomputes every instance embedded in cm (binding their inputs
// from cm's current frame and refreshing their own internal flows, but
// never integrating their stocks — see advanceStocks), then recomputes cm's
// own Flows runlist, skipping any name in skip (an active override).
func evalFlows(cm *CompiledModule, fs *frameState, time float64, skip map[ident.Canonical]bool) {
	instanceNames := append([]ident.Canonical(nil), cm.Program.Instances...)
	sort.Slice(instanceNames, func(i, j int) bool { return instanceNames[i] < instanceNames[j] })

	bindCtx := &execCtx{frame: fs.slots, time: time, lookups: cm.Program.Lookups, instances: buildInstanceRefs(cm, fs)}
	for _, name := range instanceNames {
		inst := cm.Instances[name]
		subFS := fs.instances[name]
		bound := make(map[ident.Canonical]bool, len(inst.Inputs))
		for port, prog := range inst.Inputs {
			bound[port] = true
			val := exec(prog, bindCtx)
			if slot, ok := inst.Sub.Layout.Offset(port); ok {
				subFS.slots[slot.Offset] = val
			}
		}
		if !subFS.initialized {
			initCtx := &execCtx{frame: subFS.slots, time: time, lookups: inst.Sub.Program.Lookups, instances: buildInstanceRefs(inst.Sub, subFS)}
			for _, n := range inst.Sub.RunLists.Initials {
				if prog, ok := inst.Sub.Program.Programs[n]; ok && !bound[n] {
					exec(prog, initCtx)
				}
			}
			subFS.initialized = true
		}
		evalFlows(inst.Sub, subFS, time, bound)
	}

	ctx := &execCtx{frame: fs.slots, time: time, lookups: cm.Program.Lookups, instances: buildInstanceRefs(cm, fs)}
	for _, name := range cm.RunLists.Flows {
		if skip[name] {
			continue
		}
		prog, ok := cm.Program.Programs[name]
		if !ok {
			continue
		}
		exec(prog, ctx)
	}
}

// netFlow sums a stock's bound inflows minus its outflows, reading their
// already-evaluated values out of the current frame.
func netFlow(cm *CompiledModule, fs *frameState, w StockWiring) float64 {
	sum := 0.0
	for _, name := range w.Inflows {
		if slot, ok := cm.Layout.Offset(name); ok {
			sum += fs.slots[slot.Offset]
		}
	}
	for _, name := range w.Outflows {
		if slot, ok := cm.Layout.Offset(name); ok {
			sum -= fs.slots[slot.Offset]
		}
	}
	return sum
}

func clampNonNegative(w StockWiring, v float64) float64 {
	if w.NonNegative && v < 0 {
		return 0
	}
	return v
}

// applyEulerStocks integrates every stock in cm by one Euler step (spec.md
// §4.5 "stock += dt × (Σ inflows − Σ outflows), clamping non-negative
// stocks at zero").
func applyEulerStocks(cm *CompiledModule, fs *frameState, dt float64) {
	for name, w := range cm.Stocks {
		slot, ok := cm.Layout.Offset(name)
		if !ok {
			continue
		}
		v := fs.slots[slot.Offset] + dt*netFlow(cm, fs, w)
		fs.slots[slot.Offset] = clampNonNegative(w, v)
	}
}

// snapshotPrevious overwrites the `previous` stdlib model's one-slot stock
// with the instance's current bound input, instead of integrating it as an
// ordinary flow (models.go: "internal/vm gives this stock special
// 'snapshot, don't integrate' treatment"). Because this runs after cm's own
// Flows (whose `output` aux already read the slot's pre-snapshot value),
// the next step's output reflects exactly one step of lag.
func snapshotPrevious(cm *CompiledModule, fs *frameState) {
	inputSlot, ok1 := cm.Layout.Offset("input")
	stockSlot, ok2 := cm.Layout.Offset("slot")
	if ok1 && ok2 {
		fs.slots[stockSlot.Offset] = fs.slots[inputSlot.Offset]
	}
}

// advanceStocks integrates every module instance embedded anywhere in cm by
// one Euler step, regardless of the parent simulation's integration method
// — stateful builtins are realized as stdlib sub-models, but their state
// lag is always computed with a plain Euler step (a pragmatic
// simplification recorded in DESIGN.md; the root module's own stocks are
// advanced separately by the caller via applyEulerStocks or the RK4 stages).
func advanceStocks(cm *CompiledModule, fs *frameState, dt float64) {
	instanceNames := append([]ident.Canonical(nil), cm.Program.Instances...)
	sort.Slice(instanceNames, func(i, j int) bool { return instanceNames[i] < instanceNames[j] })

	for _, name := range instanceNames {
		inst := cm.Instances[name]
		subFS := fs.instances[name]
		advanceStocks(inst.Sub, subFS, dt)
		if inst.Sub.Model.Name.Canonical == "previous" {
			snapshotPrevious(inst.Sub, subFS)
		} else {
			applyEulerStocks(inst.Sub, subFS, dt)
		}
	}
}

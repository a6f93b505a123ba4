// Package causal builds the adjacency-list causal graph a compiled
// model's dependency structure implies (spec.md §4.6): where
// internal/depgraph discards edges once its runlists are built, this
// package keeps them as an explicit from-cause-to-effect graph so
// internal/loops can enumerate cycles over it and internal/ltm can walk
// link scores along a discovered loop. Grounded on
// katalvlaran-lvlath/graph/core's adjacency-list representation (vertices
// keyed by name, edges as adjacency slices) adapted to canonical
// identifier keys instead of that package's string vertex IDs.
package causal

import (
	"sort"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/stdlib"
)

// Class classifies a module instance vertex for LTM purposes (spec.md
// §4.6 "Module classification").
type Class int

const (
	// Passthrough modules have no internal stocks; LTM falls back to a
	// black-box transfer-score formula across them.
	Passthrough Class = iota
	// Dynamic modules have internal stocks (SMTH1, DELAY3, ...) and get
	// composite link scores derived from their internal pathways.
	Dynamic
	// Infrastructure modules (PREVIOUS, INIT) are never analyzed, to avoid
	// infinite recursion when LTM augmentation itself uses them.
	Infrastructure
)

var infrastructure = map[ident.Canonical]bool{"previous": true, "init": true}

// Resolver looks up a user-authored sub-model by name and its dimension
// registry, letting Build recurse into module instances whose SubModel is
// not a stdlib builtin. internal/pipeline supplies one backed by a
// Project; passing nil treats every user module as Passthrough.
type Resolver func(subModel ident.Canonical) (*datamodel.Model, *datamodel.DimensionRegistry, bool)

// Graph is one model's causal adjacency list. Module instances are opaque
// vertices at this level (spec.md §4.6): an edge into or out of a module
// names the instance itself, never one of its internal variables.
type Graph struct {
	Model   *datamodel.Model
	Nodes   []ident.Canonical
	Out     map[ident.Canonical][]ident.Canonical // cause -> effects, deduplicated and sorted
	Classes map[ident.Canonical]Class             // instance name -> classification (module vertices only)
	Sub     map[ident.Canonical]*Graph            // instance name -> internal sub-graph (Dynamic modules only)
}

func newGraph() *Graph {
	return &Graph{
		Out:     make(map[ident.Canonical][]ident.Canonical),
		Classes: make(map[ident.Canonical]Class),
		Sub:     make(map[ident.Canonical]*Graph),
	}
}

func (g *Graph) addNode(name ident.Canonical) {
	if _, ok := g.Out[name]; !ok {
		g.Out[name] = nil
		g.Nodes = append(g.Nodes, name)
	}
}

func (g *Graph) addEdge(from, to ident.Canonical) {
	g.addNode(from)
	g.addNode(to)
	for _, existing := range g.Out[from] {
		if existing == to {
			return
		}
	}
	g.Out[from] = append(g.Out[from], to)
}

func (g *Graph) finalize() {
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i] < g.Nodes[j] })
	for _, outs := range g.Out {
		sort.Slice(outs, func(i, j int) bool { return outs[i] < outs[j] })
	}
}

// Build constructs the causal graph for one model, given that model's
// already-elaborated Stage1 result (spec.md §4.6):
//
//   - a stock gets an edge from each inflow/outflow to itself, never from
//     its initial-value expression's dependencies;
//   - a flow or auxiliary gets an edge from every variable its equation
//     references, into itself;
//   - a module reference is normalized to the module-instance vertex
//     itself, and the instance is classified and, for Dynamic modules,
//     recursively expanded into an internal sub-graph.
func Build(m *datamodel.Model, res *elaborate.Result, resolve Resolver) *Graph {
	g := newGraph()
	g.Model = m
	for _, name := range m.SortedNames() {
		v, ok := m.ByName(name)
		if !ok {
			continue
		}
		g.addNode(name)
		switch v.Kind {
		case datamodel.StockKind:
			for _, in := range v.Inflows {
				g.addEdge(in, name)
			}
			for _, out := range v.Outflows {
				g.addEdge(out, name)
			}
		case datamodel.FlowKind, datamodel.AuxiliaryKind:
			if expr, ok := res.Exprs[name]; ok {
				for _, dep := range ast.Vars2(expr) {
					g.addEdge(dep, name)
				}
			}
		}
	}

	// Module instances are not walked through m.Variables: an explicit
	// Module variable's instance is keyed by its own name, but an inline
	// stateful builtin (SMTH1(x, 5) used directly in an equation) gets a
	// generated instance id that never appears in m.Variables at all.
	// res.Instances is the only complete index of both.
	for _, instance := range instanceNames(res.Instances) {
		inst := res.Instances[instance]
		g.addNode(instance)
		for _, port := range inputPortNames(inst) {
			for _, dep := range ast.Vars2(inst.Inputs[port]) {
				g.addEdge(dep, instance)
			}
		}
		g.classify(instance, inst, resolve)
	}

	g.finalize()
	return g
}

func instanceNames(instances map[ident.Canonical]*elaborate.Instance) []ident.Canonical {
	names := make([]ident.Canonical, 0, len(instances))
	for name := range instances {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func inputPortNames(inst *elaborate.Instance) []ident.Canonical {
	ports := make([]ident.Canonical, 0, len(inst.Inputs))
	for port := range inst.Inputs {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

func (g *Graph) classify(instance ident.Canonical, inst *elaborate.Instance, resolve Resolver) {
	if infrastructure[inst.SubModel] {
		g.Classes[instance] = Infrastructure
		return
	}

	var sub *datamodel.Model
	var dims *datamodel.DimensionRegistry
	if inst.Stdlib {
		sub, _ = stdlib.Template(inst.SubModel)
	} else if resolve != nil {
		sub, dims, _ = resolve(inst.SubModel)
	}

	if sub == nil || !hasStock(sub) {
		g.Classes[instance] = Passthrough
		return
	}
	g.Classes[instance] = Dynamic

	subRes, rep := elaborate.Model(sub, dims)
	if rep != nil {
		// A malformed stdlib template or user sub-model cannot happen in
		// practice (templates are hand-authored, user models are already
		// validated by the time LTM runs), but fail soft rather than
		// panic: treat it as opaque.
		g.Sub[instance] = nil
		return
	}
	g.Sub[instance] = Build(sub, subRes, resolve)
}

func hasStock(m *datamodel.Model) bool {
	for _, v := range m.Variables {
		if v.Kind == datamodel.StockKind {
			return true
		}
	}
	return false
}

// Names returns every vertex's canonical name as a plain string, the
// input internal/partition.Of expects.
func (g *Graph) Names() []string {
	names := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		names[i] = string(n)
	}
	return names
}

// Edges returns the graph's cause->effect adjacency as plain strings, the
// input internal/partition.Of expects. SCC membership is identical whether
// computed on a graph or its reverse, so this direction is safe to hand
// directly to Of.
func (g *Graph) Edges() map[string][]string {
	out := make(map[string][]string, len(g.Nodes))
	for from, tos := range g.Out {
		strs := make([]string, len(tos))
		for i, to := range tos {
			strs[i] = string(to)
		}
		out[string(from)] = strs
	}
	return out
}

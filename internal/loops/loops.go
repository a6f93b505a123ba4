/*
Package loops enumerates elementary feedback loops in a causal graph
(spec.md §4.7).

Description:
  A loop is a simple cycle — no repeated vertices — in the causal graph
  internal/causal builds. Only nodes inside a nontrivial strongly
  connected component (internal/partition.Of) can participate in one, so
  enumeration runs per-component rather than over the whole graph.

Steps:
  1. Partition the graph's nodes into cycle-eligible components.
  2. Within each component, run Johnson's algorithm: for every node s (in
     canonical order), DFS over the subgraph restricted to nodes whose
     canonical order is >= s, blocking revisited nodes and unblocking via
     the blocked-map when a branch closes back on s.
  3. Deduplicate circuits by their sorted node-set, classify each loop's
     structural polarity from its edges, enrich module-traversing loops
     with the internal stocks of any dynamic module they pass through,
     and assign deterministic r/b/u-prefixed IDs by sorted content key.

Complexity: O((V+E)(C+1)) where C is the number of elementary circuits.
*/
package loops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/causal"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/partition"
	"github.com/simlin-go/core/internal/polarity"
)

// Edge is one step of a loop's closed path, with its statically inferred
// polarity (spec.md §3 "Causal edge").
type Edge struct {
	From, To ident.Canonical
	Sign     polarity.Sign
}

// Loop is one elementary circuit (spec.md §3 "Loop").
type Loop struct {
	ID       string
	Edges    []Edge
	Nodes    []ident.Canonical // sorted node set
	Stocks   []ident.Canonical // stocks traversed, including module-namespaced internal stocks
	Polarity polarity.LoopPolarity
}

// Detect enumerates every elementary circuit in g, the causal graph built
// from model and its elaborate.Result res (spec.md §4.7).
func Detect(model *datamodel.Model, res *elaborate.Result, g *causal.Graph) []Loop {
	components := partition.Of(g.Names(), g.Edges())

	var circuits [][]ident.Canonical
	for _, comp := range components {
		names := make([]ident.Canonical, len(comp))
		for i, s := range comp {
			names[i] = ident.Canonical(s)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
		circuits = append(circuits, johnsonCircuits(g, names)...)
	}

	seen := map[string]bool{}
	var uniq [][]ident.Canonical
	for _, c := range circuits {
		key := nodeSetKey(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, c)
	}

	loops := make([]Loop, 0, len(uniq))
	for _, nodes := range uniq {
		loops = append(loops, buildLoop(model, res, nodes))
	}
	sort.Slice(loops, func(i, j int) bool { return contentKey(loops[i]) < contentKey(loops[j]) })

	enrichModuleStocks(res, g, loops)
	assignIDs(loops)
	return loops
}

// Deduplicate drops any loop whose node-set duplicates an earlier one,
// keeping first-seen order. Detect already dedupes internally; this is
// exposed so `deduplicate_loops(find_loops(G)) == find_loops(G)` (spec.md
// §8) holds for callers that merge loop lists from more than one source.
func Deduplicate(loops []Loop) []Loop {
	seen := map[string]bool{}
	out := make([]Loop, 0, len(loops))
	for _, l := range loops {
		key := nodeSetKey(l.Nodes)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// johnsonCircuits enumerates every elementary circuit within the subgraph
// of g induced by component, using the classical restriction that a
// circuit rooted at s only visits nodes whose canonical order is >= s
// (component is already sorted canonically).
func johnsonCircuits(g *causal.Graph, component []ident.Canonical) [][]ident.Canonical {
	idx := make(map[ident.Canonical]int, len(component))
	inComp := make(map[ident.Canonical]bool, len(component))
	for i, n := range component {
		idx[n] = i
		inComp[n] = true
	}

	var circuits [][]ident.Canonical
	var blocked map[ident.Canonical]bool
	var blockMap map[ident.Canonical]map[ident.Canonical]bool
	var stack []ident.Canonical

	var unblock func(ident.Canonical)
	unblock = func(u ident.Canonical) {
		blocked[u] = false
		for w := range blockMap[u] {
			delete(blockMap[u], w)
			if blocked[w] {
				unblock(w)
			}
		}
	}

	var circuit func(v, s ident.Canonical) bool
	circuit = func(v, s ident.Canonical) bool {
		found := false
		stack = append(stack, v)
		blocked[v] = true

		for _, w := range g.Out[v] {
			if !inComp[w] || idx[w] < idx[s] {
				continue
			}
			if w == s {
				circuits = append(circuits, append([]ident.Canonical(nil), stack...))
				found = true
			} else if !blocked[w] {
				if circuit(w, s) {
					found = true
				}
			}
		}

		if found {
			unblock(v)
		} else {
			for _, w := range g.Out[v] {
				if !inComp[w] || idx[w] < idx[s] {
					continue
				}
				if blockMap[w] == nil {
					blockMap[w] = make(map[ident.Canonical]bool)
				}
				blockMap[w][v] = true
			}
		}
		stack = stack[:len(stack)-1]
		return found
	}

	for _, s := range component {
		blocked = make(map[ident.Canonical]bool)
		blockMap = make(map[ident.Canonical]map[ident.Canonical]bool)
		stack = nil
		circuit(s, s)
	}
	return circuits
}

func buildLoop(model *datamodel.Model, res *elaborate.Result, nodes []ident.Canonical) Loop {
	n := len(nodes)
	edges := make([]Edge, n)
	signs := make([]polarity.Sign, n)
	for i := 0; i < n; i++ {
		from := nodes[i]
		to := nodes[(i+1)%n]
		s := edgeSign(model, res, from, to)
		edges[i] = Edge{From: from, To: to, Sign: s}
		signs[i] = s
	}

	sortedNodes := append([]ident.Canonical(nil), nodes...)
	sort.Slice(sortedNodes, func(i, j int) bool { return sortedNodes[i] < sortedNodes[j] })

	return Loop{
		Nodes:    sortedNodes,
		Edges:    edges,
		Stocks:   collectStocks(model, nodes),
		Polarity: polarity.StructuralLoop(signs),
	}
}

// edgeSign resolves the static polarity of the edge from->to (spec.md
// §4.8): a fixed +1/-1 for flow-to-stock edges, an AST-derived sign for
// aux/flow equations, and the combined sign across every module input port
// that references from, for edges into a module instance.
func edgeSign(model *datamodel.Model, res *elaborate.Result, from, to ident.Canonical) polarity.Sign {
	v, ok := model.ByName(to)
	if !ok {
		// to is a module-instance vertex with no variable of its own: an
		// explicit Module variable is matched above, but an inline stateful
		// builtin (SMTH1(x, 5) written directly in an equation) only exists
		// as a generated key in res.Instances.
		if inst := res.Instances[to]; inst != nil {
			return moduleEdgeSign(model, inst, from)
		}
		return polarity.Unknown
	}
	switch v.Kind {
	case datamodel.StockKind:
		for _, in := range v.Inflows {
			if in == from {
				return polarity.FlowToStock(true)
			}
		}
		for _, out := range v.Outflows {
			if out == from {
				return polarity.FlowToStock(false)
			}
		}
		return polarity.Unknown
	case datamodel.FlowKind, datamodel.AuxiliaryKind:
		expr, ok := res.Exprs[to]
		if !ok {
			return polarity.Unknown
		}
		return polarity.StaticEdge(model, expr, from)
	case datamodel.ModuleKind:
		inst := res.Instances[to]
		if inst == nil {
			return polarity.Unknown
		}
		return moduleEdgeSign(model, inst, from)
	default:
		return polarity.Unknown
	}
}

func moduleEdgeSign(model *datamodel.Model, inst *elaborate.Instance, from ident.Canonical) polarity.Sign {
	acc := polarity.Unknown
	first := true
	for _, port := range sortedPorts(inst) {
		expr := inst.Inputs[port]
		if !ast.ContainsVar2(expr, from) {
			continue
		}
		s := polarity.StaticEdge(model, expr, from)
		if first {
			acc = s
			first = false
		} else if acc != s {
			acc = polarity.Unknown
		}
	}
	return acc
}

func collectStocks(model *datamodel.Model, nodes []ident.Canonical) []ident.Canonical {
	var stocks []ident.Canonical
	for _, n := range nodes {
		if v, ok := model.ByName(n); ok && v.Kind == datamodel.StockKind {
			stocks = append(stocks, n)
		}
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i] < stocks[j] })
	return stocks
}

// enrichModuleStocks implements spec.md §4.7's "Module stock enrichment":
// for every edge a loop traverses that lands on a Dynamic module instance,
// map the predecessor edge to the input port it binds, walk the module's
// internal sub-graph for a single unambiguous port->output pathway, and
// namespace its internal stocks onto the loop's stock list. An ambiguous
// (more than one) or absent pathway falls back to every internal stock of
// the module.
func enrichModuleStocks(res *elaborate.Result, g *causal.Graph, loops []Loop) {
	for i := range loops {
		var extra []ident.Canonical
		for _, e := range loops[i].Edges {
			if g.Classes[e.To] != causal.Dynamic {
				continue
			}
			inst := res.Instances[e.To]
			sub := g.Sub[e.To]
			if inst == nil || sub == nil {
				continue
			}
			port := inputPortFor(inst, e.From)
			var internal []ident.Canonical
			if port != "" {
				internal = pathwayStocks(sub, port, "output")
			}
			if len(internal) == 0 {
				internal = allStocksIn(sub)
			}
			for _, s := range internal {
				extra = append(extra, ident.Canonical(string(e.To)+"·"+string(s)))
			}
		}
		if len(extra) == 0 {
			continue
		}
		loops[i].Stocks = append(loops[i].Stocks, extra...)
		sort.Slice(loops[i].Stocks, func(a, b int) bool { return loops[i].Stocks[a] < loops[i].Stocks[b] })
	}
}

func sortedPorts(inst *elaborate.Instance) []ident.Canonical {
	ports := make([]ident.Canonical, 0, len(inst.Inputs))
	for p := range inst.Inputs {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

func inputPortFor(inst *elaborate.Instance, from ident.Canonical) ident.Canonical {
	for _, port := range sortedPorts(inst) {
		if ast.ContainsVar2(inst.Inputs[port], from) {
			return port
		}
	}
	return ""
}

// pathwayStocks returns the stocks on the single simple path from->to
// within sub, or nil if zero or more than one such path exists (the
// caller then falls back to every internal stock).
func pathwayStocks(sub *causal.Graph, from, to ident.Canonical) []ident.Canonical {
	paths := simplePaths(sub, from, to)
	if len(paths) != 1 {
		return nil
	}
	var stocks []ident.Canonical
	for _, n := range paths[0] {
		if sub.Model == nil {
			break
		}
		if v, ok := sub.Model.ByName(n); ok && v.Kind == datamodel.StockKind {
			stocks = append(stocks, n)
		}
	}
	return stocks
}

func simplePaths(g *causal.Graph, from, to ident.Canonical) [][]ident.Canonical {
	var out [][]ident.Canonical
	visited := map[ident.Canonical]bool{}
	var path []ident.Canonical
	var dfs func(ident.Canonical)
	dfs = func(v ident.Canonical) {
		visited[v] = true
		path = append(path, v)
		if v == to {
			out = append(out, append([]ident.Canonical(nil), path...))
		} else {
			for _, w := range g.Out[v] {
				if !visited[w] {
					dfs(w)
				}
			}
		}
		path = path[:len(path)-1]
		visited[v] = false
	}
	dfs(from)
	return out
}

func allStocksIn(g *causal.Graph) []ident.Canonical {
	if g.Model == nil {
		return nil
	}
	var stocks []ident.Canonical
	for _, v := range g.Model.Variables {
		if v.Kind == datamodel.StockKind {
			stocks = append(stocks, v.Name.Canonical)
		}
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i] < stocks[j] })
	return stocks
}

func assignIDs(loops []Loop) {
	counters := map[string]int{}
	for i := range loops {
		letter := loops[i].Polarity.Letter()
		counters[letter]++
		loops[i].ID = fmt.Sprintf("%s%d", letter, counters[letter])
	}
}

func nodeSetKey(nodes []ident.Canonical) string {
	sorted := append([]ident.Canonical(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = string(n)
	}
	return strings.Join(parts, "\x00")
}

func contentKey(l Loop) string {
	nodeParts := make([]string, len(l.Nodes))
	for i, n := range l.Nodes {
		nodeParts[i] = string(n)
	}
	edgeParts := make([]string, len(l.Edges))
	for i, e := range l.Edges {
		edgeParts[i] = string(e.From) + ">" + string(e.To)
	}
	return strings.Join(nodeParts, "\x00") + "||" + strings.Join(edgeParts, "\x00")
}

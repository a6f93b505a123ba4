// Package depgraph computes per-variable dependencies and produces the
// ordered runlists the VM needs to evaluate a model each step (spec.md
// §4.2). It is deliberately decoupled from internal/ast: callers supply
// each variable's dependency set over whatever representation they hold
// (Expr2 in practice, via internal/elaborate), so this package's
// topological-sort core can be exercised directly by tests without
// constructing a full AST.
package depgraph

import (
	"sort"
	"strings"

	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// Node describes one variable's ordering dependencies.
type Node struct {
	Name  ident.Canonical
	Deps  []ident.Canonical
	Stock bool
}

// Graph is the full per-variable dependency graph for one model.
type Graph struct {
	nodes map[ident.Canonical]*Node
	order []ident.Canonical
}

// New returns an empty graph.
func New() *Graph { return &Graph{nodes: make(map[ident.Canonical]*Node)} }

// Add registers one variable's ordering dependencies. Call once per
// variable before calling Sort.
func (g *Graph) Add(n Node) {
	if _, exists := g.nodes[n.Name]; !exists {
		g.order = append(g.order, n.Name)
	}
	g.nodes[n.Name] = &n
}

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// RunLists holds the three topologically-ordered lists the VM steps
// through each frame (spec.md §4.2).
type RunLists struct {
	Initials []ident.Canonical // every variable reachable from a stock's initial equation, stocks included, in dependency order
	Flows    []ident.Canonical // every non-stock variable, in dependency order
	Stocks   []ident.Canonical // stocks, in canonical name order
}

// Sort runs two independent topological sorts (spec.md §4.2 "Rules"):
//
//   - Initials: the subgraph reachable from every stock's initial-equation
//     dependencies. A genuine cycle here is a real error.
//   - Flows: every non-stock variable's full reference set, EXCEPT that a
//     reference to a stock is treated as an already-satisfied leaf and never
//     recursed into — stocks hold last-step state, so a flow reading a stock
//     is never an ordering hazard, and this is exactly how SD feedback loops
//     close without the topo sort rejecting them (spec.md §4.2 "A back-edge
//     to an in-progress non-stock variable signals a circular dependency").
func Sort(g *Graph) (RunLists, *errors.Report) {
	var stockNames []ident.Canonical
	for _, name := range g.order {
		if g.nodes[name].Stock {
			stockNames = append(stockNames, name)
		}
	}
	sortCanonical(stockNames)

	initials, rep := topoSort(g, stockNames, false)
	if rep != nil {
		return RunLists{}, rep
	}

	var flowNames []ident.Canonical
	for _, name := range g.order {
		if !g.nodes[name].Stock {
			flowNames = append(flowNames, name)
		}
	}
	sortCanonical(flowNames)

	flows, rep := topoSort(g, flowNames, true)
	if rep != nil {
		return RunLists{}, rep
	}

	return RunLists{Initials: initials, Flows: flows, Stocks: stockNames}, nil
}

// topoSort visits every name in roots (in the given order) and everything
// reachable from it via Deps, stopping at stock boundaries when
// stopAtStocks is true.
func topoSort(g *Graph, roots []ident.Canonical, stopAtStocks bool) ([]ident.Canonical, *errors.Report) {
	state := make(map[ident.Canonical]visitState)
	var global []ident.Canonical
	var stack []ident.Canonical

	var visit func(name ident.Canonical) *errors.Report
	visit = func(name ident.Canonical) *errors.Report {
		switch state[name] {
		case done:
			return nil
		case inProgress:
			path := append(append([]ident.Canonical{}, stack...), name)
			return cycleReport(path)
		}
		n, ok := g.nodes[name]
		if !ok {
			state[name] = done
			global = append(global, name)
			return nil
		}
		state[name] = inProgress
		stack = append(stack, name)
		deps := append([]ident.Canonical{}, n.Deps...)
		sortCanonical(deps)
		for _, d := range deps {
			if stopAtStocks {
				if dn, ok := g.nodes[d]; ok && dn.Stock {
					if state[d] == unvisited {
						state[d] = done
					}
					continue
				}
			}
			if rep := visit(d); rep != nil {
				return rep
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		global = append(global, name)
		return nil
	}

	for _, name := range roots {
		if rep := visit(name); rep != nil {
			return nil, rep
		}
	}
	return global, nil
}

func cycleReport(path []ident.Canonical) *errors.Report {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = string(p)
	}
	return errors.New(errors.MDL001, nil, "circular dependency: "+strings.Join(parts, " -> "))
}

func sortCanonical(names []ident.Canonical) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}

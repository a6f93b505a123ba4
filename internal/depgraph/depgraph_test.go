package depgraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/depgraph"
	"github.com/simlin-go/core/internal/ident"
)

func c(s string) ident.Canonical { return ident.Canonical(s) }

func indexOf(names []ident.Canonical, name ident.Canonical) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Teacup cooling: stock teacup_temperature, flow heat_loss depends on the
// stock plus two auxiliaries. Classic single-loop SD model.
func TestTeacupRunLists(t *testing.T) {
	g := depgraph.New()
	g.Add(depgraph.Node{Name: c("teacup_temperature"), Stock: true, Deps: nil}) // initial = literal 180
	g.Add(depgraph.Node{Name: c("heat_loss"), Deps: []ident.Canonical{"teacup_temperature", "room_temperature", "characteristic_time"}})
	g.Add(depgraph.Node{Name: c("room_temperature"), Deps: nil})
	g.Add(depgraph.Node{Name: c("characteristic_time"), Deps: nil})

	lists, rep := depgraph.Sort(g)
	require.Nil(t, rep)
	require.Equal(t, []ident.Canonical{"teacup_temperature"}, lists.Stocks)
	require.Contains(t, lists.Flows, c("heat_loss"))
	require.Less(t, indexOf(lists.Flows, "room_temperature"), indexOf(lists.Flows, "heat_loss"))
	require.Less(t, indexOf(lists.Flows, "characteristic_time"), indexOf(lists.Flows, "heat_loss"))
}

// A flow reading a stock that in turn is updated by that very flow is the
// normal feedback-loop shape and must NOT be reported as a cycle.
func TestStockMediatedFeedbackIsNotACycle(t *testing.T) {
	g := depgraph.New()
	g.Add(depgraph.Node{Name: c("population"), Stock: true})
	g.Add(depgraph.Node{Name: c("births"), Deps: []ident.Canonical{"population", "birth_rate"}})
	g.Add(depgraph.Node{Name: c("birth_rate"), Deps: nil})

	_, rep := depgraph.Sort(g)
	require.Nil(t, rep)
}

// Two auxiliaries referencing each other directly (no stock in between) is
// a genuine cycle and must be reported as MDL001.
func TestGenuineCycleIsReported(t *testing.T) {
	g := depgraph.New()
	g.Add(depgraph.Node{Name: c("a"), Deps: []ident.Canonical{"b"}})
	g.Add(depgraph.Node{Name: c("b"), Deps: []ident.Canonical{"a"}})

	_, rep := depgraph.Sort(g)
	require.NotNil(t, rep)
	require.Equal(t, "MDL001", rep.Code)
}

func TestInitialsIncludesAuxiliariesReferencedByInitialEquation(t *testing.T) {
	g := depgraph.New()
	g.Add(depgraph.Node{Name: c("savings"), Stock: true, Deps: []ident.Canonical{"starting_balance"}})
	g.Add(depgraph.Node{Name: c("starting_balance"), Deps: nil})

	lists, rep := depgraph.Sort(g)
	require.Nil(t, rep)
	require.Less(t, indexOf(lists.Initials, "starting_balance"), indexOf(lists.Initials, "savings"))
}

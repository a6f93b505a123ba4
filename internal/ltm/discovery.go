package ltm

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/partition"
	"github.com/simlin-go/core/internal/polarity"
)

// MaxLoops and MinContribution bound discovery mode's output (spec.md
// §4.10 "Ranking and filtering").
const (
	MaxLoops        = 200
	MinContribution = 0.001
)

// DiscoveredEdge is one step of a discovered loop's closed path, carrying
// the per-save-step signed link-score series the search graph walked.
type DiscoveredEdge struct {
	From, To ident.Canonical
	Scores   []float64
}

// DiscoveredLoop is one loop found by post-processing a simulation that
// was instrumented with link-score variables for every causal edge
// (spec.md §4.10).
type DiscoveredLoop struct {
	ID           string
	Nodes        []ident.Canonical // sorted node set
	Edges        []DiscoveredEdge
	Scores       []float64 // per save-step signed loop score
	MeanAbsScore float64
	Polarity     polarity.LoopPolarity
}

var linkPrefix = string(ident.ReservedPrefix) + "link" + string(ident.Arrow)

// parseLinkName recovers the (from, to) pair a link-score variable name
// encodes, per ident.LinkScoreName's own construction.
func parseLinkName(name string) (from, to ident.Canonical, ok bool) {
	if !strings.HasPrefix(name, linkPrefix) {
		return "", "", false
	}
	rest := name[len(linkPrefix):]
	idx := strings.Index(rest, string(ident.Arrow))
	if idx < 0 {
		return "", "", false
	}
	return ident.Canonical(rest[:idx]), ident.Canonical(rest[idx+len(string(ident.Arrow)):]), true
}

type searchEdge struct {
	to     ident.Canonical
	scores []float64
	mean   float64 // mean |score| across save steps
}

type searchGraph struct {
	out map[ident.Canonical][]searchEdge
}

// buildSearchGraph parses every link-score series out of results (a
// simulation's save-step offset table, keyed by variable name) and sorts
// each vertex's outgoing edges by mean |score| descending, so a DFS visits
// the empirically strongest links first (spec.md §4.10 step 2).
func buildSearchGraph(results map[string][]float64) *searchGraph {
	g := &searchGraph{out: map[ident.Canonical][]searchEdge{}}
	for name, series := range results {
		from, to, ok := parseLinkName(name)
		if !ok {
			continue
		}
		clean := make([]float64, len(series))
		var sum float64
		for i, v := range series {
			if math.IsNaN(v) {
				v = 0
			}
			clean[i] = v
			sum += math.Abs(v)
		}
		mean := 0.0
		if len(series) > 0 {
			mean = sum / float64(len(series))
		}
		g.out[from] = append(g.out[from], searchEdge{to: to, scores: clean, mean: mean})
	}
	for from := range g.out {
		edges := g.out[from]
		sort.Slice(edges, func(i, j int) bool { return edges[i].mean > edges[j].mean })
	}
	return g
}

func (g *searchGraph) nodes() []ident.Canonical {
	seen := map[ident.Canonical]bool{}
	var out []ident.Canonical
	for from, edges := range g.out {
		if !seen[from] {
			seen[from] = true
			out = append(out, from)
		}
		for _, e := range edges {
			if !seen[e.to] {
				seen[e.to] = true
				out = append(out, e.to)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// stocksOf filters stocks (the project's actual stock names, supplied by
// the caller since the search graph has no variable-kind information of
// its own) down to the ones that actually appear as a vertex in g.
func (g *searchGraph) stocksOf(stocks []ident.Canonical) []ident.Canonical {
	var out []ident.Canonical
	nodeSet := map[ident.Canonical]bool{}
	for _, n := range g.nodes() {
		nodeSet[n] = true
	}
	for _, s := range stocks {
		if nodeSet[s] {
			out = append(out, s)
		}
	}
	return out
}

// Discover finds the loops that most shape a run's behavior by walking the
// search graph built from results (spec.md §4.10): a pruned DFS rooted at
// each of stocks, ranked by mean |score| and filtered to loops that clear
// MinContribution of their partition's total at some step.
func Discover(results map[string][]float64, stocks []ident.Canonical) []DiscoveredLoop {
	g := buildSearchGraph(results)
	roots := g.stocksOf(stocks)

	seen := map[string]bool{}
	var candidates [][]ident.Canonical
	var candidateEdges [][]DiscoveredEdge

	for _, s := range roots {
		bestScore := map[ident.Canonical]float64{}
		visiting := map[ident.Canonical]bool{}
		var path []ident.Canonical
		var pathEdges []DiscoveredEdge

		var dfs func(v ident.Canonical, accum float64)
		dfs = func(v ident.Canonical, accum float64) {
			visiting[v] = true
			path = append(path, v)
			defer func() {
				path = path[:len(path)-1]
				visiting[v] = false
			}()

			for _, e := range g.out[v] {
				nextAccum := accum * math.Abs(e.mean)
				if e.to == s {
					closed := append([]ident.Canonical(nil), path...)
					key := nodeSetKey(closed)
					if !seen[key] {
						seen[key] = true
						edges := append(append([]DiscoveredEdge(nil), pathEdges...), DiscoveredEdge{From: v, To: e.to, Scores: e.scores})
						candidates = append(candidates, closed)
						candidateEdges = append(candidateEdges, edges)
					}
					continue
				}
				if visiting[e.to] {
					continue
				}
				if best, ok := bestScore[e.to]; ok && nextAccum < best {
					continue
				}
				bestScore[e.to] = nextAccum
				pathEdges = append(pathEdges, DiscoveredEdge{From: v, To: e.to, Scores: e.scores})
				dfs(e.to, nextAccum)
				pathEdges = pathEdges[:len(pathEdges)-1]
			}
		}
		dfs(s, 1)
	}

	loops := make([]DiscoveredLoop, 0, len(candidates))
	for i, nodes := range candidates {
		loops = append(loops, buildDiscoveredLoop(nodes, candidateEdges[i]))
	}

	loops = rankAndFilter(loops, stocks)
	assignDiscoveredIDs(loops)
	return loops
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

func buildDiscoveredLoop(nodes []ident.Canonical, edges []DiscoveredEdge) DiscoveredLoop {
	steps := 0
	for _, e := range edges {
		if len(e.Scores) > steps {
			steps = len(e.Scores)
		}
	}
	scores := make([]float64, steps)
	for i := range scores {
		product := 1.0
		for _, e := range edges {
			v := 0.0
			if i < len(e.Scores) {
				v = e.Scores[i]
			}
			product *= v
		}
		scores[i] = product
	}

	var sum float64
	for _, v := range scores {
		sum += math.Abs(v)
	}
	mean := 0.0
	if len(scores) > 0 {
		mean = sum / float64(len(scores))
	}

	sortedNodes := append([]ident.Canonical(nil), nodes...)
	sort.Slice(sortedNodes, func(i, j int) bool { return sortedNodes[i] < sortedNodes[j] })

	return DiscoveredLoop{
		Nodes:        sortedNodes,
		Edges:        edges,
		Scores:       scores,
		MeanAbsScore: mean,
		Polarity:     polarity.RuntimeClassification(scores),
	}
}

// rankAndFilter sorts by mean |score| descending, truncates to MaxLoops,
// and drops any loop that never reaches MinContribution of its partition's
// total score at any save step (spec.md §4.10 "Ranking and filtering").
// Partitions are grouped the same way Augment groups loop scores: by the
// strongly connected component the loop's stock nodes fall into.
func rankAndFilter(loops []DiscoveredLoop, stocks []ident.Canonical) []DiscoveredLoop {
	sort.Slice(loops, func(i, j int) bool { return loops[i].MeanAbsScore > loops[j].MeanAbsScore })
	if len(loops) > MaxLoops {
		loops = loops[:MaxLoops]
	}

	stockSet := map[ident.Canonical]bool{}
	for _, s := range stocks {
		stockSet[s] = true
	}

	edges := map[string][]string{}
	for _, l := range loops {
		var loopStocks []ident.Canonical
		for _, n := range l.Nodes {
			if stockSet[n] {
				loopStocks = append(loopStocks, n)
			}
		}
		for i := range loopStocks {
			from := string(loopStocks[i])
			to := string(loopStocks[(i+1)%len(loopStocks)])
			edges[from] = append(edges[from], to)
		}
	}
	var stockNames []string
	for s := range stockSet {
		stockNames = append(stockNames, string(s))
	}
	sort.Strings(stockNames)
	components := partition.Of(stockNames, edges)
	group := map[string]int{}
	for gi, comp := range components {
		for _, s := range comp {
			group[s] = gi
		}
	}

	groupOf := make([]int, len(loops))
	nextSingleton := len(components)
	for i, l := range loops {
		gi := -1
		for _, n := range l.Nodes {
			if stockSet[n] {
				if g, ok := group[string(n)]; ok {
					gi = g
					break
				}
			}
		}
		if gi == -1 {
			gi = nextSingleton
			nextSingleton++
		}
		groupOf[i] = gi
	}

	totals := map[int][]float64{}
	for i, l := range loops {
		total := totals[groupOf[i]]
		if total == nil {
			total = make([]float64, len(l.Scores))
			totals[groupOf[i]] = total
		}
		for step, v := range l.Scores {
			if step < len(total) {
				total[step] += math.Abs(v)
			}
		}
	}

	var out []DiscoveredLoop
	for i, l := range loops {
		total := totals[groupOf[i]]
		clears := false
		for step, v := range l.Scores {
			if step >= len(total) || total[step] == 0 {
				continue
			}
			if math.Abs(v)/total[step] >= MinContribution {
				clears = true
				break
			}
		}
		if clears {
			out = append(out, l)
		}
	}
	return out
}

func assignDiscoveredIDs(loops []DiscoveredLoop) {
	counters := map[string]int{}
	for i := range loops {
		letter := loops[i].Polarity.Letter()
		counters[letter]++
		loops[i].ID = letter + strconv.Itoa(counters[letter])
	}
}

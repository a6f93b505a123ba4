package ltm

import (
	"strings"

	"github.com/simlin-go/core/internal/causal"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/loops"
	"github.com/simlin-go/core/internal/partition"
)

// infrastructureTemplates mirrors internal/causal's infrastructure set: the
// stdlib templates PREVIOUS and INIT exist to let LTM's own generated
// equations read lagged values without the augmentation recursing into
// itself. Running Augment directly against one of them would try to analyze
// the analysis machinery, so it is rejected as LTM002.
var infrastructureTemplates = map[ident.Canonical]bool{"previous": true, "init": true}

// Augment returns a copy of p whose modelName model has been extended with
// synthetic link-score, loop-score, and relative-loop-score variables for
// every feedback loop internal/loops discovers (spec.md §4.9). p itself is
// never mutated.
func Augment(p *datamodel.Project, modelName ident.Canonical) (*datamodel.Project, *errors.Report) {
	if infrastructureTemplates[modelName] {
		return nil, errors.New(errors.LTM002, nil, "").WithModel(string(modelName))
	}
	model, ok := p.Model(modelName)
	if !ok {
		return nil, errors.New(errors.MDL002, nil, "model not found").WithModel(string(modelName))
	}
	if model.HasArrays() {
		return nil, errors.New(errors.LTM001, nil, "").WithModel(string(modelName))
	}
	if p.SimSpecs.Method == datamodel.RK4 {
		return nil, errors.New(errors.LTM003, nil, "").WithModel(string(modelName))
	}

	res, rep := elaborate.Model(model, p.Dimensions)
	if rep != nil {
		return nil, rep
	}

	graph := causal.Build(model, res, resolverFor(p))
	detected := loops.Detect(model, res, graph)
	if len(detected) == 0 {
		return p.Clone(), nil
	}

	out := p.Clone()
	target, _ := out.Model(modelName)

	linkNames := map[string]ident.Canonical{}
	for _, loop := range detected {
		for _, e := range loop.Edges {
			key := string(e.From) + "\x00" + string(e.To)
			if _, done := linkNames[key]; done {
				continue
			}
			name := ident.LinkScoreName(e.From, e.To)
			expr := linkScoreExpr(model, res.Exprs, e.From, e.To)
			target.AddVariable(&datamodel.Variable{
				Name:     ident.New(string(name)),
				Kind:     datamodel.AuxiliaryKind,
				Equation: render(expr),
			})
			linkNames[key] = name
		}
	}

	for _, loop := range detected {
		parts := make([]string, len(loop.Edges))
		for i, e := range loop.Edges {
			key := string(e.From) + "\x00" + string(e.To)
			parts[i] = quoteIdent(string(linkNames[key]))
		}
		target.AddVariable(&datamodel.Variable{
			Name:     ident.New(string(ident.LoopScoreName(loop.ID))),
			Kind:     datamodel.AuxiliaryKind,
			Equation: strings.Join(parts, " * "),
		})
	}

	groups := partitionLoops(detected)
	for _, loop := range detected {
		denomParts := make([]string, len(groups[loop.ID]))
		for i, name := range groups[loop.ID] {
			denomParts[i] = "abs(" + quoteIdent(string(name)) + ")"
		}
		eq := "safediv(" + quoteIdent(string(ident.LoopScoreName(loop.ID))) +
			", (" + strings.Join(denomParts, " + ") + "), 0)"
		target.AddVariable(&datamodel.Variable{
			Name:     ident.New(string(ident.RelLoopScoreName(loop.ID))),
			Kind:     datamodel.AuxiliaryKind,
			Equation: eq,
		})
	}

	return out, nil
}

func resolverFor(p *datamodel.Project) causal.Resolver {
	return func(subModel ident.Canonical) (*datamodel.Model, *datamodel.DimensionRegistry, bool) {
		m, ok := p.Model(subModel)
		if !ok {
			return nil, nil, false
		}
		return m, p.Dimensions, true
	}
}

// partitionLoops groups loops by the stock-to-stock strongly-connected
// component their traversed stocks fall into (spec.md §4.9 "relative loop
// score ... partition-scoped"), so a loop's relative score is only divided
// against loops that can actually trade dominance with it. A loop that
// traverses no stock (an all-auxiliary cycle closed entirely through module
// outputs) gets its own singleton group.
func partitionLoops(ls []loops.Loop) map[string][]ident.Canonical {
	edges := map[string][]string{}
	seenStock := map[string]bool{}
	var stockNames []string
	for _, loop := range ls {
		stocks := loop.Stocks
		for _, s := range stocks {
			if !seenStock[string(s)] {
				seenStock[string(s)] = true
				stockNames = append(stockNames, string(s))
			}
		}
		for i := range stocks {
			from := string(stocks[i])
			to := string(stocks[(i+1)%len(stocks)])
			edges[from] = append(edges[from], to)
		}
	}

	components := partition.Of(stockNames, edges)
	stockGroup := map[string]int{}
	for gi, comp := range components {
		for _, s := range comp {
			stockGroup[s] = gi
		}
	}

	loopGroup := map[string]int{}
	groupLoops := map[int][]string{}
	nextSingleton := len(components)
	for _, loop := range ls {
		gi := -1
		for _, s := range loop.Stocks {
			if g, ok := stockGroup[string(s)]; ok {
				gi = g
				break
			}
		}
		if gi == -1 {
			gi = nextSingleton
			nextSingleton++
		}
		loopGroup[loop.ID] = gi
		groupLoops[gi] = append(groupLoops[gi], loop.ID)
	}

	out := make(map[string][]ident.Canonical, len(ls))
	for _, loop := range ls {
		ids := groupLoops[loopGroup[loop.ID]]
		names := make([]ident.Canonical, len(ids))
		for i, id := range ids {
			names[i] = ident.LoopScoreName(id)
		}
		out[loop.ID] = names
	}
	return out
}

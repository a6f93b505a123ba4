package ltm

import (
	"github.com/simlin-go/core/internal/causal"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
)

// AugmentAllLinks returns a copy of p whose modelName model carries a
// link-score variable for every edge internal/causal finds, not just the
// ones internal/loops confirms sit on a cycle (spec.md §4.10 "discovery
// mode instruments every causal link so loops can be found empirically
// rather than enumerated structurally"). The difference from Augment is
// exactly this: Augment only instruments edges Detect already knows close
// a loop, and additionally emits loop-score and relative-loop-score
// variables; AugmentAllLinks emits no loop-score variables at all, since
// which edges compose a loop is precisely what Discover determines
// afterward from the resulting run.
func AugmentAllLinks(p *datamodel.Project, modelName ident.Canonical) (*datamodel.Project, *errors.Report) {
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

	out := p.Clone()
	target, _ := out.Model(modelName)

	seen := map[string]bool{}
	for _, from := range graph.Nodes {
		for _, to := range graph.Out[from] {
			key := string(from) + "\x00" + string(to)
			if seen[key] {
				continue
			}
			seen[key] = true
			expr := linkScoreExpr(model, res.Exprs, from, to)
			target.AddVariable(&datamodel.Variable{
				Name:     ident.New(string(ident.LinkScoreName(from, to))),
				Kind:     datamodel.AuxiliaryKind,
				Equation: render(expr),
			})
		}
	}

	return out, nil
}

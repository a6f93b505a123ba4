package vm

import (
	"sort"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/bytecode"
	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/depgraph"
	"github.com/simlin-go/core/internal/elaborate"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/layout"
	"github.com/simlin-go/core/internal/stdlib"
)

// Compile resolves modelName out of p and assembles it, and every module
// instance it transitively instantiates, into a runnable CompiledModule
// (spec.md §4.4 "each instantiation gets an independent state-block inside
// the parent module's storage"). The result shares no mutable state with p:
// Model fields point at p's own *datamodel.Model values (compilation never
// mutates them), but Layout/RunLists/Program/Instances are all freshly built.
func Compile(p *datamodel.Project, modelName ident.Canonical) (*CompiledModule, *errors.Report) {
	model, ok := p.Model(modelName)
	if !ok {
		return nil, errors.New(errors.MDL002, nil, "model not found").WithModel(string(modelName))
	}
	return compileModel(p, model, p.Dimensions)
}

// compileModel runs Stage1 (internal/elaborate) against model, derives its
// dependency runlists (internal/depgraph) and storage layout
// (internal/layout), compiles its equations to bytecode
// (internal/bytecode), and recursively compiles every module instance
// elaborate discovered, wiring each one's input ports as programs evaluated
// against the PARENT'S layout (spec.md §4.4).
func compileModel(p *datamodel.Project, model *datamodel.Model, dims *datamodel.DimensionRegistry) (*CompiledModule, *errors.Report) {
	res, rep := elaborate.Model(model, dims)
	if rep != nil {
		return nil, rep.WithModel(string(model.Name.Canonical))
	}

	g := depgraph.New()
	for _, name := range model.SortedNames() {
		v, ok := model.ByName(name)
		if !ok || v.Kind == datamodel.ModuleKind {
			continue
		}
		var deps []ident.Canonical
		if expr, ok := res.Exprs[name]; ok {
			deps = ast.Vars2(expr)
		}
		g.Add(depgraph.Node{Name: name, Deps: deps, Stock: v.Kind == datamodel.StockKind})
	}
	for _, name := range instanceNames(res.Instances) {
		inst := res.Instances[name]
		var deps []ident.Canonical
		for _, port := range inputPortNames(inst) {
			deps = append(deps, ast.Vars2(inst.Inputs[port])...)
		}
		g.Add(depgraph.Node{Name: name, Deps: deps, Stock: false})
	}

	runLists, rep := depgraph.Sort(g)
	if rep != nil {
		return nil, rep.WithModel(string(model.Name.Canonical))
	}

	l := layout.Build(model, dims)
	prog, rep := bytecode.CompileModule(model, dims, res.Exprs, l)
	if rep != nil {
		return nil, rep.WithModel(string(model.Name.Canonical))
	}

	cm := &CompiledModule{
		Model:    model,
		Layout:   l,
		RunLists: runLists,
		Program:  prog,
		Stocks:   BuildStockWiring(model),
	}

	if len(res.Instances) == 0 {
		return cm, nil
	}

	cm.Instances = make(map[ident.Canonical]*Instance, len(res.Instances))
	for _, name := range instanceNames(res.Instances) {
		inst := res.Instances[name]
		sub, subDims, rep := resolveInstance(p, inst)
		if rep != nil {
			return nil, rep.WithModel(string(model.Name.Canonical)).WithVariable(string(name))
		}
		subCM, rep := compileModel(p, sub, subDims)
		if rep != nil {
			return nil, rep
		}

		inputs := make(map[ident.Canonical]bytecode.Program, len(inst.Inputs))
		for port, expr := range inst.Inputs {
			portProg, rep := bytecode.CompileExpr(model, dims, l, expr)
			if rep != nil {
				return nil, rep.WithModel(string(model.Name.Canonical)).WithVariable(string(name))
			}
			inputs[port] = portProg
		}
		cm.Instances[name] = &Instance{Sub: subCM, Inputs: inputs}
	}

	return cm, nil
}

// resolveInstance looks up the model backing one module instantiation: a
// stdlib template for a stateful builtin, or another model in the same
// project for a user Module variable.
func resolveInstance(p *datamodel.Project, inst *elaborate.Instance) (*datamodel.Model, *datamodel.DimensionRegistry, *errors.Report) {
	if inst.Stdlib {
		sub, ok := stdlib.Template(inst.SubModel)
		if !ok {
			return nil, nil, errors.New(errors.MDL002, nil, "unknown stdlib template "+string(inst.SubModel))
		}
		return sub, nil, nil
	}
	sub, ok := p.Model(inst.SubModel)
	if !ok {
		return nil, nil, errors.New(errors.MDL002, nil, "unknown model "+string(inst.SubModel))
	}
	return sub, p.Dimensions, nil
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

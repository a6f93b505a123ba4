package datamodel

import "github.com/simlin-go/core/internal/ident"

// Project is the top-level immutable value every pipeline stage consumes
// and, for mutating operations (patches, LTM augmentation), produces a new
// copy of (spec.md §3 "A project is immutable once compiled; edits produce
// a new project").
type Project struct {
	Models     []*Model
	SimSpecs   SimSpecs
	Dimensions *DimensionRegistry
	MainModel  ident.Canonical
}

// NewProject returns an empty project with its own dimension registry.
func NewProject() *Project {
	return &Project{Dimensions: NewDimensionRegistry()}
}

// Model looks up a model by canonical name.
func (p *Project) Model(name ident.Canonical) (*Model, bool) {
	for _, m := range p.Models {
		if m.Name.Canonical == name {
			return m, true
		}
	}
	return nil, false
}

// Main returns the project's main model, falling back to the first model
// when MainModel is unset (common for single-model projects imported from
// formats without an explicit "main" concept).
func (p *Project) Main() (*Model, bool) {
	if p.MainModel != "" {
		if m, ok := p.Model(p.MainModel); ok {
			return m, true
		}
	}
	if len(p.Models) > 0 {
		return p.Models[0], true
	}
	return nil, false
}

// AddModel appends m to the project, marking it Main if it is the first
// model added.
func (p *Project) AddModel(m *Model) {
	if len(p.Models) == 0 {
		p.MainModel = m.Name.Canonical
	}
	p.Models = append(p.Models, m)
}

// Clone returns a deep copy of the project. Every operation in
// internal/pipeline that "produces a new immutable project" (spec.md §1
// Non-goals) starts from Clone and mutates the copy.
func (p *Project) Clone() *Project {
	clone := &Project{
		SimSpecs:   p.SimSpecs.Clone(),
		Dimensions: p.Dimensions.Clone(),
		MainModel:  p.MainModel,
	}
	clone.Models = make([]*Model, len(p.Models))
	for i, m := range p.Models {
		clone.Models[i] = m.Clone()
	}
	return clone
}

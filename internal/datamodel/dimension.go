package datamodel

import "github.com/simlin-go/core/internal/ident"

// Dimension is a named, ordered set of elements used to declare arrayed
// (subscripted) variables (spec.md §3). Array variables are recognized by
// the parser throughout the pipeline, but internal/ltm rejects any model
// containing one with a typed error (spec.md §1 Non-goals).
type Dimension struct {
	Name     ident.Ident
	Elements []ident.Ident
}

// Size is the number of elements in the dimension — the "n_slots" factor
// contributed by this axis to an arrayed variable's storage (spec.md §4.3).
func (d Dimension) Size() int { return len(d.Elements) }

// IndexOf returns the zero-based position of element within the dimension.
func (d Dimension) IndexOf(element ident.Canonical) (int, bool) {
	for i, e := range d.Elements {
		if e.Canonical == element {
			return i, true
		}
	}
	return -1, false
}

// DimensionRegistry holds every named dimension declared at the project
// level (spec.md §3 "Project ... Contains a dimension registry").
type DimensionRegistry struct {
	byName map[ident.Canonical]Dimension
	order  []ident.Canonical // canonical names in insertion order; Names() does not read it
}

// NewDimensionRegistry returns an empty registry.
func NewDimensionRegistry() *DimensionRegistry {
	return &DimensionRegistry{byName: map[ident.Canonical]Dimension{}}
}

// Add registers dim, overwriting any prior dimension of the same name.
func (r *DimensionRegistry) Add(dim Dimension) {
	if _, exists := r.byName[dim.Name.Canonical]; !exists {
		r.order = append(r.order, dim.Name.Canonical)
	}
	r.byName[dim.Name.Canonical] = dim
}

// Get looks up a dimension by canonical name.
func (r *DimensionRegistry) Get(name ident.Canonical) (Dimension, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns every declared dimension's canonical name in canonical
// sort order (spec.md §5 "Iteration orders ... use canonical-identifier
// sort order, not insertion or hash order").
func (r *DimensionRegistry) Names() []ident.Canonical {
	out := make([]ident.Canonical, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sortCanonical(out)
	return out
}

// Clone returns a deep copy.
func (r *DimensionRegistry) Clone() *DimensionRegistry {
	clone := NewDimensionRegistry()
	for _, name := range r.Names() {
		d := r.byName[name]
		elems := make([]ident.Ident, len(d.Elements))
		copy(elems, d.Elements)
		clone.Add(Dimension{Name: d.Name, Elements: elems})
	}
	return clone
}

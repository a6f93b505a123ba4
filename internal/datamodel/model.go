package datamodel

import "github.com/simlin-go/core/internal/ident"

// Model is a named set of variables plus stock<->flow connections and
// opaque views (spec.md §3).
type Model struct {
	Name        ident.Ident
	Variables   []*Variable
	Connections []Connection
	Views       []View

	byName map[ident.Canonical]*Variable // lazily built index, see ByName
}

// ByName looks up a variable by canonical name, building the index on
// first use. Every map/set operation on variable names in this module goes
// through canonical identifiers (spec.md §9 "Identifier normalization").
func (m *Model) ByName(name ident.Canonical) (*Variable, bool) {
	if m.byName == nil {
		m.reindex()
	}
	v, ok := m.byName[name]
	return v, ok
}

func (m *Model) reindex() {
	m.byName = make(map[ident.Canonical]*Variable, len(m.Variables))
	for _, v := range m.Variables {
		m.byName[v.Name.Canonical] = v
	}
}

// AddVariable appends v and invalidates the name index.
func (m *Model) AddVariable(v *Variable) {
	m.Variables = append(m.Variables, v)
	m.byName = nil
}

// RemoveVariable deletes the variable named name, if present, and reports
// whether anything was removed.
func (m *Model) RemoveVariable(name ident.Canonical) bool {
	for i, v := range m.Variables {
		if v.Name.Canonical == name {
			m.Variables = append(m.Variables[:i], m.Variables[i+1:]...)
			m.byName = nil
			return true
		}
	}
	return false
}

// SortedNames returns every variable's canonical name in canonical sort
// order (spec.md §4.3 "Offsets are deterministic in the canonical order of
// variable names").
func (m *Model) SortedNames() []ident.Canonical {
	out := make([]ident.Canonical, len(m.Variables))
	for i, v := range m.Variables {
		out[i] = v.Name.Canonical
	}
	sortCanonical(out)
	return out
}

// HasArrays reports whether any variable in the model is subscripted
// (spec.md §1 Non-goals; used by internal/ltm to raise LTM001).
func (m *Model) HasArrays() bool {
	for _, v := range m.Variables {
		if v.IsArray() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	clone := &Model{
		Name:        m.Name,
		Connections: append([]Connection(nil), m.Connections...),
		Views:       append([]View(nil), m.Views...),
	}
	clone.Variables = make([]*Variable, len(m.Variables))
	for i, v := range m.Variables {
		clone.Variables[i] = v.Clone()
	}
	return clone
}

// Package layout assigns each variable in a module instantiation a
// contiguous storage range (spec.md §4.3). Offsets are deterministic in
// the canonical order of variable names, so that editing a single
// equation never changes any other variable's offset.
package layout

import (
	"sort"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
)

// Slot describes one variable's storage range within a module frame.
type Slot struct {
	Name   ident.Canonical
	Offset int
	Size   int // 1 for scalars, product of dimension sizes for arrays
}

// Layout is the full offset assignment for one model.
type Layout struct {
	Slots    map[ident.Canonical]Slot
	Order    []ident.Canonical // canonical name order, matching Slot.Offset order
	NumSlots int               // total width of the module's storage frame
}

// Build assigns offsets to every variable in m, in canonical name order.
// dims resolves each array variable's dimension sizes; pass nil for
// scalar-only models. A dimension name dims does not hold contributes a
// factor of 1 to the variable's size.
func Build(m *datamodel.Model, dims *datamodel.DimensionRegistry) *Layout {
	names := make([]ident.Canonical, len(m.Variables))
	for i, v := range m.Variables {
		names[i] = v.Name.Canonical
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	l := &Layout{Slots: make(map[ident.Canonical]Slot, len(names)), Order: names}
	offset := 0
	for _, name := range names {
		v, _ := m.ByName(name)
		size := 1
		if v.IsArray() && dims != nil {
			size = arraySize(v, dims)
		}
		l.Slots[name] = Slot{Name: name, Offset: offset, Size: size}
		offset += size
	}
	l.NumSlots = offset
	return l
}

func arraySize(v *datamodel.Variable, dims *datamodel.DimensionRegistry) int {
	size := 1
	for _, dimName := range v.Dimensions {
		if d, ok := dims.Get(dimName); ok {
			size *= d.Size()
		}
	}
	if size == 0 {
		size = 1
	}
	return size
}

// Offset returns the slot for name, and whether it was found.
func (l *Layout) Offset(name ident.Canonical) (Slot, bool) {
	s, ok := l.Slots[name]
	return s, ok
}

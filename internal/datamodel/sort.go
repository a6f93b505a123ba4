package datamodel

import (
	"sort"

	"github.com/simlin-go/core/internal/ident"
)

// sortCanonical sorts canonical identifiers in place, lexicographically.
// Every map keyed by ident.Canonical in this module is iterated through
// this helper so that output order never depends on Go's randomized map
// iteration (spec.md §5 "Determinism").
func sortCanonical(names []ident.Canonical) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}

package layout_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/layout"
)

func TestOffsetsAreCanonicalOrderAndContiguous(t *testing.T) {
	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{Name: ident.New("zebra"), Kind: datamodel.AuxiliaryKind, Equation: "1"})
	m.AddVariable(&datamodel.Variable{Name: ident.New("apple"), Kind: datamodel.AuxiliaryKind, Equation: "2"})
	m.AddVariable(&datamodel.Variable{Name: ident.New("mango"), Kind: datamodel.AuxiliaryKind, Equation: "3"})

	l := layout.Build(m, nil)
	require.Equal(t, []ident.Canonical{"apple", "mango", "zebra"}, l.Order)

	apple, _ := l.Offset("apple")
	mango, _ := l.Offset("mango")
	zebra, _ := l.Offset("zebra")
	require.Equal(t, 0, apple.Offset)
	require.Equal(t, 1, mango.Offset)
	require.Equal(t, 2, zebra.Offset)
	require.Equal(t, 3, l.NumSlots)
}

func TestEditingOneEquationDoesNotMoveOtherOffsets(t *testing.T) {
	build := func(eq string) *layout.Layout {
		m := &datamodel.Model{Name: ident.New("main")}
		m.AddVariable(&datamodel.Variable{Name: ident.New("a"), Kind: datamodel.AuxiliaryKind, Equation: eq})
		m.AddVariable(&datamodel.Variable{Name: ident.New("b"), Kind: datamodel.AuxiliaryKind, Equation: "a"})
		return layout.Build(m, nil)
	}
	l1 := build("1")
	l2 := build("999")
	b1, _ := l1.Offset("b")
	b2, _ := l2.Offset("b")
	require.Equal(t, b1.Offset, b2.Offset)
}

func TestArraySizeIsDimensionProduct(t *testing.T) {
	dims := datamodel.NewDimensionRegistry()
	dims.Add(datamodel.Dimension{Name: ident.New("region"), Elements: []ident.Ident{ident.New("east"), ident.New("west"), ident.New("north")}})

	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("population"), Kind: datamodel.AuxiliaryKind, Equation: "0",
		Dimensions: []ident.Canonical{"region"},
	})

	l := layout.Build(m, dims)
	pop, ok := l.Offset("population")
	require.True(t, ok)
	require.Equal(t, 3, pop.Size)
}

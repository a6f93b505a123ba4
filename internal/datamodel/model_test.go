package datamodel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
)

func teacupModel() *datamodel.Model {
	m := &datamodel.Model{Name: ident.New("main")}
	m.AddVariable(&datamodel.Variable{
		Name:            ident.New("teacup_temperature"),
		Kind:            datamodel.StockKind,
		InitialEquation: "180",
		Outflows:        []ident.Canonical{ident.Canon("heat_loss")},
	})
	m.AddVariable(&datamodel.Variable{
		Name:     ident.New("heat_loss"),
		Kind:     datamodel.FlowKind,
		Equation: "(teacup_temperature - room_temperature) / characteristic_time",
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("room_temperature"), Kind: datamodel.AuxiliaryKind, Equation: "70",
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("characteristic_time"), Kind: datamodel.AuxiliaryKind, Equation: "10",
	})
	return m
}

func TestByNameUsesCanonicalForm(t *testing.T) {
	m := teacupModel()
	v, ok := m.ByName(ident.Canon("  Teacup_Temperature  "))
	require.True(t, ok)
	require.Equal(t, "teacup_temperature", v.Name.Original)
}

func TestSortedNamesIsCanonicalOrder(t *testing.T) {
	m := teacupModel()
	names := m.SortedNames()
	for i := 1; i < len(names); i++ {
		require.Less(t, string(names[i-1]), string(names[i]))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := teacupModel()
	clone := m.Clone()
	clone.Variables[0].InitialEquation = "200"
	orig, _ := m.ByName(ident.Canon("teacup_temperature"))
	require.Equal(t, "180", orig.InitialEquation)
}

func TestRemoveVariable(t *testing.T) {
	m := teacupModel()
	require.True(t, m.RemoveVariable(ident.Canon("heat_loss")))
	_, ok := m.ByName(ident.Canon("heat_loss"))
	require.False(t, ok)
	require.False(t, m.RemoveVariable(ident.Canon("heat_loss")))
}

func TestProjectMainFallsBackToFirstModel(t *testing.T) {
	p := datamodel.NewProject()
	p.AddModel(teacupModel())
	main, ok := p.Main()
	require.True(t, ok)
	require.Equal(t, "main", main.Name.Original)
}

package importer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/importer"
)

func TestProtobufRoundTrip(t *testing.T) {
	p := teacupProject()
	p.SimSpecs.Method = datamodel.RK4
	saveStep := 0.5
	p.SimSpecs.SaveStep = &saveStep
	p.Dimensions.Add(datamodel.Dimension{
		Name:     ident.New("region"),
		Elements: []ident.Ident{ident.New("north"), ident.New("south")},
	})

	data, rep := importer.SerializeProtobuf(p)
	require.Nil(t, rep)
	require.NotEmpty(t, data)

	back, rep := importer.OpenProtobuf(data)
	require.Nil(t, rep)

	require.Equal(t, datamodel.RK4, back.SimSpecs.Method)
	require.NotNil(t, back.SimSpecs.SaveStep)
	require.Equal(t, 0.5, *back.SimSpecs.SaveStep)

	dims := back.Dimensions.Names()
	require.Contains(t, dims, ident.Canonical("region"))
	dim, ok := back.Dimensions.Get("region")
	require.True(t, ok)
	require.Len(t, dim.Elements, 2)

	m, ok := back.Model("teacup")
	require.True(t, ok)
	require.Len(t, m.Variables, 4)

	stock, ok := m.ByName(ident.New("Teacup Temperature").Canonical)
	require.True(t, ok)
	require.Equal(t, datamodel.StockKind, stock.Kind)
	require.Equal(t, "180", stock.InitialEquation)

	ct, ok := m.ByName(ident.New("Characteristic Time").Canonical)
	require.True(t, ok)
	require.NotNil(t, ct.GF)
	require.Equal(t, []float64{0, 5, 10}, ct.GF.Y)
	require.Equal(t, [2]float64{0, 1}, ct.GF.XScale)
}

func TestOpenProtobufRejectsTruncatedInput(t *testing.T) {
	p := teacupProject()
	data, rep := importer.SerializeProtobuf(p)
	require.Nil(t, rep)

	_, rep = importer.OpenProtobuf(data[:len(data)-1])
	require.NotNil(t, rep)
	require.Equal(t, "IMP003", rep.Code)
}

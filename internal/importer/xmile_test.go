package importer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/importer"
)

const teacupXMILE = `<?xml version="1.0"?>
<xmile version="1.0">
  <sim_specs>
    <start>0</start>
    <stop>30</stop>
    <dt>0.125</dt>
  </sim_specs>
  <model name="teacup">
    <variables>
      <stock name="teacup_temperature">
        <eqn>180</eqn>
        <outflow>heat_loss</outflow>
      </stock>
      <flow name="heat_loss">
        <eqn>(teacup_temperature - room_temperature) / characteristic_time</eqn>
      </flow>
      <aux name="room_temperature">
        <eqn>70</eqn>
      </aux>
      <aux name="characteristic_time">
        <eqn>10</eqn>
        <gf type="continuous">
          <xscale min="0" max="1"/>
          <yscale min="0" max="10"/>
          <ypts>0,5,10</ypts>
        </gf>
      </aux>
    </variables>
  </model>
</xmile>`

func TestOpenXMILEParsesStocksFlowsAuxes(t *testing.T) {
	p, rep := importer.OpenXMILE([]byte(teacupXMILE))
	require.Nil(t, rep)

	m, ok := p.Model("teacup")
	require.True(t, ok)
	require.Len(t, m.Variables, 4)

	stock, ok := m.ByName("teacup_temperature")
	require.True(t, ok)
	require.Equal(t, datamodel.StockKind, stock.Kind)
	require.Equal(t, "180", stock.InitialEquation)
	require.Equal(t, []ident.Canonical{"heat_loss"}, stock.Outflows)

	ct, ok := m.ByName("characteristic_time")
	require.True(t, ok)
	require.NotNil(t, ct.GF)
	require.Equal(t, []float64{0, 5, 10}, ct.GF.Y)
	require.Equal(t, [2]float64{0, 10}, ct.GF.YScale)

	require.Equal(t, 0.125, p.SimSpecs.Dt)
}

func TestOpenXMILERejectsMalformedXML(t *testing.T) {
	_, rep := importer.OpenXMILE([]byte("<xmile><unclosed></xmile>"))
	require.NotNil(t, rep)
	require.Equal(t, "IMP001", rep.Code)
}

func TestXMILERoundTripPreservesModel(t *testing.T) {
	p := teacupProject()
	data, rep := importer.SerializeXMILE(p)
	require.Nil(t, rep)

	back, rep := importer.OpenXMILE(data)
	require.Nil(t, rep)

	m, ok := back.Model("teacup")
	require.True(t, ok)
	require.Len(t, m.Variables, 4)
}

package importer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/importer"
)

const teacupMDL = `{UTF-8}
Teacup Temperature= INTEG (
	-Heat Loss,
		180)
	~	Degrees
	~	|

Heat Loss=
	(Teacup Temperature-Room Temperature)/Characteristic Time
	~	Degrees/Minute
	~	|

Room Temperature=
	70
	~	Degrees
	~	|

Characteristic Time=
	10
	~	Minute
	~	|

********************************************************
.Control
********************************************************~
		Simulation Control Parameters
		|

FINAL TIME  = 30
	~	Minute
	~	|

INITIAL TIME  = 0
	~	Minute
	~	|

TIME STEP  = 0.125
	~	Minute
	~	|
`

func TestOpenMDLParsesStockAndDerivesFlowKind(t *testing.T) {
	p, rep := importer.OpenMDL([]byte(teacupMDL))
	require.Nil(t, rep)

	m, ok := p.Main()
	require.True(t, ok)

	stock, ok := m.ByName("teacup_temperature")
	require.True(t, ok)
	require.Equal(t, datamodel.StockKind, stock.Kind)
	require.Equal(t, "180", stock.InitialEquation)
	require.Equal(t, 1, len(stock.Outflows))

	flow, ok := m.ByName("heat_loss")
	require.True(t, ok)
	require.Equal(t, datamodel.FlowKind, flow.Kind)

	require.Equal(t, 0.0, p.SimSpecs.Start)
	require.Equal(t, 30.0, p.SimSpecs.Stop)
	require.Equal(t, 0.125, p.SimSpecs.Dt)
}

func TestOpenMDLRejectsUnsupportedNetFlowTerm(t *testing.T) {
	_, rep := importer.OpenMDL([]byte("Stock= INTEG (max(0, inflow)-outflow, 0)\n\t~\t\n\t~\t|\n"))
	require.NotNil(t, rep)
	require.Equal(t, "IMP004", rep.Code)
}

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/pipeline"
)

// teacupProject builds the teacup-cooling model from equation text, reused
// across pipeline's tests the same way vm_test and importer_test each keep
// their own copy for their layer.
func teacupProject() *datamodel.Project {
	m := &datamodel.Model{Name: ident.New("teacup")}
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("teacup_temperature"), Kind: datamodel.StockKind,
		InitialEquation: "180", Outflows: []ident.Canonical{"heat_loss"},
	})
	m.AddVariable(&datamodel.Variable{
		Name: ident.New("heat_loss"), Kind: datamodel.FlowKind,
		Equation: "(teacup_temperature - room_temperature) / characteristic_time",
	})
	m.AddVariable(&datamodel.Variable{Name: ident.New("room_temperature"), Kind: datamodel.AuxiliaryKind, Equation: "70"})
	m.AddVariable(&datamodel.Variable{Name: ident.New("characteristic_time"), Kind: datamodel.AuxiliaryKind, Equation: "10"})

	p := datamodel.NewProject()
	p.SimSpecs = datamodel.SimSpecs{Start: 0, Stop: 30, Dt: 0.125, Method: datamodel.Euler}
	p.AddModel(m)
	return p
}

func TestIsSimulatableAcceptsWellFormedModel(t *testing.T) {
	p := teacupProject()
	require.True(t, pipeline.IsSimulatable(p, "teacup"))
}

func TestIsSimulatableRejectsUnknownModel(t *testing.T) {
	p := teacupProject()
	require.False(t, pipeline.IsSimulatable(p, "nope"))
}

func TestIsSimulatableRejectsCircularDependency(t *testing.T) {
	p := teacupProject()
	m, _ := p.Model("teacup")
	v, _ := m.ByName(ident.New("room_temperature").Canonical)
	v.Equation = "characteristic_time"
	other, _ := m.ByName(ident.New("characteristic_time").Canonical)
	other.Equation = "room_temperature"

	require.False(t, pipeline.IsSimulatable(p, "teacup"))
}

func TestGetErrorsEmptyForCleanProject(t *testing.T) {
	p := teacupProject()
	require.Empty(t, pipeline.GetErrors(p))
}

func TestOpenJSONThenGetErrorsSurfacesParseFailures(t *testing.T) {
	_, rep := pipeline.OpenJSON([]byte("not json"))
	require.NotNil(t, rep)
	require.Equal(t, "IMP004", rep.Code)
}

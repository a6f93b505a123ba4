package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/pipeline"
)

// TestScenarioTeacupCoolingOverrideLowersFinalTemperature applies an
// override at simulate time and confirms it both takes effect immediately
// and changes the trajectory versus the default run. The teacup_cooling.yaml
// and logistic_growth.yaml fixtures under testdata/scenarios cover the
// corresponding default-run end-to-end cases.
func TestScenarioTeacupCoolingOverrideLowersFinalTemperature(t *testing.T) {
	p := teacupProject()

	base, rep := pipeline.Simulate(p, "teacup", nil, false)
	require.Nil(t, rep)
	base.RunToEnd()
	baseFinal, _ := base.GetValue("teacup_temperature")

	overridden, rep := pipeline.Simulate(p, "teacup", map[ident.Canonical]float64{"room_temperature": 30}, false)
	require.Nil(t, rep)

	rt, ok := overridden.GetValue("room_temperature")
	require.True(t, ok)
	require.Equal(t, 30.0, rt)

	overridden.RunToEnd()
	overriddenFinal, _ := overridden.GetValue("teacup_temperature")
	require.Less(t, overriddenFinal, baseFinal)
}

// TestScenarioEmptyPatchIsANoOp confirms an empty patch document leaves a
// project's variables untouched and reports no errors.
func TestScenarioEmptyPatchIsANoOp(t *testing.T) {
	p := teacupProject()

	out, compileErrs, rep := pipeline.ApplyPatch(p, []byte(`{"project_ops":[],"models":[]}`), false, false)
	require.Nil(t, rep)
	require.Empty(t, compileErrs)

	before, rep := pipeline.SerializeProtobuf(p)
	require.Nil(t, rep)
	after, rep := pipeline.SerializeProtobuf(out)
	require.Nil(t, rep)
	require.Equal(t, before, after)
}

package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simlin-go/core/internal/datamodel"
	"github.com/simlin-go/core/internal/ident"
)

// Scenario describes one concrete end-to-end test case loaded from a YAML
// fixture under testdata/scenarios, the same "spec file on disk, parsed
// into a Go struct, driven through the pipeline" idiom the teacher used for
// its benchmark specs. Each fixture names a tiny model, its sim-specs, and
// the observable expectations a run against it must satisfy.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Model       scenarioModel      `yaml:"model"`
	SimSpecs    scenarioSimSpecs   `yaml:"sim_specs"`
	EnableLTM   bool               `yaml:"enable_ltm"`
	Expect      scenarioExpectations `yaml:"expect"`
}

type scenarioModel struct {
	Name      string             `yaml:"name"`
	Variables []scenarioVariable `yaml:"variables"`
}

type scenarioVariable struct {
	Name            string   `yaml:"name"`
	Kind            string   `yaml:"kind"` // stock, flow, aux
	Equation        string   `yaml:"equation"`
	InitialEquation string   `yaml:"initial_equation"`
	Inflows         []string `yaml:"inflows"`
	Outflows        []string `yaml:"outflows"`
	NonNegative     bool     `yaml:"non_negative"`
}

type scenarioSimSpecs struct {
	Start    float64 `yaml:"start"`
	Stop     float64 `yaml:"stop"`
	Dt       float64 `yaml:"dt"`
	Method   string  `yaml:"method"` // euler, rk4
	SaveStep float64 `yaml:"save_step"`
}

type scenarioExpectations struct {
	InitialValue         map[string]float64 `yaml:"initial_value"`
	FinalLessThan        map[string]float64 `yaml:"final_less_than"`
	FinalGreaterThan     map[string]float64 `yaml:"final_greater_than"`
	FinalTime            *float64           `yaml:"final_time"`
	MinLoopCount         *int               `yaml:"min_loop_count"`
	ExactLoopCount       *int               `yaml:"exact_loop_count"`
}

// LoadScenario reads and parses a single YAML fixture.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Model.Name == "" {
		return nil, fmt.Errorf("scenario %s: model.name is required", path)
	}
	return &s, nil
}

// Build assembles the scenario's model description into a runnable Project.
func (s *Scenario) Build() *datamodel.Project {
	m := &datamodel.Model{Name: ident.New(s.Model.Name)}
	for _, sv := range s.Model.Variables {
		v := &datamodel.Variable{
			Name:            ident.New(sv.Name),
			Equation:        sv.Equation,
			InitialEquation: sv.InitialEquation,
			Inflows:         canonSlice(sv.Inflows),
			Outflows:        canonSlice(sv.Outflows),
			NonNegative:     sv.NonNegative,
		}
		switch sv.Kind {
		case "stock":
			v.Kind = datamodel.StockKind
		case "flow":
			v.Kind = datamodel.FlowKind
		default:
			v.Kind = datamodel.AuxiliaryKind
		}
		m.AddVariable(v)
	}

	p := datamodel.NewProject()
	method := datamodel.Euler
	if s.SimSpecs.Method == "rk4" {
		method = datamodel.RK4
	}
	p.SimSpecs = datamodel.SimSpecs{
		Start: s.SimSpecs.Start, Stop: s.SimSpecs.Stop, Dt: s.SimSpecs.Dt, Method: method,
	}
	if s.SimSpecs.SaveStep != 0 {
		save := s.SimSpecs.SaveStep
		p.SimSpecs.SaveStep = &save
	}
	p.AddModel(m)
	return p
}

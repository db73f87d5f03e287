package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a pipeline to execute, the
// initial payload, and assertions over the outcome and the emitted
// execution records.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Pipeline is the path to the pipeline YAML, relative to the
	// scenario file location.
	Pipeline string `yaml:"pipeline"`

	// Input is the run's initial payload.
	Input InputDoc `yaml:"input"`

	// RunID fixes the run id for deterministic golden comparison.
	// Defaults to "run-fixed-0001" when empty.
	RunID string `yaml:"run_id,omitempty"`

	// Expect describes the expected outcome.
	Expect ExpectDoc `yaml:"expect"`

	// Assertions validate individual execution records.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// InputDoc is the authored initial payload.
type InputDoc struct {
	// Data seeds the primary channel. Absent means null.
	Data any `yaml:"data,omitempty"`

	// Context seeds the run context.
	Context map[string]any `yaml:"context,omitempty"`
}

// ExpectDoc describes the expected run outcome. When ErrorCode is set the
// run must fail with that code and the other fields are ignored.
type ExpectDoc struct {
	// Data is the expected final primary value.
	Data any `yaml:"data,omitempty"`

	// Context is a subset match over the final run context.
	Context map[string]any `yaml:"context,omitempty"`

	// ErrorCode is the expected failure code for negative scenarios.
	ErrorCode string `yaml:"error_code,omitempty"`
}

// Assertion validates one execution record.
type Assertion struct {
	// Type selects the assertion:
	//   - "param_origin": parameter resolved with the given origin
	//   - "upstream": record's upstream list equals Nodes
	//   - "record_count": total records equals Count
	Type string `yaml:"type"`

	// Seq selects the record by execution sequence
	// (used by param_origin, upstream).
	Seq int `yaml:"seq,omitempty"`

	// Param names the parameter (used by param_origin).
	Param string `yaml:"param,omitempty"`

	// Origin is the expected origin (used by param_origin).
	Origin string `yaml:"origin,omitempty"`

	// Producer is the expected producer kind of the parameter's source
	// ref, when non-empty (used by param_origin).
	Producer string `yaml:"producer,omitempty"`

	// Nodes is the expected upstream list (used by upstream).
	// An empty list asserts no upstream.
	Nodes []string `yaml:"nodes"`

	// Count is the expected record count (used by record_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertParamOrigin = "param_origin"
	AssertUpstream    = "upstream"
	AssertRecordCount = "record_count"
)

// LoadScenario reads and parses a scenario YAML file. The pipeline path
// is resolved relative to the scenario file's directory. Unknown fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if scenario.Pipeline != "" && !filepath.IsAbs(scenario.Pipeline) {
		scenario.Pipeline = filepath.Join(filepath.Dir(path), scenario.Pipeline)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	if _, err := os.Stat(s.Pipeline); os.IsNotExist(err) {
		return fmt.Errorf("pipeline file not found: %s", s.Pipeline)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertParamOrigin:
		if a.Param == "" {
			return fmt.Errorf("assertions[%d]: param is required for param_origin", index)
		}
		if a.Origin == "" {
			return fmt.Errorf("assertions[%d]: origin is required for param_origin", index)
		}
	case AssertUpstream:
		// Nodes may legitimately be empty: it asserts no upstream.
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/weftrun/weft/internal/ir"
)

// TraceSnapshot captures a scenario execution for golden comparison.
// Serialized as RFC 8785 canonical JSON so byte equality is meaningful.
type TraceSnapshot struct {
	ScenarioName string
	RunID        string
	FinalData    ir.Value
	Records      []ir.Object
}

func (s *TraceSnapshot) canonicalMap() ir.Object {
	records := make(ir.Array, len(s.Records))
	for i, rec := range s.Records {
		records[i] = rec
	}
	obj := ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"run_id":        ir.String(s.RunID),
		"records":       records,
	}
	if s.FinalData != nil {
		obj["final_data"] = s.FinalData
	}
	return obj
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		RunID:        result.RunID,
		FinalData:    result.Data,
	}
	for _, rec := range result.Records {
		snapshot.Records = append(snapshot.Records, rec.CanonicalMap())
	}

	traceJSON, err := ir.MarshalCanonical(snapshot.canonicalMap())
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}

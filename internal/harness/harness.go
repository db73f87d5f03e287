// Package harness runs conformance scenarios end to end: it compiles a
// pipeline document, executes it through the real engine with a
// deterministic run id and an in-memory trace driver, and evaluates the
// scenario's expectations against the final payload and the emitted
// execution records.
package harness

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/weftrun/weft/internal/compiler"
	"github.com/weftrun/weft/internal/engine"
	"github.com/weftrun/weft/internal/ir"
	"github.com/weftrun/weft/internal/processor"
	"github.com/weftrun/weft/internal/trace"
)

// defaultRunID keeps golden traces stable when a scenario does not pin
// its own run id.
const defaultRunID = "run-fixed-0001"

// Result is the outcome of running one scenario.
type Result struct {
	// RunID is the id the run executed under. Empty when compilation
	// failed before a run started.
	RunID string

	// Data is the final primary value of a successful run.
	Data ir.Value

	// Context is the final run context of a successful run.
	Context *engine.Context

	// Records are the execution records captured by the memory driver.
	Records []*trace.ExecutionRecord

	// Errors are expectation and assertion failures.
	Errors []string
}

// Passed reports whether every expectation and assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

func (r *Result) addErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Run executes a scenario against the builtin processor registry.
//
// Each scenario runs with a fresh channel store and context, a fixed run
// id, and a memory trace driver, so repeated executions produce identical
// records.
func Run(scenario *Scenario) (*Result, error) {
	result := &Result{}

	pipeline, err := compiler.LoadFile(scenario.Pipeline)
	if err != nil {
		evaluateError(result, scenario, err)
		return result, nil
	}

	payload, err := buildPayload(scenario.Input)
	if err != nil {
		return nil, fmt.Errorf("building input payload: %w", err)
	}

	runID := scenario.RunID
	if runID == "" {
		runID = defaultRunID
	}
	driver := trace.NewMemoryDriver()
	runner := engine.NewRunner(processor.NewBuiltinRegistry(),
		engine.WithDriver(driver),
		engine.WithRunIDGenerator(trace.NewFixedGenerator(runID)),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)

	out, err := runner.Execute(pipeline, payload)
	result.RunID = runID
	result.Records = driver.Records()
	if err != nil {
		evaluateError(result, scenario, err)
		return result, nil
	}
	result.Data = out.Data
	result.Context = out.Context

	evaluateOutcome(result, scenario)
	evaluateAssertions(result, scenario.Assertions)
	return result, nil
}

func buildPayload(in InputDoc) (engine.Payload, error) {
	payload := engine.Payload{}
	if in.Data != nil {
		v, err := ir.FromGo(in.Data)
		if err != nil {
			return engine.Payload{}, fmt.Errorf("input.data: %w", err)
		}
		payload.Data = v
	}
	if len(in.Context) > 0 {
		payload.Context = make(map[string]ir.Value, len(in.Context))
		for key, raw := range in.Context {
			v, err := ir.FromGo(raw)
			if err != nil {
				return engine.Payload{}, fmt.Errorf("input.context.%s: %w", key, err)
			}
			payload.Context[key] = v
		}
	}
	return payload, nil
}

// evaluateError checks a failed compile or run against the scenario's
// expected error code.
func evaluateError(result *Result, scenario *Scenario, err error) {
	code := failureCode(err)
	switch {
	case scenario.Expect.ErrorCode == "":
		result.addErrorf("unexpected failure: %v", err)
	case code != scenario.Expect.ErrorCode:
		result.addErrorf("expected error code %s, got %s (%v)", scenario.Expect.ErrorCode, code, err)
	}
}

func failureCode(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	if code := compiler.CodeOf(err); code != "" {
		return code
	}
	return "INTERNAL"
}

func evaluateOutcome(result *Result, scenario *Scenario) {
	if scenario.Expect.ErrorCode != "" {
		result.addErrorf("expected error code %s but run succeeded", scenario.Expect.ErrorCode)
		return
	}

	if scenario.Expect.Data != nil {
		want, err := ir.FromGo(scenario.Expect.Data)
		if err != nil {
			result.addErrorf("expect.data: %v", err)
		} else if !ir.Equal(want, result.Data) {
			result.addErrorf("final data mismatch: want %v, got %v", want, result.Data)
		}
	}

	for key, raw := range scenario.Expect.Context {
		want, err := ir.FromGo(raw)
		if err != nil {
			result.addErrorf("expect.context.%s: %v", key, err)
			continue
		}
		got, ok := result.Context.Get(key)
		if !ok {
			result.addErrorf("context key %q absent from final context", key)
			continue
		}
		if !ir.Equal(want, got) {
			result.addErrorf("context key %q mismatch: want %v, got %v", key, want, got)
		}
	}
}

func evaluateAssertions(result *Result, assertions []Assertion) {
	for i, a := range assertions {
		switch a.Type {
		case AssertRecordCount:
			if len(result.Records) != a.Count {
				result.addErrorf("assertions[%d]: expected %d records, got %d", i, a.Count, len(result.Records))
			}
		case AssertParamOrigin:
			assertParamOrigin(result, i, a)
		case AssertUpstream:
			assertUpstream(result, i, a)
		}
	}
}

func recordAt(result *Result, seq int) *trace.ExecutionRecord {
	for _, rec := range result.Records {
		if rec.Seq == int64(seq) {
			return rec
		}
	}
	return nil
}

func assertParamOrigin(result *Result, index int, a Assertion) {
	rec := recordAt(result, a.Seq)
	if rec == nil {
		result.addErrorf("assertions[%d]: no record with seq %d", index, a.Seq)
		return
	}
	for _, p := range rec.Parameters {
		if p.Name != a.Param {
			continue
		}
		if p.Origin != a.Origin {
			result.addErrorf("assertions[%d]: param %q origin: want %s, got %s", index, a.Param, a.Origin, p.Origin)
		}
		if a.Producer != "" {
			if p.SourceRef == nil || p.SourceRef.Producer == nil {
				result.addErrorf("assertions[%d]: param %q carries no producer", index, a.Param)
			} else if p.SourceRef.Producer.Kind != a.Producer {
				result.addErrorf("assertions[%d]: param %q producer: want %s, got %s",
					index, a.Param, a.Producer, p.SourceRef.Producer.Kind)
			}
		}
		return
	}
	result.addErrorf("assertions[%d]: record seq %d has no parameter %q", index, a.Seq, a.Param)
}

func assertUpstream(result *Result, index int, a Assertion) {
	rec := recordAt(result, a.Seq)
	if rec == nil {
		result.addErrorf("assertions[%d]: no record with seq %d", index, a.Seq)
		return
	}
	if !slices.Equal(rec.Dependencies.Upstream, a.Nodes) {
		result.addErrorf("assertions[%d]: upstream mismatch: want %v, got %v",
			index, a.Nodes, rec.Dependencies.Upstream)
	}
}

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftrun/weft/internal/compiler"
	"github.com/weftrun/weft/internal/ir"
	"github.com/weftrun/weft/internal/processor"
	"github.com/weftrun/weft/internal/trace"
)

func compilePipeline(t *testing.T, doc *compiler.Document) *compiler.Pipeline {
	t.Helper()
	p, err := compiler.Canonicalize(doc)
	require.NoError(t, err)
	return p
}

func newTestRunner(driver trace.Driver) *Runner {
	return NewRunner(processor.NewBuiltinRegistry(),
		WithDriver(driver),
		WithRunIDGenerator(trace.NewFixedGenerator("run-1", "run-2", "run-3")),
	)
}

func TestRunnerLinearPipeline(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "linear",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefConstantSource, Parameters: map[string]any{"value": 7}},
				{Processor: processor.RefAdd, Parameters: map[string]any{"addend": 5}},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, ir.Int(12), result.Data)
	require.Len(t, result.Records, 2)

	// The source consumed nothing: one node-origin parameter, no upstream.
	source := result.Records[0]
	assert.Equal(t, p.Nodes[0].UUID, source.NodeID)
	require.Len(t, source.Parameters, 1)
	assert.Equal(t, "value", source.Parameters[0].Name)
	assert.Equal(t, "node", source.Parameters[0].Origin)
	assert.Nil(t, source.Parameters[0].SourceRef)
	assert.Empty(t, source.Dependencies.Upstream)
	assert.Equal(t, []string{PrimaryChannel}, source.ChannelsWritten)

	// The adder consumed primary written by the source.
	adder := result.Records[1]
	require.Len(t, adder.Parameters, 2)
	data := adder.Parameters[0]
	assert.Equal(t, "data", data.Name)
	assert.Equal(t, "data", data.Origin)
	require.NotNil(t, data.SourceRef)
	assert.Equal(t, PrimaryChannel, data.SourceRef.Channel)
	require.NotNil(t, data.SourceRef.Producer)
	assert.Equal(t, "node", data.SourceRef.Producer.Kind)
	assert.Equal(t, p.Nodes[0].UUID, data.SourceRef.Producer.NodeID)

	assert.Equal(t, "addend", adder.Parameters[1].Name)
	assert.Equal(t, "node", adder.Parameters[1].Origin)
	assert.Equal(t, []string{p.Nodes[0].UUID}, adder.Dependencies.Upstream)
}

// A pass-through node between producer and consumer does not corrupt
// provenance: the consumer still sees the original producer.
func TestRunnerPassThroughProvenance(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "passthrough",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefConstantSource, Parameters: map[string]any{"value": 7}},
				{Processor: processor.RefContextAnnotate, Parameters: map[string]any{"key": "note", "value": "seen"}},
				{Processor: processor.RefAdd, Parameters: map[string]any{"addend": 1}},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{})
	require.NoError(t, err)

	assert.Equal(t, ir.Int(8), result.Data)

	note, ok := result.Context.Get("note")
	require.True(t, ok)
	assert.Equal(t, ir.String("seen"), note)

	// The consumer's data parameter is attributed to the source, not to
	// the annotator that forwarded it.
	consumer := result.Records[2]
	data := consumer.Parameters[0]
	require.NotNil(t, data.SourceRef)
	require.NotNil(t, data.SourceRef.Producer)
	assert.Equal(t, p.Nodes[0].UUID, data.SourceRef.Producer.NodeID)
	assert.Equal(t, []string{p.Nodes[0].UUID}, consumer.Dependencies.Upstream)
}

// Context written by an earlier node resolves by name downstream and is
// attributed to its last writer.
func TestRunnerContextWriteAttribution(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "context-write",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefConstantSource, Parameters: map[string]any{"value": 7}},
				{Processor: processor.RefContextAnnotate, Parameters: map[string]any{"key": "addend", "value": 5}},
				{Processor: processor.RefAdd},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(12), result.Data)

	consumer := result.Records[2]
	require.Len(t, consumer.Parameters, 2)
	addend := consumer.Parameters[1]
	assert.Equal(t, "addend", addend.Name)
	assert.Equal(t, "context", addend.Origin)
	require.NotNil(t, addend.SourceRef)
	assert.Equal(t, "addend", addend.SourceRef.Key)
	require.NotNil(t, addend.SourceRef.Producer)
	assert.Equal(t, p.Nodes[1].UUID, addend.SourceRef.Producer.NodeID)

	// Upstream: source via carried-forward data, annotator via context.
	assert.Equal(t, []string{p.Nodes[0].UUID, p.Nodes[1].UUID}, consumer.Dependencies.Upstream)
}

// Two producers on named channels feed one consumer; upstream lists both
// in first-seen order.
func TestRunnerMultiInputProvenance(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "fan-in",
			Nodes: []compiler.NodeDoc{
				{
					Processor:  processor.RefConstantSource,
					Parameters: map[string]any{"value": 7},
					Publish:    &compiler.PublishDoc{Channels: map[string]string{"out": "left"}},
				},
				{
					Processor:  processor.RefConstantSource,
					Parameters: map[string]any{"value": 5},
					Publish:    &compiler.PublishDoc{Channels: map[string]string{"out": "right"}},
				},
				{
					Processor: processor.RefAdd,
					Bind:      map[string]string{"data": "channel:left", "addend": "channel:right"},
				},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(12), result.Data)

	consumer := result.Records[2]
	// Data resolves before declared parameters, so the left producer is
	// seen first.
	assert.Equal(t, []string{p.Nodes[0].UUID, p.Nodes[1].UUID}, consumer.Dependencies.Upstream)

	addend := consumer.Parameters[1]
	assert.Equal(t, "data", addend.Origin)
	assert.Equal(t, "right", addend.SourceRef.Channel)
}

func TestRunnerSeedsContextFromPayload(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "seeded-context",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefAdd},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{
		Data:    ir.Int(10),
		Context: map[string]ir.Value{"addend": ir.Int(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(13), result.Data)

	rec := result.Records[0]
	data := rec.Parameters[0]
	assert.Equal(t, "pipeline_input_data", data.SourceRef.Producer.Kind)

	addend := rec.Parameters[1]
	assert.Equal(t, "context", addend.Origin)
	assert.Equal(t, "pipeline_input_context", addend.SourceRef.Producer.Kind)

	// Pipeline inputs are not node producers; upstream stays empty.
	assert.Empty(t, rec.Dependencies.Upstream)
}

func TestRunnerDefaultOrigin(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "defaulted",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefAdd},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{Data: ir.Int(10)})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(10), result.Data)

	addend := result.Records[0].Parameters[1]
	assert.Equal(t, "default", addend.Origin)
	assert.Equal(t, ir.Int(0), addend.Value)
	assert.Nil(t, addend.SourceRef)
}

func TestRunnerDriverProtocol(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "protocol",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefConstantSource, Parameters: map[string]any{"value": 1}},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	_, err := newTestRunner(driver).Execute(p, Payload{})
	require.NoError(t, err)

	require.Len(t, driver.Events, 3)
	assert.Equal(t, trace.EventRunStart, driver.Events[0].Kind)
	assert.Equal(t, trace.EventNodeRecord, driver.Events[1].Kind)
	assert.Equal(t, trace.EventRunEnd, driver.Events[2].Kind)
	assert.Equal(t, trace.StatusSucceeded, driver.Events[2].Summary.Status)
	assert.Equal(t, 1, driver.Events[2].Summary.Nodes)
}

// recordRejectingDriver records events like the memory driver but
// rejects every node record.
type recordRejectingDriver struct {
	*trace.MemoryDriver
}

func (d *recordRejectingDriver) OnNodeRecord(rec *trace.ExecutionRecord) error {
	return errors.New("record sink unavailable")
}

// A driver that rejects a node record still gets its run closed out:
// exactly one run_end, with error status.
func TestRunnerDriverRecordFailureEndsRun(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "rejected-record",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefConstantSource, Parameters: map[string]any{"value": 1}},
			},
		},
	})

	driver := &recordRejectingDriver{MemoryDriver: trace.NewMemoryDriver()}
	_, err := newTestRunner(driver).Execute(p, Payload{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "record sink unavailable")

	require.Len(t, driver.Events, 2)
	assert.Equal(t, trace.EventRunStart, driver.Events[0].Kind)
	assert.Equal(t, trace.EventRunEnd, driver.Events[1].Kind)
	assert.Equal(t, trace.StatusError, driver.Events[1].Summary.Status)
}

func TestRunnerUnknownProcessor(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "unknown",
			Nodes: []compiler.NodeDoc{
				{Processor: "weft.no.such.processor"},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	_, err := newTestRunner(driver).Execute(p, Payload{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownProcessor, CodeOf(err))

	records := driver.Records()
	require.Len(t, records, 1)
	assert.Equal(t, trace.StatusError, records[0].Status)
	require.NotNil(t, records[0].Error)
	assert.Equal(t, string(ErrCodeUnknownProcessor), records[0].Error.Code)

	last := driver.Events[len(driver.Events)-1]
	assert.Equal(t, trace.EventRunEnd, last.Kind)
	assert.Equal(t, trace.StatusError, last.Summary.Status)
}

func TestRunnerUnresolvedParameterFailsRun(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "unresolved",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefScale},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	_, err := newTestRunner(driver).Execute(p, Payload{Data: ir.Int(2)})
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnresolvedParameter, CodeOf(err))

	records := driver.Records()
	require.Len(t, records, 1)
	assert.Equal(t, trace.StatusError, records[0].Status)
}

// The runtime ledger is the fallback for pipelines constructed without
// preflight: a second writer of a non-primary channel fails mid-run.
func TestRunnerWriterLedgerFallback(t *testing.T) {
	p := &compiler.Pipeline{
		ID:   "handmade",
		Name: "ledger-fallback",
		Nodes: []compiler.Node{
			{
				UUID:       "n0",
				Processor:  processor.RefConstantSource,
				Parameters: map[string]ir.Value{"value": ir.Int(1)},
				Binds:      map[string]ir.SourceRef{"data": ir.ChannelRef(PrimaryChannel)},
				PublishOut: "dup",
			},
			{
				UUID:       "n1",
				Processor:  processor.RefConstantSource,
				Parameters: map[string]ir.Value{"value": ir.Int(2)},
				Binds:      map[string]ir.SourceRef{"data": ir.ChannelRef(PrimaryChannel)},
				PublishOut: "dup",
			},
		},
	}

	driver := trace.NewMemoryDriver()
	_, err := newTestRunner(driver).Execute(p, Payload{})
	require.Error(t, err)
	assert.True(t, IsOverwriteViolation(err))

	records := driver.Records()
	require.Len(t, records, 2)
	assert.Equal(t, trace.StatusSucceeded, records[0].Status)
	assert.Equal(t, trace.StatusError, records[1].Status)
}

func TestRunnerNilDataSeedsNull(t *testing.T) {
	p := compilePipeline(t, &compiler.Document{
		Pipeline: compiler.PipelineDoc{
			Name: "null-seed",
			Nodes: []compiler.NodeDoc{
				{Processor: processor.RefPassthrough},
			},
		},
	})

	driver := trace.NewMemoryDriver()
	result, err := newTestRunner(driver).Execute(p, Payload{})
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, result.Data)
}

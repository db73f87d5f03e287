package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftrun/weft/internal/ir"
)

func sampleRecord() *ExecutionRecord {
	return &ExecutionRecord{
		RecordType:    RecordTypeNodeExecution,
		SchemaVersion: SchemaVersion,
		RunID:         "run-1",
		PipelineID:    "pipe-1",
		NodeID:        "node-b",
		Seq:           1,
		Status:        StatusSucceeded,
		Parameters: []Param{
			{
				Name:   "data",
				Value:  ir.Int(7),
				Origin: "data",
				SourceRef: &SourceRef{
					Kind:    "data",
					Channel: "primary",
					Producer: &Producer{
						Kind:       "node",
						NodeID:     "node-a",
						OutputSlot: "out",
					},
				},
			},
			{Name: "addend", Value: ir.Int(5), Origin: "node"},
		},
		Dependencies:    Dependencies{Upstream: []string{"node-a"}},
		ChannelsWritten: []string{"primary"},
	}
}

func TestExecutionRecordCanonicalJSON(t *testing.T) {
	data, err := sampleRecord().MarshalCanonical()
	require.NoError(t, err)

	expected := `{"channels_written":["primary"],` +
		`"dependencies":{"upstream":["node-a"]},` +
		`"node_id":"node-b",` +
		`"parameters":[` +
		`{"name":"data","origin":"data","source_ref":{"channel":"primary","kind":"data","producer":{"kind":"node","node_uuid":"node-a","output_slot":"out"}},"value":7},` +
		`{"name":"addend","origin":"node","value":5}],` +
		`"pipeline_id":"pipe-1",` +
		`"record_type":"node_execution",` +
		`"run_id":"run-1",` +
		`"schema_version":1,` +
		`"seq":1,` +
		`"status":"succeeded"}`
	assert.Equal(t, expected, string(data))
}

func TestExecutionRecordOriginNeverBind(t *testing.T) {
	for _, p := range sampleRecord().Parameters {
		assert.NotEqual(t, "bind", p.Origin)
	}
}

func TestCanonicalMapPipelineInputProducerOmitsSlot(t *testing.T) {
	ref := &SourceRef{
		Kind:     "context",
		Key:      "threshold",
		Producer: &Producer{Kind: "pipeline_input_context"},
	}

	data, err := ir.MarshalCanonical(ref.canonicalMap())
	require.NoError(t, err)
	assert.Equal(t,
		`{"key":"threshold","kind":"context","producer":{"kind":"pipeline_input_context"}}`,
		string(data))
}

func TestCanonicalMapErrorBlock(t *testing.T) {
	rec := sampleRecord()
	rec.Status = StatusError
	rec.Error = &RecordError{Code: "MISSING_CHANNEL", Message: "channel gone"}

	m := rec.CanonicalMap()
	require.Contains(t, m, "error")
	errObj := m["error"].(ir.Object)
	assert.Equal(t, ir.String("MISSING_CHANNEL"), errObj["code"])
}

func TestMemoryDriverCollectsInOrder(t *testing.T) {
	d := NewMemoryDriver()

	require.NoError(t, d.OnRunStart("run-1", "pipe-1", ir.Object{}))
	require.NoError(t, d.OnNodeRecord(sampleRecord()))
	require.NoError(t, d.OnRunEnd("run-1", RunSummary{Nodes: 1, Status: StatusSucceeded}))

	require.Len(t, d.Events, 3)
	assert.Equal(t, EventRunStart, d.Events[0].Kind)
	assert.Equal(t, EventNodeRecord, d.Events[1].Kind)
	assert.Equal(t, EventRunEnd, d.Events[2].Kind)
	assert.Len(t, d.Records(), 1)
}

// Package trace defines the execution-record schema and the driver
// interface external sinks implement.
//
// The engine produces one ExecutionRecord per node execution and hands it
// to a Driver; delivery, batching, and persistence are the driver's
// concern. Records are immutable once handed over.
package trace

import (
	"github.com/weftrun/weft/internal/ir"
)

// Record type and schema version stamped on every execution record.
const (
	RecordTypeNodeExecution = "node_execution"
	SchemaVersion           = 1
)

// Execution statuses.
const (
	StatusSucceeded = "succeeded"
	StatusError     = "error"
)

// Producer identifies who produced a consumed value.
// NodeID is empty for pipeline-input producers; OutputSlot is populated
// only for node producers.
type Producer struct {
	Kind       string
	NodeID     string
	OutputSlot string
}

// SourceRef is the structured reference attached to parameters of origin
// context or data. Exactly one of Channel/Key is set, matching Kind.
type SourceRef struct {
	Kind     string
	Channel  string
	Key      string
	Producer *Producer
}

// Param is one resolved parameter as recorded.
type Param struct {
	Name      string
	Value     ir.Value
	Origin    string
	SourceRef *SourceRef
}

// Dependencies lists the distinct upstream node producers contributing
// any resolved parameter, deduplicated, in first-seen order.
type Dependencies struct {
	Upstream []string
}

// RecordError is a structured failure attached to a record when the
// orchestrator's error policy records partial failures.
type RecordError struct {
	Code    string
	Message string
}

// ExecutionRecord is the provenance record emitted once per node
// execution. It reports value origin independent of authoring style and
// never contains a "bind" origin.
type ExecutionRecord struct {
	RecordType      string
	SchemaVersion   int
	RunID           string
	PipelineID      string
	NodeID          string
	Seq             int64
	Status          string
	Parameters      []Param
	Dependencies    Dependencies
	ChannelsWritten []string
	Error           *RecordError
}

// RunSummary summarizes a completed run for the end notification.
type RunSummary struct {
	Nodes  int
	Status string
}

// Driver is the external sink interface. The orchestrator calls exactly
// one OnRunStart, then exactly one OnNodeRecord per node execution, then
// exactly one OnRunEnd, per run.
type Driver interface {
	OnRunStart(runID, pipelineID string, canonicalSpec ir.Object) error
	OnNodeRecord(rec *ExecutionRecord) error
	OnRunEnd(runID string, summary RunSummary) error
	Flush() error
	Close() error
}

// CanonicalMap converts the record to the sealed value model for
// canonical serialization. Field names here are the persisted schema:
// drivers and golden traces share this exact shape.
func (r *ExecutionRecord) CanonicalMap() ir.Object {
	params := make(ir.Array, len(r.Parameters))
	for i, p := range r.Parameters {
		obj := ir.Object{
			"name":   ir.String(p.Name),
			"value":  p.Value,
			"origin": ir.String(p.Origin),
		}
		if p.SourceRef != nil {
			obj["source_ref"] = p.SourceRef.canonicalMap()
		}
		params[i] = obj
	}

	upstream := make(ir.Array, len(r.Dependencies.Upstream))
	for i, id := range r.Dependencies.Upstream {
		upstream[i] = ir.String(id)
	}

	written := make(ir.Array, len(r.ChannelsWritten))
	for i, name := range r.ChannelsWritten {
		written[i] = ir.String(name)
	}

	out := ir.Object{
		"record_type":      ir.String(r.RecordType),
		"schema_version":   ir.Int(r.SchemaVersion),
		"run_id":           ir.String(r.RunID),
		"pipeline_id":      ir.String(r.PipelineID),
		"node_id":          ir.String(r.NodeID),
		"seq":              ir.Int(r.Seq),
		"status":           ir.String(r.Status),
		"parameters":       params,
		"dependencies":     ir.Object{"upstream": upstream},
		"channels_written": written,
	}
	if r.Error != nil {
		out["error"] = ir.Object{
			"code":    ir.String(r.Error.Code),
			"message": ir.String(r.Error.Message),
		}
	}
	return out
}

func (s *SourceRef) canonicalMap() ir.Object {
	obj := ir.Object{"kind": ir.String(s.Kind)}
	switch s.Kind {
	case "data":
		obj["channel"] = ir.String(s.Channel)
	case "context":
		obj["key"] = ir.String(s.Key)
	}
	if s.Producer != nil {
		obj["producer"] = s.Producer.canonicalMap()
	}
	return obj
}

func (p *Producer) canonicalMap() ir.Object {
	obj := ir.Object{"kind": ir.String(p.Kind)}
	if p.NodeID != "" {
		obj["node_uuid"] = ir.String(p.NodeID)
	}
	if p.Kind == "node" {
		obj["output_slot"] = ir.String(p.OutputSlot)
	}
	return obj
}

// MarshalCanonical serializes the record to RFC 8785 canonical JSON.
func (r *ExecutionRecord) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(r.CanonicalMap())
}

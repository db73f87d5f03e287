package trace

import "github.com/weftrun/weft/internal/ir"

// Event kinds captured by the memory driver.
const (
	EventRunStart   = "run_start"
	EventNodeRecord = "node_record"
	EventRunEnd     = "run_end"
)

// Event is one driver notification as observed in order.
type Event struct {
	Kind    string
	RunID   string
	Record  *ExecutionRecord
	Summary RunSummary
}

// MemoryDriver collects notifications in memory for tests and the
// conformance harness. Not safe for concurrent use; the run loop is
// sequential by contract.
type MemoryDriver struct {
	Events []Event
}

// NewMemoryDriver creates an empty memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{}
}

// OnRunStart implements Driver.
func (d *MemoryDriver) OnRunStart(runID, pipelineID string, canonicalSpec ir.Object) error {
	d.Events = append(d.Events, Event{Kind: EventRunStart, RunID: runID})
	return nil
}

// OnNodeRecord implements Driver.
func (d *MemoryDriver) OnNodeRecord(rec *ExecutionRecord) error {
	d.Events = append(d.Events, Event{Kind: EventNodeRecord, RunID: rec.RunID, Record: rec})
	return nil
}

// OnRunEnd implements Driver.
func (d *MemoryDriver) OnRunEnd(runID string, summary RunSummary) error {
	d.Events = append(d.Events, Event{Kind: EventRunEnd, RunID: runID, Summary: summary})
	return nil
}

// Flush implements Driver.
func (d *MemoryDriver) Flush() error { return nil }

// Close implements Driver.
func (d *MemoryDriver) Close() error { return nil }

// Records returns the node records in emission order.
func (d *MemoryDriver) Records() []*ExecutionRecord {
	var out []*ExecutionRecord
	for _, ev := range d.Events {
		if ev.Kind == EventNodeRecord {
			out = append(out, ev.Record)
		}
	}
	return out
}

package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/weftrun/weft/internal/ir"
)

// JSONLDriver persists trace records to a *.trace.jsonl file, one
// canonical-JSON record per line. Envelope lines (run_start/run_end)
// carry a reception timestamp; node records are written byte-for-byte in
// their canonical form so files can be diffed across runs.
type JSONLDriver struct {
	dir  string
	file *os.File
	now  func() time.Time
}

// NewJSONLDriver creates a driver writing under dir. Each run gets its
// own file, created lazily on the run-start notification and named
// <timestamp>_<run_id>.trace.jsonl.
func NewJSONLDriver(dir string) *JSONLDriver {
	return &JSONLDriver{dir: dir, now: time.Now}
}

// open rotates to a fresh file for runID, closing the previous run's
// file when the driver is reused.
func (d *JSONLDriver) open(runID string) error {
	if d.file != nil {
		if err := d.Close(); err != nil {
			return fmt.Errorf("jsonl rotate: %w", err)
		}
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("jsonl trace dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.trace.jsonl", d.now().UTC().Format("20060102-150405"), runID)
	file, err := os.OpenFile(filepath.Join(d.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl trace file: %w", err)
	}
	d.file = file
	return nil
}

func (d *JSONLDriver) writeLine(obj ir.Object) error {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Errorf("jsonl marshal: %w", err)
	}
	if _, err := d.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonl write: %w", err)
	}
	return nil
}

// OnRunStart implements Driver.
func (d *JSONLDriver) OnRunStart(runID, pipelineID string, canonicalSpec ir.Object) error {
	if err := d.open(runID); err != nil {
		return err
	}
	return d.writeLine(ir.Object{
		"record_type":    ir.String("run_start"),
		"schema_version": ir.Int(SchemaVersion),
		"timestamp":      ir.String(d.now().UTC().Format(time.RFC3339Nano)),
		"run_id":         ir.String(runID),
		"pipeline_id":    ir.String(pipelineID),
		"canonical_spec": canonicalSpec,
	})
}

// OnNodeRecord implements Driver.
func (d *JSONLDriver) OnNodeRecord(rec *ExecutionRecord) error {
	if d.file == nil {
		return fmt.Errorf("jsonl trace: node record before run start")
	}
	return d.writeLine(rec.CanonicalMap())
}

// OnRunEnd implements Driver.
func (d *JSONLDriver) OnRunEnd(runID string, summary RunSummary) error {
	if d.file == nil {
		return fmt.Errorf("jsonl trace: run end before run start")
	}
	return d.writeLine(ir.Object{
		"record_type":    ir.String("run_end"),
		"schema_version": ir.Int(SchemaVersion),
		"timestamp":      ir.String(d.now().UTC().Format(time.RFC3339Nano)),
		"run_id":         ir.String(runID),
		"summary": ir.Object{
			"nodes":  ir.Int(int64(summary.Nodes)),
			"status": ir.String(summary.Status),
		},
	})
}

// Flush implements Driver.
func (d *JSONLDriver) Flush() error {
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

// Close implements Driver.
func (d *JSONLDriver) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

package trace

import "github.com/weftrun/weft/internal/ir"

// NopDriver discards everything. The default sink when no driver is
// configured.
type NopDriver struct{}

var _ Driver = NopDriver{}

func (NopDriver) OnRunStart(string, string, ir.Object) error { return nil }
func (NopDriver) OnNodeRecord(*ExecutionRecord) error        { return nil }
func (NopDriver) OnRunEnd(string, RunSummary) error          { return nil }
func (NopDriver) Flush() error                               { return nil }
func (NopDriver) Close() error                               { return nil }

package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/weftrun/weft/internal/compiler"
	"github.com/weftrun/weft/internal/ir"
	"github.com/weftrun/weft/internal/processor"
	"github.com/weftrun/weft/internal/trace"
)

// dataSlot is the reserved parameter name for the data-slot input.
const dataSlot = "data"

// Runner executes canonical pipelines sequentially, one node at a time,
// emitting one execution record per node to the configured trace driver.
//
// A Runner is reusable across runs; all per-run state (channel store,
// context, producer tracking, writer ledger) is created fresh inside
// Execute and discarded with it.
type Runner struct {
	registry *processor.Registry
	driver   trace.Driver
	runIDs   trace.RunIDGenerator
	log      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithDriver sets the trace driver. Defaults to a discarding driver.
func WithDriver(d trace.Driver) Option {
	return func(r *Runner) { r.driver = d }
}

// WithRunIDGenerator sets the run id source. Defaults to UUIDv7.
func WithRunIDGenerator(g trace.RunIDGenerator) Option {
	return func(r *Runner) { r.runIDs = g }
}

// WithLogger sets the structured logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a Runner over the given processor registry.
func NewRunner(registry *processor.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		driver:   trace.NopDriver{},
		runIDs:   trace.UUIDv7Generator{},
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Payload is the initial input of one run.
type Payload struct {
	// Data seeds the primary channel. Nil seeds the null value.
	Data ir.Value

	// Context seeds the run context; every key is attributed to
	// pipeline input.
	Context map[string]ir.Value
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	RunID   string
	Data    ir.Value
	Context *Context
	Records []*trace.ExecutionRecord
}

// Execute runs the pipeline over the payload.
//
// The driver sees exactly one OnRunStart, one OnNodeRecord per node that
// began executing, and one OnRunEnd, in that order, even on failure. The
// first node failure stops the run: a record with status error is emitted
// for the failing node and the error is returned.
func (r *Runner) Execute(p *compiler.Pipeline, payload Payload) (*RunResult, error) {
	runID := r.runIDs.NewRunID()
	log := r.log.With("run_id", runID, "pipeline", p.Name)
	log.Info("run starting", "pipeline_id", p.ID, "nodes", len(p.Nodes))

	if err := r.driver.OnRunStart(runID, p.ID, p.CanonicalMap()); err != nil {
		return nil, fmt.Errorf("trace driver rejected run start: %w", err)
	}

	data := payload.Data
	if data == nil {
		data = ir.Null{}
	}

	store := NewChannelStore()
	if err := store.SeedPrimary(data); err != nil {
		r.endRun(runID, 0, trace.StatusError)
		return nil, err
	}
	ctx := NewContext(payload.Context)
	ctxProducers := NewContextProducerStore(ctx.Keys())
	ledger := newWriterLedger()

	result := &RunResult{RunID: runID, Context: ctx}

	for idx, node := range p.Nodes {
		rec, err := r.executeNode(p, idx, node, runID, store, ctx, ctxProducers, ledger)
		if rec != nil {
			result.Records = append(result.Records, rec)
			if derr := r.driver.OnNodeRecord(rec); derr != nil {
				r.endRun(runID, len(result.Records), trace.StatusError)
				return nil, fmt.Errorf("trace driver rejected record: %w", derr)
			}
		}
		if err != nil {
			log.Error("node failed", "node", node.UUID, "err", err)
			r.endRun(runID, len(result.Records), trace.StatusError)
			return nil, err
		}
		log.Debug("node succeeded", "node", node.UUID, "seq", idx)
	}

	final, err := store.Get(PrimaryChannel)
	if err != nil {
		r.endRun(runID, len(result.Records), trace.StatusError)
		return nil, err
	}
	result.Data = final

	r.endRun(runID, len(result.Records), trace.StatusSucceeded)
	log.Info("run finished", "nodes", len(result.Records))
	return result, nil
}

func (r *Runner) endRun(runID string, nodes int, status string) {
	if err := r.driver.OnRunEnd(runID, trace.RunSummary{Nodes: nodes, Status: status}); err != nil {
		r.log.Error("trace driver rejected run end", "run_id", runID, "err", err)
	}
	if err := r.driver.Flush(); err != nil {
		r.log.Error("trace driver flush failed", "run_id", runID, "err", err)
	}
}

// executeNode resolves, applies, and publishes one node. It always
// returns a record when execution reached resolution, so partial failures
// stay auditable.
func (r *Runner) executeNode(
	p *compiler.Pipeline,
	idx int,
	node compiler.Node,
	runID string,
	store *ChannelStore,
	ctx *Context,
	ctxProducers *ContextProducerStore,
	ledger *writerLedger,
) (*trace.ExecutionRecord, error) {
	rec := &trace.ExecutionRecord{
		RecordType:    trace.RecordTypeNodeExecution,
		SchemaVersion: trace.SchemaVersion,
		RunID:         runID,
		PipelineID:    p.ID,
		NodeID:        node.UUID,
		Seq:           int64(idx),
		Status:        trace.StatusSucceeded,
	}
	fail := func(err error) (*trace.ExecutionRecord, error) {
		rec.Status = trace.StatusError
		rec.Error = &trace.RecordError{Code: errorCode(err), Message: err.Error()}
		return rec, err
	}

	proc, err := r.registry.Resolve(node.Processor)
	if err != nil {
		return fail(&RuntimeError{
			Code:    ErrCodeUnknownProcessor,
			Message: err.Error(),
			NodeID:  node.UUID,
		})
	}
	info := proc.Info()

	if err := ledger.claim(node.PublishOut, node.UUID); err != nil {
		return fail(err)
	}

	// Resolution sees the context producers as they were before this
	// node ran.
	in := ResolveInput{
		NodeID:           node.UUID,
		Binds:            node.Binds,
		NodeParams:       node.Parameters,
		Context:          ctx,
		Channels:         store,
		ContextProducers: ctxProducers.Snapshot(),
	}
	upstream := newUpstreamCollector()

	var dataValue ir.Value
	var dataChannel string
	if info.ConsumesData {
		resolved, err := ResolveParam(dataSlot, in, nil, false)
		if err != nil {
			return fail(err)
		}
		dataValue = resolved.Value
		if src, ok := resolved.Source.(DataSource); ok {
			dataChannel = src.Channel
		}
		upstream.observe(resolved.Source)
		rec.Parameters = append(rec.Parameters, traceParam(resolved))
	}

	params := make(map[string]ir.Value, len(info.Params))
	for _, spec := range info.Params {
		resolved, err := ResolveParam(spec.Name, in, spec.Default, spec.HasDefault)
		if err != nil {
			return fail(err)
		}
		params[spec.Name] = resolved.Value
		upstream.observe(resolved.Source)
		rec.Parameters = append(rec.Parameters, traceParam(resolved))
	}
	rec.Dependencies = trace.Dependencies{Upstream: upstream.list()}

	out, err := proc.Apply(processor.Input{Data: dataValue, Params: params})
	if err != nil {
		return fail(fmt.Errorf("processor %s failed: %w", node.Processor, err))
	}

	if len(out.ContextWrites) > 0 {
		keys := make([]string, 0, len(out.ContextWrites))
		for key := range out.ContextWrites {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			ctx.Set(key, out.ContextWrites[key])
		}
		ctxProducers.MarkWritten(keys, node.UUID)
	}

	// Pass-through nodes forward their input; authorship of the value
	// stays with whoever produced it on the consumed channel.
	carryForwardFrom := ""
	if info.PassThrough && dataChannel != "" {
		carryForwardFrom = dataChannel
	}
	plan := NewPublishPlan(node.PublishOut)
	plan.Apply(store, out.Output, NodeProducer(node.UUID), carryForwardFrom)
	rec.ChannelsWritten = []string{plan.Out}

	return rec, nil
}

// traceParam converts a resolved parameter to its record form. Origin is
// the value's origin; the structured source ref exists only for context
// and data, matching the sealed source model.
func traceParam(rp ResolvedParam) trace.Param {
	p := trace.Param{
		Name:   rp.Name,
		Value:  rp.Value,
		Origin: string(rp.Source.Origin()),
	}
	switch src := rp.Source.(type) {
	case DataSource:
		p.SourceRef = &trace.SourceRef{
			Kind:     string(OriginData),
			Channel:  src.Channel,
			Producer: traceProducer(src.Producer),
		}
	case ContextSource:
		p.SourceRef = &trace.SourceRef{
			Kind:     string(OriginContext),
			Key:      src.Key,
			Producer: traceProducer(src.Producer),
		}
	}
	return p
}

func traceProducer(ref ProducerRef) *trace.Producer {
	return &trace.Producer{
		Kind:       string(ref.Kind),
		NodeID:     ref.NodeID,
		OutputSlot: ref.OutputSlot,
	}
}

func errorCode(err error) string {
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return "INTERNAL"
}

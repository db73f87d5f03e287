package engine

import (
	"fmt"
	"slices"

	"github.com/weftrun/weft/internal/ir"
)

// PrimaryChannel is the designated channel seeded from the run's initial
// input value before any node executes.
const PrimaryChannel = "primary"

// ProducerKind categorizes who produced a value.
type ProducerKind string

const (
	// ProducerPipelineData marks the run's seeded initial input.
	ProducerPipelineData ProducerKind = "pipeline_input_data"

	// ProducerPipelineContext marks a context key present at run start.
	ProducerPipelineContext ProducerKind = "pipeline_input_context"

	// ProducerNode marks a value written by a node execution.
	ProducerNode ProducerKind = "node"
)

// ProducerRef identifies the producer of a value for provenance.
// Pipeline-input producers carry no node identity.
type ProducerRef struct {
	Kind       ProducerKind
	NodeID     string
	OutputSlot string
}

// PipelineDataProducer returns the producer ref for seeded input data.
func PipelineDataProducer() ProducerRef {
	return ProducerRef{Kind: ProducerPipelineData}
}

// PipelineContextProducer returns the producer ref for initial context.
func PipelineContextProducer() ProducerRef {
	return ProducerRef{Kind: ProducerPipelineContext}
}

// NodeProducer returns the producer ref for a node's single output slot.
func NodeProducer(nodeID string) ProducerRef {
	return ProducerRef{Kind: ProducerNode, NodeID: nodeID, OutputSlot: "out"}
}

// ChannelEntry is a channel's current value plus its current producer.
// No versioned history is kept; "current value" semantics only.
type ChannelEntry struct {
	Value    ir.Value
	Producer ProducerRef
}

// ChannelStore maps channel names to their most recently published value
// for a single pipeline run.
//
// The store is caller-owned: one instance per run, created before the run
// and discarded after it, never shared across runs. It assumes the
// sequential single-writer discipline the runner enforces; it takes no
// locks of its own.
type ChannelStore struct {
	entries map[string]ChannelEntry
	seeded  bool
}

// NewChannelStore creates an empty store. Primary is absent until
// SeedPrimary installs the run's initial input.
func NewChannelStore() *ChannelStore {
	return &ChannelStore{entries: make(map[string]ChannelEntry)}
}

// SeedPrimary installs the run's initial input as primary's value with a
// pipeline-input producer. Called exactly once per run, before any node
// executes.
func (s *ChannelStore) SeedPrimary(value ir.Value) error {
	if s.seeded {
		return &RuntimeError{
			Code:    ErrCodePrimarySeed,
			Message: "primary channel already seeded for this run",
		}
	}
	s.entries[PrimaryChannel] = ChannelEntry{Value: value, Producer: PipelineDataProducer()}
	s.seeded = true
	return nil
}

// Get returns the current value of a channel. Fails with UNKNOWN_CHANNEL
// when the name has never been written.
func (s *ChannelStore) Get(name string) (ir.Value, error) {
	entry, ok := s.entries[name]
	if !ok {
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownChannel,
			Message: fmt.Sprintf("channel %q has never been written", name),
			Subject: name,
		}
	}
	return entry.Value, nil
}

// Entry returns the full entry including producer identity.
func (s *ChannelStore) Entry(name string) (ChannelEntry, bool) {
	entry, ok := s.entries[name]
	return entry, ok
}

// Set unconditionally overwrites a channel, recording the new producer.
// Only the publish step calls this; node logic never touches the store
// directly.
func (s *ChannelStore) Set(name string, value ir.Value, producer ProducerRef) {
	s.entries[name] = ChannelEntry{Value: value, Producer: producer}
}

// Names returns all channel names currently present, sorted.
func (s *ChannelStore) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

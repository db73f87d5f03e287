package engine

import (
	"fmt"

	"github.com/weftrun/weft/internal/ir"
)

// PublishPlan maps a node's single output slot to the channel it writes.
// Derived from the node's declared publish.channels.out, defaulting to
// primary. Multi-output constructs are rejected at preflight; by the time
// a plan exists there is exactly one target.
type PublishPlan struct {
	Out string
}

// NewPublishPlan builds a plan for the given output channel, defaulting
// to primary when empty.
func NewPublishPlan(out string) PublishPlan {
	if out == "" {
		out = PrimaryChannel
	}
	return PublishPlan{Out: out}
}

// Apply writes the node's output value into the target channel.
//
// When the producing node is pass-through and the value it forwards is
// identical to what the source channel currently holds, the source
// channel's producer is carried forward instead of the node claiming
// authorship. The carry-forward composes transitively across chains of
// pass-through nodes because each link preserves the original producer.
func (p PublishPlan) Apply(store *ChannelStore, value ir.Value, producer ProducerRef, carryForwardFrom string) {
	if carryForwardFrom != "" {
		if entry, ok := store.Entry(carryForwardFrom); ok && ir.Equal(entry.Value, value) {
			store.Set(p.Out, value, entry.Producer)
			return
		}
	}
	store.Set(p.Out, value, producer)
}

// writerLedger is the runtime fallback for single-writer enforcement on
// non-primary channels. Preflight normally rejects conflicting plans
// before execution; the ledger catches stores driven without preflight.
type writerLedger struct {
	writers map[string]string // channel -> node id of first declared writer
}

func newWriterLedger() *writerLedger {
	return &writerLedger{writers: make(map[string]string)}
}

// claim records nodeID as the writer of channel. Primary is exempt: it is
// always overwritable and the most recent writer wins. A second distinct
// writer of any other channel is a violation, never silently resolved.
func (l *writerLedger) claim(channel, nodeID string) error {
	if channel == PrimaryChannel {
		return nil
	}
	if prev, ok := l.writers[channel]; ok && prev != nodeID {
		return &RuntimeError{
			Code:    ErrCodeChannelOverwrite,
			Message: fmt.Sprintf("channel %q already written by node %s", channel, prev),
			NodeID:  nodeID,
			Subject: channel,
		}
	}
	l.writers[channel] = nodeID
	return nil
}

package engine

import (
	"fmt"

	"github.com/weftrun/weft/internal/ir"
)

// Origin is the provenance category of a resolved value: where the value
// actually came from, independent of how the author configured it to
// arrive. Exactly four origins exist; "bind" is configuration input to
// resolution, never an output category.
type Origin string

const (
	OriginContext Origin = "context"
	OriginData    Origin = "data"
	OriginNode    Origin = "node"
	OriginDefault Origin = "default"
)

// ParamSource is a sealed sum over the four origins. The context and data
// cases carry a structured reference; node and default carry none. The
// sealing prevents the optional-field design where a source_ref could
// coexist with origin=node.
type ParamSource interface {
	Origin() Origin
	paramSource() // sealed
}

// ContextSource attributes a value to a context key.
type ContextSource struct {
	Key      string
	Producer ProducerRef
}

func (ContextSource) Origin() Origin { return OriginContext }
func (ContextSource) paramSource()   {}

// DataSource attributes a value to a channel read.
type DataSource struct {
	Channel  string
	Producer ProducerRef
}

func (DataSource) Origin() Origin { return OriginData }
func (DataSource) paramSource()   {}

// NodeSource attributes a value to a node-local literal parameter.
type NodeSource struct{}

func (NodeSource) Origin() Origin { return OriginNode }
func (NodeSource) paramSource()   {}

// DefaultSource attributes a value to the processor's declared default.
type DefaultSource struct{}

func (DefaultSource) Origin() Origin { return OriginDefault }
func (DefaultSource) paramSource()   {}

// ResolvedParam is the outcome of resolving one node parameter.
type ResolvedParam struct {
	Name   string
	Value  ir.Value
	Source ParamSource
}

// ResolveInput carries the read-only state one resolution call sees.
// The resolver operates on the store and context by reference and never
// retains them beyond the call.
type ResolveInput struct {
	// NodeID is the resolving node, used for error attribution only.
	NodeID string

	// Binds maps parameter names to canonical SourceRefs. Already
	// canonicalized at compile time; resolution never parses tokens.
	Binds map[string]ir.SourceRef

	// NodeParams holds the node's literal parameter configuration.
	NodeParams map[string]ir.Value

	// Context is the current run context.
	Context *Context

	// Channels is the per-run channel store.
	Channels *ChannelStore

	// ContextProducers is the per-key last-writer snapshot taken before
	// this node's resolution began. Keys absent from the map resolve to
	// the pipeline-input producer.
	ContextProducers map[string]ProducerRef
}

func (in ResolveInput) contextProducer(key string) ProducerRef {
	if p, ok := in.ContextProducers[key]; ok {
		return p
	}
	return PipelineContextProducer()
}

// ResolveParam resolves one parameter under the fixed precedence chain,
// first match wins:
//
//	1. explicit bind        (dereference channel or context)
//	2. node-local parameter (origin node)
//	3. context-by-name      (origin context)
//	4. declared default     (origin default)
//
// The chain is total and deterministic: exactly one branch applies for
// any input combination. Implicit and explicit resolution of the same
// effective source yield identical ResolvedParams, so provenance cannot
// distinguish authoring styles.
func ResolveParam(name string, in ResolveInput, def ir.Value, hasDefault bool) (ResolvedParam, error) {
	if ref, ok := in.Binds[name]; ok {
		return derefBind(name, ref, in)
	}

	if v, ok := in.NodeParams[name]; ok {
		return ResolvedParam{Name: name, Value: v, Source: NodeSource{}}, nil
	}

	if v, ok := in.Context.Get(name); ok {
		return ResolvedParam{
			Name:   name,
			Value:  v,
			Source: ContextSource{Key: name, Producer: in.contextProducer(name)},
		}, nil
	}

	if hasDefault {
		return ResolvedParam{Name: name, Value: def, Source: DefaultSource{}}, nil
	}

	return ResolvedParam{}, &RuntimeError{
		Code:    ErrCodeUnresolvedParameter,
		Message: "no bind, node parameter, context key, or default matched",
		NodeID:  in.NodeID,
		Param:   name,
	}
}

// derefBind dereferences an explicit bind. The origin reported is the
// value's origin (data or context), never "bind".
func derefBind(name string, ref ir.SourceRef, in ResolveInput) (ResolvedParam, error) {
	switch ref.Kind {
	case ir.RefChannel:
		entry, ok := in.Channels.Entry(ref.Key)
		if !ok {
			return ResolvedParam{}, &RuntimeError{
				Code:    ErrCodeMissingChannel,
				Message: fmt.Sprintf("channel %q is not available", ref.Key),
				NodeID:  in.NodeID,
				Param:   name,
				Subject: ref.Key,
			}
		}
		return ResolvedParam{
			Name:   name,
			Value:  entry.Value,
			Source: DataSource{Channel: ref.Key, Producer: entry.Producer},
		}, nil

	case ir.RefContext:
		v, ok := in.Context.Get(ref.Key)
		if !ok {
			return ResolvedParam{}, &RuntimeError{
				Code:    ErrCodeMissingContextKey,
				Message: fmt.Sprintf("context key %q is not available", ref.Key),
				NodeID:  in.NodeID,
				Param:   name,
				Subject: ref.Key,
			}
		}
		return ResolvedParam{
			Name:   name,
			Value:  v,
			Source: ContextSource{Key: ref.Key, Producer: in.contextProducer(ref.Key)},
		}, nil

	default:
		// Unreachable for compile-time canonicalized refs.
		return ResolvedParam{}, &RuntimeError{
			Code:    ErrCodeUnresolvedParameter,
			Message: fmt.Sprintf("source ref has impossible kind %q", ref.Kind),
			NodeID:  in.NodeID,
			Param:   name,
		}
	}
}

package compiler

import (
	"fmt"

	"github.com/weftrun/weft/internal/ir"
)

// dataParam is the reserved data-slot parameter name.
const dataParam = "data"

// primaryChannel mirrors engine.PrimaryChannel without importing the
// engine; the compiler sits below it in the dependency order.
const primaryChannel = "primary"

// Canonicalize compiles an authored document into the canonical pipeline
// representation and runs preflight. The result is the only form the
// engine accepts.
func Canonicalize(doc *Document) (*Pipeline, error) {
	if doc.Pipeline.Name == "" {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Field:   "pipeline.name",
			Message: "pipeline name is required",
		}
	}
	if len(doc.Pipeline.Nodes) == 0 {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Field:   "pipeline.nodes",
			Message: "pipeline must declare at least one node",
		}
	}

	p := &Pipeline{Name: doc.Pipeline.Name}
	for i, nd := range doc.Pipeline.Nodes {
		node, err := canonicalizeNode(doc.Pipeline.Name, i, nd)
		if err != nil {
			return nil, err
		}
		p.Nodes = append(p.Nodes, node)
	}

	id, err := ir.PipelineID(p.CanonicalMap())
	if err != nil {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("computing pipeline identity: %v", err),
		}
	}
	p.ID = id

	edges, err := Preflight(p)
	if err != nil {
		return nil, err
	}
	p.Edges = edges
	return p, nil
}

func canonicalizeNode(pipelineName string, index int, nd NodeDoc) (Node, error) {
	position := fmt.Sprintf("nodes[%d]", index)
	if nd.Processor == "" {
		return Node{}, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Node:    position,
			Field:   "processor",
			Message: "processor reference is required",
		}
	}

	// Multi-output is a hard freeze: any emit construct, and any publish
	// slot other than "out", fails before execution.
	if nd.Emit != nil {
		return Node{}, &ConfigError{
			Code:    ErrCodeMultiOutput,
			Node:    position,
			Field:   "emit",
			Message: "multi-output emit constructs are not supported",
		}
	}

	uuid := ir.NodeUUID(pipelineName, index, nd.Processor)

	binds := make(map[string]ir.SourceRef, len(nd.Bind)+1)
	for param, raw := range nd.Bind {
		ref, err := ir.ParseSourceRef(raw)
		if err != nil {
			return Node{}, &ConfigError{
				Code:    ErrCodeMalformedSourceRef,
				Node:    uuid,
				Field:   "bind." + param,
				Message: err.Error(),
			}
		}
		binds[param] = ref
	}
	if _, ok := binds[dataParam]; !ok {
		binds[dataParam] = ir.ChannelRef(primaryChannel)
	}

	out := primaryChannel
	if nd.Publish != nil {
		for slot, name := range nd.Publish.Channels {
			if slot != "out" {
				return Node{}, &ConfigError{
					Code:    ErrCodeMultiOutput,
					Node:    uuid,
					Field:   "publish.channels." + slot,
					Message: "only the single out slot is supported",
				}
			}
			if name == "" {
				return Node{}, &ConfigError{
					Code:    ErrCodeInvalidSpec,
					Node:    uuid,
					Field:   "publish.channels.out",
					Message: "channel name must be non-empty",
				}
			}
			out = name
		}
	}

	params := make(map[string]ir.Value, len(nd.Parameters))
	for k, raw := range nd.Parameters {
		v, err := ir.FromGo(raw)
		if err != nil {
			return Node{}, &ConfigError{
				Code:    ErrCodeInvalidSpec,
				Node:    uuid,
				Field:   "parameters." + k,
				Message: err.Error(),
			}
		}
		params[k] = v
	}

	return Node{
		UUID:       uuid,
		Processor:  nd.Processor,
		Parameters: params,
		Binds:      binds,
		PublishOut: out,
	}, nil
}

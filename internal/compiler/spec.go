// Package compiler turns authored pipeline documents into the canonical
// node representation the engine executes.
//
// Canonicalization happens once, before any node runs: binding tokens are
// parsed into the two-case SourceRef sum type, publish plans are
// defaulted, node ids are derived deterministically, and whole-pipeline
// invariants (single writer per non-primary channel, producer order,
// single output slot) are enforced by preflight. Resolution at runtime
// never sees a malformed token.
package compiler

import (
	"github.com/weftrun/weft/internal/ir"
)

// Document is the authored YAML shape.
type Document struct {
	Pipeline PipelineDoc `yaml:"pipeline"`
}

// PipelineDoc is the authored pipeline block.
type PipelineDoc struct {
	Name  string    `yaml:"name"`
	Nodes []NodeDoc `yaml:"nodes"`
}

// NodeDoc is one authored node.
type NodeDoc struct {
	// Processor is the registry reference of the transform to run.
	Processor string `yaml:"processor"`

	// Parameters are node-local literal values.
	Parameters map[string]any `yaml:"parameters"`

	// Bind maps parameter names to source-ref tokens.
	Bind map[string]string `yaml:"bind"`

	// Publish declares output wiring. Only the "out" slot exists.
	Publish *PublishDoc `yaml:"publish"`

	// Emit is a multi-output construct from a newer authoring dialect.
	// Its presence is rejected deterministically during preflight.
	Emit any `yaml:"emit"`
}

// PublishDoc is the authored publish block.
type PublishDoc struct {
	Channels map[string]string `yaml:"channels"`
}

// Pipeline is the canonical, compiled representation.
type Pipeline struct {
	// ID is the content-addressed pipeline identity.
	ID string

	// Name is the authored pipeline name.
	Name string

	// Nodes are canonical nodes in execution order.
	Nodes []Node

	// Edges are the derived dependency edges computed by preflight.
	// Non-normative: excluded from identity.
	Edges []Edge
}

// Node is one canonical node.
type Node struct {
	// UUID is the deterministic node identity.
	UUID string

	// Processor is the registry reference of the transform.
	Processor string

	// Parameters are node-local literals, converted to the value model.
	Parameters map[string]ir.Value

	// Binds maps parameter names to canonical SourceRefs. Always
	// contains "data" (injected as channel:primary when unbound).
	Binds map[string]ir.SourceRef

	// PublishOut is the single output channel, defaulted to primary.
	PublishOut string
}

// Edge is a derived producer→consumer dependency.
type Edge struct {
	SourceNode  string
	TargetNode  string
	TargetParam string
	SourceRef   string
}

// CanonicalMap returns the identity-bearing canonical form of the
// pipeline. Derived edges are excluded so that identity reflects authored
// semantics only.
func (p *Pipeline) CanonicalMap() ir.Object {
	nodes := make(ir.Array, len(p.Nodes))
	for i, n := range p.Nodes {
		binds := make(ir.Object, len(n.Binds))
		for param, ref := range n.Binds {
			binds[param] = ir.String(ref.String())
		}
		params := make(ir.Object, len(n.Parameters))
		for k, v := range n.Parameters {
			params[k] = v
		}
		nodes[i] = ir.Object{
			"node_uuid":  ir.String(n.UUID),
			"processor":  ir.String(n.Processor),
			"parameters": params,
			"bind":       binds,
			"publish": ir.Object{
				"channels": ir.Object{"out": ir.String(n.PublishOut)},
			},
		}
	}
	return ir.Object{
		"spec_version": ir.Int(1),
		"name":         ir.String(p.Name),
		"nodes":        nodes,
	}
}

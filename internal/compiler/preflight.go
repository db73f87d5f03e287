package compiler

import (
	"fmt"
	"sort"

	"github.com/weftrun/weft/internal/ir"
)

type producerInfo struct {
	nodeUUID string
	index    int
}

// Preflight validates whole-pipeline invariants before any node executes
// and derives the non-normative dependency edges.
//
// Enforced here, deterministically and in declaration order:
//   - a non-primary channel has at most one declared writer
//   - a consumed channel has a declared producer that precedes the
//     consumer (primary is exempt: it is seeded at run start)
//
// Pure: no runtime state, no I/O. The computed single-writer set is the
// whole-pipeline invariant; the engine's runtime ledger is only a
// fallback for canonical pipelines constructed without this pass.
func Preflight(p *Pipeline) ([]Edge, error) {
	channelProducer := make(map[string]producerInfo)

	prevNode := ""
	var edges []Edge

	for idx, node := range p.Nodes {
		if node.PublishOut != primaryChannel {
			if prev, ok := channelProducer[node.PublishOut]; ok {
				return nil, &ConfigError{
					Code: ErrCodeChannelOverwrite,
					Node: node.UUID,
					Message: fmt.Sprintf(
						"channel %q has multiple writers: %s (idx=%d) and %s (idx=%d)",
						node.PublishOut, prev.nodeUUID, prev.index, node.UUID, idx),
				}
			}
			channelProducer[node.PublishOut] = producerInfo{nodeUUID: node.UUID, index: idx}
		}

		for _, param := range sortedBindParams(node.Binds) {
			ref := node.Binds[param]
			if ref.Kind == ir.RefContext {
				continue
			}

			if ref.Key == primaryChannel {
				if prevNode == "" {
					continue
				}
				edges = append(edges, Edge{
					SourceNode:  prevNode,
					TargetNode:  node.UUID,
					TargetParam: param,
					SourceRef:   ref.String(),
				})
				continue
			}

			producer, ok := channelProducer[ref.Key]
			if !ok {
				return nil, &ConfigError{
					Code:    ErrCodeMissingProducer,
					Node:    node.UUID,
					Field:   "bind." + param,
					Message: fmt.Sprintf("no declared producer for channel %q", ref.Key),
				}
			}
			if producer.index >= idx {
				return nil, &ConfigError{
					Code:    ErrCodeProducerOrder,
					Node:    node.UUID,
					Field:   "bind." + param,
					Message: fmt.Sprintf("producer of channel %q must precede its consumer", ref.Key),
				}
			}

			edges = append(edges, Edge{
				SourceNode:  producer.nodeUUID,
				TargetNode:  node.UUID,
				TargetParam: param,
				SourceRef:   ref.String(),
			})
		}

		prevNode = node.UUID
	}

	return edges, nil
}

func sortedBindParams(binds map[string]ir.SourceRef) []string {
	params := make([]string, 0, len(binds))
	for param := range binds {
		params = append(params, param)
	}
	sort.Strings(params)
	return params
}

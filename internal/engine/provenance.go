package engine

// ContextProducerStore tracks per-key producer identity for context
// values under last-writer semantics, so that consumed-context provenance
// reflects the value actually read rather than the key's first writer.
type ContextProducerStore struct {
	producers map[string]ProducerRef
}

// NewContextProducerStore attributes every initial context key to
// pipeline input.
func NewContextProducerStore(initialKeys []string) *ContextProducerStore {
	producers := make(map[string]ProducerRef, len(initialKeys))
	for _, key := range initialKeys {
		producers[key] = PipelineContextProducer()
	}
	return &ContextProducerStore{producers: producers}
}

// Producer returns the current producer for a key, defaulting to
// pipeline input for keys never marked written.
func (s *ContextProducerStore) Producer(key string) ProducerRef {
	if p, ok := s.producers[key]; ok {
		return p
	}
	return PipelineContextProducer()
}

// MarkWritten records nodeID as the new producer of each key.
func (s *ContextProducerStore) MarkWritten(keys []string, nodeID string) {
	producer := NodeProducer(nodeID)
	for _, key := range keys {
		s.producers[key] = producer
	}
}

// Snapshot returns a copy of the current mapping. Resolution reads the
// snapshot taken before the node ran, so a node's own context writes
// cannot contaminate its input provenance.
func (s *ContextProducerStore) Snapshot() map[string]ProducerRef {
	out := make(map[string]ProducerRef, len(s.producers))
	for k, v := range s.producers {
		out[k] = v
	}
	return out
}

// upstreamCollector accumulates the distinct node producers contributing
// resolved parameters of origin context or data. Deduplicated, first-seen
// order for stable serialization. Pipeline-input producers carry no node
// identity and are not collected.
type upstreamCollector struct {
	seen  map[string]struct{}
	order []string
}

func newUpstreamCollector() *upstreamCollector {
	return &upstreamCollector{seen: make(map[string]struct{})}
}

func (c *upstreamCollector) observe(source ParamSource) {
	var producer ProducerRef
	switch s := source.(type) {
	case DataSource:
		producer = s.Producer
	case ContextSource:
		producer = s.Producer
	default:
		return
	}
	if producer.Kind != ProducerNode || producer.NodeID == "" {
		return
	}
	if _, ok := c.seen[producer.NodeID]; ok {
		return
	}
	c.seen[producer.NodeID] = struct{}{}
	c.order = append(c.order, producer.NodeID)
}

func (c *upstreamCollector) list() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

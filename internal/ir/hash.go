package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for algorithm migration without colliding hash spaces.
const (
	DomainPipeline = "weft/pipeline/v1"
	DomainRecord   = "weft/record/v1"
)

// nodeNamespace is the fixed UUIDv5 namespace for deterministic node ids.
var nodeNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// HashWithDomain computes SHA-256 over domain || 0x00 || data.
// The null separator prevents boundary ambiguity between domain and data.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PipelineID computes the content-addressed identity of a canonical
// pipeline spec. Two pipelines with byte-identical canonical specs share
// an id; any semantic difference changes it.
func PipelineID(canonical Object) (string, error) {
	data, err := MarshalCanonical(canonical)
	if err != nil {
		return "", fmt.Errorf("pipeline id: %w", err)
	}
	return HashWithDomain(DomainPipeline, data), nil
}

// NodeUUID derives a deterministic UUIDv5 for a node from the pipeline
// name, the node's position, and its processor reference. Recompiling an
// unchanged spec yields identical node ids.
func NodeUUID(pipelineName string, index int, processorRef string) string {
	name := fmt.Sprintf("%s\x00%d\x00%s", pipelineName, index, processorRef)
	return uuid.NewSHA1(nodeNamespace, []byte(name)).String()
}

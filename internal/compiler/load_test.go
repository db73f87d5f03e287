package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
pipeline:
  name: demo
  nodes:
    - processor: weft.source.constant
      parameters:
        value: 7
    - processor: weft.transform.add
      parameters:
        addend: 5
      bind:
        data: "channel:primary"
`

func TestLoadBytesValid(t *testing.T) {
	p, err := LoadBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "demo", p.Name)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "weft.source.constant", p.Nodes[0].Processor)
}

func TestLoadBytesInvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("pipeline: [unclosed"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidSpec, CodeOf(err))
}

func TestLoadBytesSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty name", `
pipeline:
  name: ""
  nodes:
    - processor: weft.source.constant
`},
		{"missing processor", `
pipeline:
  name: demo
  nodes:
    - parameters:
        value: 1
`},
		{"nodes not a list", `
pipeline:
  name: demo
  nodes: 42
`},
		{"bind values must be strings", `
pipeline:
  name: demo
  nodes:
    - processor: weft.source.constant
      bind:
        data: 42
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalidSpec, CodeOf(err))
		})
	}
}

func TestLoadBytesMalformedBindSurfacesDedicatedCode(t *testing.T) {
	src := `
pipeline:
  name: demo
  nodes:
    - processor: weft.transform.add
      bind:
        addend: "store:thing"
`
	_, err := LoadBytes([]byte(src))
	require.Error(t, err)
	assert.Equal(t, ErrCodeMalformedSourceRef, CodeOf(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidSpec, CodeOf(err))
}

// YAML and direct document construction agree on identity.
func TestLoadBytesMatchesCanonicalize(t *testing.T) {
	fromYAML, err := LoadBytes([]byte(validYAML))
	require.NoError(t, err)

	fromDoc, err := Canonicalize(validDoc())
	require.NoError(t, err)

	assert.Equal(t, fromDoc.ID, fromYAML.ID)
}

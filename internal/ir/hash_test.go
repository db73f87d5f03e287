package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("abc")

	pipeline := HashWithDomain(DomainPipeline, data)
	record := HashWithDomain(DomainRecord, data)

	assert.Equal(t, "0bb7d53ca6fe71da807fcd29c278a9a797add5ca6c433fe6e70a26ba34461351", pipeline)
	assert.Equal(t, "19e25fe7d107320e23c216fc3386854f0f1251d3c9078b9099b12d19f6c92bc9", record)
	assert.NotEqual(t, pipeline, record)
}

// The null separator prevents "ab"+"c" from colliding with "a"+"bc"
// across the domain boundary.
func TestHashWithDomainBoundary(t *testing.T) {
	assert.NotEqual(t,
		HashWithDomain("weft/x", []byte("ydata")),
		HashWithDomain("weft/xy", []byte("data")),
	)
}

func TestPipelineIDDeterministic(t *testing.T) {
	spec := Object{
		"name":         String("demo"),
		"spec_version": Int(1),
	}

	a, err := PipelineID(spec)
	require.NoError(t, err)
	b, err := PipelineID(spec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestPipelineIDSensitivity(t *testing.T) {
	base := Object{"name": String("demo"), "spec_version": Int(1)}
	changed := Object{"name": String("demo2"), "spec_version": Int(1)}

	a, err := PipelineID(base)
	require.NoError(t, err)
	b, err := PipelineID(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNodeUUID(t *testing.T) {
	assert.Equal(t, "acbbcb65-10f4-51e2-8614-f7fb09bf899b", NodeUUID("demo", 0, "weft.source.constant"))
	assert.Equal(t, "5e7641a5-4017-5fe8-99ca-0acad4a93606", NodeUUID("demo", 1, "weft.transform.add"))
}

func TestNodeUUIDDistinguishesPosition(t *testing.T) {
	a := NodeUUID("demo", 0, "weft.transform.add")
	b := NodeUUID("demo", 1, "weft.transform.add")
	c := NodeUUID("other", 0, "weft.transform.add")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, NodeUUID("demo", 0, "weft.transform.add"))
}

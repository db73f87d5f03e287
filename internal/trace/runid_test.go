package trace

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7GeneratorProducesValidV7(t *testing.T) {
	gen := UUIDv7Generator{}

	a := gen.NewRunID()
	b := gen.NewRunID()

	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGeneratorReturnsInOrder(t *testing.T) {
	gen := NewFixedGenerator("r1", "r2")

	assert.Equal(t, "r1", gen.NewRunID())
	assert.Equal(t, "r2", gen.NewRunID())
}

func TestFixedGeneratorPanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	gen.NewRunID()

	assert.Panics(t, func() { gen.NewRunID() })
}

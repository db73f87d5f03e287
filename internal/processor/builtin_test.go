package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftrun/weft/internal/ir"
)

func TestBuiltinRegistryResolvesAll(t *testing.T) {
	r := NewBuiltinRegistry()

	refs := []string{
		RefConstantSource,
		RefAdd,
		RefScale,
		RefPassthrough,
		RefContextAnnotate,
		RefDiscardSink,
	}
	for _, ref := range refs {
		p, err := r.Resolve(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, ref, p.Info().Ref)
	}
	assert.Len(t, r.Refs(), len(refs))
}

func TestRegistryUnknownRef(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("weft.no.such")
	require.Error(t, err)
}

func TestConstantSource(t *testing.T) {
	info := ConstantSource{}.Info()
	assert.False(t, info.ConsumesData)
	assert.False(t, info.PassThrough)

	out, err := ConstantSource{}.Apply(Input{Params: map[string]ir.Value{"value": ir.String("x")}})
	require.NoError(t, err)
	assert.Equal(t, ir.String("x"), out.Output)
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		data     ir.Value
		addend   ir.Value
		expected ir.Value
	}{
		{"int plus int", ir.Int(7), ir.Int(5), ir.Int(12)},
		{"int plus float", ir.Int(7), ir.Float(0.5), ir.Float(7.5)},
		{"float plus float", ir.Float(1.5), ir.Float(2.5), ir.Float(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Add{}.Apply(Input{Data: tt.data, Params: map[string]ir.Value{"addend": tt.addend}})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.Output)
		})
	}
}

func TestAddRejectsNonNumeric(t *testing.T) {
	_, err := Add{}.Apply(Input{Data: ir.String("x"), Params: map[string]ir.Value{"addend": ir.Int(1)}})
	require.Error(t, err)
}

func TestAddDeclaresDefault(t *testing.T) {
	info := Add{}.Info()
	require.Len(t, info.Params, 1)
	assert.True(t, info.Params[0].HasDefault)
	assert.Equal(t, ir.Int(0), info.Params[0].Default)
}

func TestScale(t *testing.T) {
	out, err := Scale{}.Apply(Input{Data: ir.Int(6), Params: map[string]ir.Value{"factor": ir.Int(7)}})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(42), out.Output)

	out, err = Scale{}.Apply(Input{Data: ir.Int(6), Params: map[string]ir.Value{"factor": ir.Float(0.5)}})
	require.NoError(t, err)
	assert.Equal(t, ir.Float(3), out.Output)
}

func TestPassthroughContract(t *testing.T) {
	info := Passthrough{}.Info()
	assert.True(t, info.ConsumesData)
	assert.True(t, info.PassThrough)

	out, err := Passthrough{}.Apply(Input{Data: ir.Array{ir.Int(1)}})
	require.NoError(t, err)
	assert.Equal(t, ir.Array{ir.Int(1)}, out.Output)
	assert.Empty(t, out.ContextWrites)
}

func TestContextAnnotate(t *testing.T) {
	out, err := ContextAnnotate{}.Apply(Input{
		Data: ir.Int(7),
		Params: map[string]ir.Value{
			"key":   ir.String("note"),
			"value": ir.String("seen"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(7), out.Output)
	assert.Equal(t, map[string]ir.Value{"note": ir.String("seen")}, out.ContextWrites)
}

func TestContextAnnotateRequiresStringKey(t *testing.T) {
	_, err := ContextAnnotate{}.Apply(Input{
		Data:   ir.Int(7),
		Params: map[string]ir.Value{"key": ir.Int(1), "value": ir.Int(2)},
	})
	require.Error(t, err)
}

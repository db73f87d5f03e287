package processor

import (
	"fmt"

	"github.com/weftrun/weft/internal/ir"
)

// Built-in processor references.
const (
	RefConstantSource  = "weft.source.constant"
	RefAdd             = "weft.transform.add"
	RefScale           = "weft.transform.scale"
	RefPassthrough     = "weft.probe.passthrough"
	RefContextAnnotate = "weft.context.annotate"
	RefDiscardSink     = "weft.sink.discard"
)

// NewBuiltinRegistry returns a registry with every built-in registered.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(ConstantSource{})
	r.Register(Add{})
	r.Register(Scale{})
	r.Register(Passthrough{})
	r.Register(ContextAnnotate{})
	r.Register(DiscardSink{})
	return r
}

// ConstantSource emits a configured value. It consumes no input and
// therefore reports an empty upstream set.
type ConstantSource struct{}

func (ConstantSource) Info() Info {
	return Info{
		Ref:    RefConstantSource,
		Params: []ParamSpec{{Name: "value"}},
	}
}

func (ConstantSource) Apply(in Input) (Result, error) {
	return Result{Output: in.Params["value"]}, nil
}

// Add adds a numeric addend to a numeric data input.
type Add struct{}

func (Add) Info() Info {
	return Info{
		Ref:          RefAdd,
		Params:       []ParamSpec{{Name: "addend", Default: ir.Int(0), HasDefault: true}},
		ConsumesData: true,
	}
}

func (Add) Apply(in Input) (Result, error) {
	out, err := addValues(in.Data, in.Params["addend"])
	if err != nil {
		return Result{}, err
	}
	return Result{Output: out}, nil
}

// Scale multiplies a numeric data input by a factor.
type Scale struct{}

func (Scale) Info() Info {
	return Info{
		Ref:          RefScale,
		Params:       []ParamSpec{{Name: "factor"}},
		ConsumesData: true,
	}
}

func (Scale) Apply(in Input) (Result, error) {
	a, aok := asFloat(in.Data)
	b, bok := asFloat(in.Params["factor"])
	if !aok || !bok {
		return Result{}, fmt.Errorf("scale requires numeric data and factor, got %T and %T", in.Data, in.Params["factor"])
	}
	if ai, ok := in.Data.(ir.Int); ok {
		if bi, ok := in.Params["factor"].(ir.Int); ok {
			return Result{Output: ir.Int(int64(ai) * int64(bi))}, nil
		}
	}
	return Result{Output: ir.Float(a * b)}, nil
}

// Passthrough forwards its input unchanged. The engine attributes the
// forwarded value to its original producer, not to this node.
type Passthrough struct{}

func (Passthrough) Info() Info {
	return Info{
		Ref:          RefPassthrough,
		ConsumesData: true,
		PassThrough:  true,
	}
}

func (Passthrough) Apply(in Input) (Result, error) {
	return Result{Output: in.Data}, nil
}

// ContextAnnotate forwards its input unchanged while writing a configured
// key/value pair into the run context.
type ContextAnnotate struct{}

func (ContextAnnotate) Info() Info {
	return Info{
		Ref:          RefContextAnnotate,
		Params:       []ParamSpec{{Name: "key"}, {Name: "value"}},
		ConsumesData: true,
		PassThrough:  true,
	}
}

func (ContextAnnotate) Apply(in Input) (Result, error) {
	key, ok := in.Params["key"].(ir.String)
	if !ok {
		return Result{}, fmt.Errorf("context annotate requires a string key, got %T", in.Params["key"])
	}
	return Result{
		Output:        in.Data,
		ContextWrites: map[string]ir.Value{string(key): in.Params["value"]},
	}, nil
}

// DiscardSink forwards its input unchanged. A terminal convenience so
// pipelines can end on an explicit sink without disturbing provenance.
type DiscardSink struct{}

func (DiscardSink) Info() Info {
	return Info{
		Ref:          RefDiscardSink,
		ConsumesData: true,
		PassThrough:  true,
	}
}

func (DiscardSink) Apply(in Input) (Result, error) {
	return Result{Output: in.Data}, nil
}

func asFloat(v ir.Value) (float64, bool) {
	switch n := v.(type) {
	case ir.Int:
		return float64(n), true
	case ir.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

func addValues(a, b ir.Value) (ir.Value, error) {
	if ai, ok := a.(ir.Int); ok {
		if bi, ok := b.(ir.Int); ok {
			return ir.Int(int64(ai) + int64(bi)), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("add requires numeric operands, got %T and %T", a, b)
	}
	return ir.Float(af + bf), nil
}

// Package processor defines the transform contract nodes execute and a
// registry of processor implementations keyed by reference string.
//
// Processors are pure with respect to the engine: they receive resolved
// parameter values and the data-slot input, and return an output value
// plus declared context writes. They never touch the channel store or the
// run context directly.
package processor

import (
	"fmt"

	"github.com/weftrun/weft/internal/ir"
)

// ParamSpec declares one parameter a processor resolves before running.
type ParamSpec struct {
	// Name is the parameter name the resolver looks up.
	Name string

	// Default is the fallback value when no higher-precedence source
	// matches. Only meaningful when HasDefault is true.
	Default ir.Value

	// HasDefault distinguishes "defaults to X" from "required".
	HasDefault bool
}

// Info describes a processor's contract to the compiler and the engine.
type Info struct {
	// Ref is the registry reference string authored in node specs.
	Ref string

	// Params lists the parameters resolved per execution, in declaration
	// order. The data slot is not listed here.
	Params []ParamSpec

	// ConsumesData reports whether the processor reads the data slot.
	// Source processors do not; they also report an empty upstream set.
	ConsumesData bool

	// PassThrough marks processors contractually required to forward
	// their input value unchanged. The engine carries the original
	// producer identity across them.
	PassThrough bool
}

// Input is what one execution receives after resolution.
type Input struct {
	// Data is the resolved data-slot value; nil when the processor does
	// not consume data.
	Data ir.Value

	// Params maps declared parameter names to resolved values.
	Params map[string]ir.Value
}

// Result is what one execution returns.
type Result struct {
	// Output is the value published to the node's output channel.
	Output ir.Value

	// ContextWrites are key/value pairs installed into the run context
	// after execution, attributed to this node as last writer.
	ContextWrites map[string]ir.Value
}

// Processor runs a node's transform.
type Processor interface {
	Info() Info
	Apply(in Input) (Result, error)
}

// Registry resolves processor reference strings to implementations.
type Registry struct {
	procs map[string]Processor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]Processor)}
}

// Register adds a processor under its Info().Ref.
// Re-registering a ref replaces the previous implementation.
func (r *Registry) Register(p Processor) {
	r.procs[p.Info().Ref] = p
}

// Resolve returns the processor for ref.
func (r *Registry) Resolve(ref string) (Processor, error) {
	p, ok := r.procs[ref]
	if !ok {
		return nil, fmt.Errorf("unknown processor ref %q", ref)
	}
	return p, nil
}

// Refs returns all registered reference strings.
func (r *Registry) Refs() []string {
	refs := make([]string, 0, len(r.procs))
	for ref := range r.procs {
		refs = append(refs, ref)
	}
	return refs
}

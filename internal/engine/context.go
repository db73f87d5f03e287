package engine

import (
	"slices"

	"github.com/weftrun/weft/internal/ir"
)

// Context is the mutable key/value state threaded through a run alongside
// the channel store. Nodes read it during resolution and may write keys
// through their declared context writes; they never mutate it directly.
type Context struct {
	values map[string]ir.Value
}

// NewContext creates a context pre-populated from initial.
// The map is copied; the caller keeps ownership of its argument.
func NewContext(initial map[string]ir.Value) *Context {
	values := make(map[string]ir.Value, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Context{values: values}
}

// Get returns the value for key and whether it is present.
func (c *Context) Get(key string) (ir.Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Set installs or overwrites a key.
func (c *Context) Set(key string, value ir.Value) {
	c.values[key] = value
}

// Keys returns all present keys, sorted.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

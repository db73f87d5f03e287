// Package engine executes canonical pipelines.
//
// A run seeds the primary channel from the initial payload, then executes
// nodes strictly in order. Each node resolves its parameters under a fixed
// precedence chain (explicit bind, node parameter, context key, declared
// default), applies its processor, publishes its single output to a
// channel, and emits an execution record describing where every consumed
// value actually came from.
//
// The engine is sequential within a run and keeps no cross-run state.
// Non-primary channels admit a single writer; primary is always
// overwritable and carries the current value between adjacent nodes.
package engine

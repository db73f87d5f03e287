// Package ir defines the value and reference vocabulary shared by the
// compiler, the engine, and the trace layer.
//
// It contains:
//   - a sealed payload value model (Value) for everything that flows
//     through channels, context, and execution records
//   - the SourceRef binding-token grammar and parser
//   - RFC 8785 canonical JSON serialization used for content-addressed
//     identity and golden trace comparison
//   - domain-separated hashing for pipeline identity
//
// Nothing in this package performs I/O or holds mutable state.
package ir

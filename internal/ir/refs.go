package ir

import (
	"fmt"
	"strings"
)

// RefKind is the kind of a SourceRef. Exactly two kinds exist.
type RefKind string

const (
	// RefChannel references a named channel in the per-run store.
	RefChannel RefKind = "channel"

	// RefContext references a key in the run context.
	RefContext RefKind = "context"
)

// SourceRef is a canonical, disambiguated binding token: where a resolved
// parameter's value comes from. The authored grammar is
//
//	channel:<name>
//	context:<key>
//	<name>           (sugar for channel:<name>)
//
// SourceRefs are canonicalized at compile time; the resolver never sees a
// raw token.
type SourceRef struct {
	Kind RefKind
	Key  string
}

// String returns the canonical string form. Parse(r.String()) == r for
// every valid SourceRef.
func (r SourceRef) String() string {
	return string(r.Kind) + ":" + r.Key
}

// ChannelRef builds a channel SourceRef.
func ChannelRef(name string) SourceRef { return SourceRef{Kind: RefChannel, Key: name} }

// ContextRef builds a context SourceRef.
func ContextRef(key string) SourceRef { return SourceRef{Kind: RefContext, Key: key} }

// MalformedRefError reports an unparseable binding token.
// Always fatal to the node being configured; surfaced at preflight.
type MalformedRefError struct {
	Raw    string
	Reason string
}

// Error implements the error interface.
func (e *MalformedRefError) Error() string {
	return fmt.Sprintf("malformed source ref %q: %s", e.Raw, e.Reason)
}

// ParseSourceRef parses and canonicalizes a binding token.
//
// Deterministic failures:
//   - empty or whitespace-only input
//   - a recognized prefix followed by an empty name/key
//   - an unrecognized prefix
//
// Unprefixed non-empty input always succeeds as channel:<raw>.
func ParseSourceRef(raw string) (SourceRef, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return SourceRef{}, &MalformedRefError{Raw: raw, Reason: "empty token"}
	}

	if !strings.Contains(candidate, ":") {
		return ChannelRef(candidate), nil
	}

	prefix, key, _ := strings.Cut(candidate, ":")
	prefix = strings.TrimSpace(prefix)
	key = strings.TrimSpace(key)
	if prefix == "" || key == "" {
		return SourceRef{}, &MalformedRefError{Raw: raw, Reason: "empty prefix or key"}
	}

	switch RefKind(prefix) {
	case RefChannel:
		return ChannelRef(key), nil
	case RefContext:
		return ContextRef(key), nil
	default:
		return SourceRef{}, &MalformedRefError{
			Raw:    raw,
			Reason: fmt.Sprintf("unknown prefix %q (expected channel or context)", prefix),
		}
	}
}

package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a resolution or publication failure detected
// while executing a pipeline run.
//
// All runtime errors are configuration errors, not transient conditions:
// none are retried, and none are silently degraded. Ambiguity fails loudly
// because provenance correctness is an audit guarantee.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the node whose execution failed, when known.
	NodeID string

	// Param identifies the parameter being resolved, when applicable.
	Param string

	// Subject names the channel or context key involved, when applicable.
	Subject string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownChannel indicates a direct store read of a channel
	// that has never been written.
	ErrCodeUnknownChannel RuntimeErrorCode = "UNKNOWN_CHANNEL"

	// ErrCodeMissingChannel indicates an explicit channel bind
	// dereferenced a channel absent from the store.
	ErrCodeMissingChannel RuntimeErrorCode = "MISSING_CHANNEL"

	// ErrCodeMissingContextKey indicates an explicit context bind
	// dereferenced a key absent from the run context.
	ErrCodeMissingContextKey RuntimeErrorCode = "MISSING_CONTEXT_KEY"

	// ErrCodeUnresolvedParameter indicates no precedence branch matched
	// and the parameter declares no default.
	ErrCodeUnresolvedParameter RuntimeErrorCode = "UNRESOLVED_PARAMETER"

	// ErrCodeChannelOverwrite indicates a second distinct writer targeted
	// a non-primary channel. Preflight catches this before any node runs;
	// this code is the runtime fallback for stores driven without it.
	ErrCodeChannelOverwrite RuntimeErrorCode = "CHANNEL_OVERWRITE_VIOLATION"

	// ErrCodeUnknownProcessor indicates a node references a processor the
	// registry cannot resolve.
	ErrCodeUnknownProcessor RuntimeErrorCode = "UNKNOWN_PROCESSOR"

	// ErrCodePrimarySeed indicates the primary channel was seeded more
	// than once.
	ErrCodePrimarySeed RuntimeErrorCode = "PRIMARY_SEED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.NodeID != "" && e.Param != "":
		return fmt.Sprintf("%s: %s (node=%s, param=%s)", e.Code, e.Message, e.NodeID, e.Param)
	case e.NodeID != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the RuntimeErrorCode from err, unwrapping as needed.
// Returns the empty code when err is not a RuntimeError.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsMissingChannel reports whether err is a missing/unknown channel read.
func IsMissingChannel(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeMissingChannel || code == ErrCodeUnknownChannel
}

// IsOverwriteViolation reports whether err is a single-writer violation.
func IsOverwriteViolation(err error) bool {
	return CodeOf(err) == ErrCodeChannelOverwrite
}

package compiler

import (
	"errors"
	"fmt"
)

// ConfigError codes. Configuration errors are deterministic and fatal at
// preflight; none are retried or silently downgraded.
const (
	// ErrCodeInvalidSpec covers structural problems: missing fields,
	// wrong shapes, schema validation failures.
	ErrCodeInvalidSpec = "INVALID_SPEC"

	// ErrCodeMalformedSourceRef marks an unparseable binding token.
	ErrCodeMalformedSourceRef = "MALFORMED_SOURCE_REF"

	// ErrCodeMultiOutput marks an authored multi-output construct.
	// Hard freeze: rejected in full, never partially honored.
	ErrCodeMultiOutput = "MULTI_OUTPUT_NOT_SUPPORTED"

	// ErrCodeChannelOverwrite marks two distinct declared writers of the
	// same non-primary channel.
	ErrCodeChannelOverwrite = "CHANNEL_OVERWRITE_VIOLATION"

	// ErrCodeMissingProducer marks a channel bind with no declared
	// producer anywhere in the pipeline.
	ErrCodeMissingProducer = "MISSING_PRODUCER"

	// ErrCodeProducerOrder marks a channel consumed before the node that
	// produces it has run.
	ErrCodeProducerOrder = "PRODUCER_ORDER"
)

// ConfigError is a deterministic pipeline-configuration failure surfaced
// during loading, canonicalization, or preflight.
type ConfigError struct {
	Code    string
	Node    string // node uuid or authored position, when known
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.Node != "" && e.Field != "":
		return fmt.Sprintf("[%s] node %s, %s: %s", e.Code, e.Node, e.Field, e.Message)
	case e.Node != "":
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.Node, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// CodeOf extracts the ConfigError code from err, unwrapping as needed.
func CodeOf(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

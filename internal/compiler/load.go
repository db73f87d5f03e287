package compiler

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// LoadFile reads, validates, and canonicalizes a pipeline YAML file.
func LoadFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("reading pipeline file: %v", err),
		}
	}
	return LoadBytes(data)
}

// LoadBytes validates pipeline YAML against the embedded CUE schema, then
// canonicalizes it. Schema failures surface as INVALID_SPEC with the CUE
// diagnostic; grammar and invariant failures keep their dedicated codes.
func LoadBytes(data []byte) (*Pipeline, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("parsing pipeline YAML: %v", err),
		}
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("decoding pipeline YAML: %v", err),
		}
	}
	return Canonicalize(&doc)
}

func validateAgainstSchema(raw map[string]any) error {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("compiling authoring schema: %v", err),
		}
	}
	def := schema.LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("locating #Document: %v", err),
		}
	}

	doc := cctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("encoding document for validation: %v", err),
		}
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ConfigError{
			Code:    ErrCodeInvalidSpec,
			Message: fmt.Sprintf("schema validation: %v", err),
		}
	}
	return nil
}

package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden traces pin the exact canonical record bytes, node ids and
// pipeline ids included. Regenerate with:
//
//	go test ./internal/harness -update
func TestGoldenTraces(t *testing.T) {
	names := []string{
		"passthrough_provenance.yaml",
		"fan_in_provenance.yaml",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Passed(), "failures: %v", result.Errors)
		})
	}
}

package memory

import (
	"testing"

	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestShouldCompact(t *testing.T) {
	cfg := config.DefaultMemoryConfig()
	cfg.ContextWindow = 1000
	cfg.ThresholdRatio = 0.5
	cfg.CharsPerToken = 1.0

	c := &Compactor{cfg: cfg}

	assert.False(t, c.ShouldCompact("", 100))
	assert.True(t, c.ShouldCompact("", 600))
}

func TestParseSummary(t *testing.T) {
	raw := `{"task_overview":"o","current_state":"s","next_steps":"n"}`
	s, err := parseSummary(raw)
	assert.NoError(t, err)
	assert.Equal(t, "o", s.TaskOverview)
	assert.Contains(t, s.render(), "Task/Overview: o")
}

func TestParseSummary_Malformed(t *testing.T) {
	_, err := parseSummary("not json")
	assert.Error(t, err)
}

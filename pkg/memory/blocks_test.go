package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockOrderKey_PersonaHumanThenLexicographic(t *testing.T) {
	labels := []string{"zeta", "human", "alpha", "persona"}
	ordered := append([]string(nil), labels...)

	less := func(a, b string) bool { return blockOrderKey(a) < blockOrderKey(b) }
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if less(ordered[j], ordered[i]) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	assert.Equal(t, []string{LabelPersona, LabelHuman, "alpha", "zeta"}, ordered)
}

func TestCompile_Deterministic(t *testing.T) {
	m := &BlockManager{
		agentID: "agent-1",
		cache: map[string]*Block{
			"zeta":       {Label: "zeta", Value: "z", CharLimit: 10},
			LabelHuman:   {Label: LabelHuman, Value: "h", CharLimit: 10},
			LabelPersona: {Label: LabelPersona, Value: "p", CharLimit: 10},
		},
	}

	out := m.Compile()
	personaIdx := indexOf(out, "persona")
	humanIdx := indexOf(out, "human")
	zetaIdx := indexOf(out, "zeta")

	assert.True(t, personaIdx < humanIdx)
	assert.True(t, humanIdx < zetaIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

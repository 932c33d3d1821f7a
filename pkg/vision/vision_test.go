package vision

import (
	"testing"

	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/stretchr/testify/assert"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("image/png"))
	assert.True(t, Supported("image/jpeg"))
	assert.False(t, Supported("application/pdf"))
}

func TestFormatAnnotation(t *testing.T) {
	assert.Equal(t, "[Uploaded Image: a red bicycle]", FormatAnnotation("a red bicycle"))
}

func TestTail_TruncatesToMax(t *testing.T) {
	msgs := make([]agent.ConversationMessage, 10)
	for i := range msgs {
		msgs[i] = agent.ConversationMessage{Role: agent.RoleUser, Content: "msg"}
	}
	tail := Tail(msgs)
	assert.Len(t, tail, MaxContextTailTurns)
}

func TestTail_ShorterThanMaxUnchanged(t *testing.T) {
	msgs := []agent.ConversationMessage{{Role: agent.RoleUser, Content: "hi"}}
	assert.Equal(t, msgs, Tail(msgs))
}

package eventloop

import (
	"testing"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/stretchr/testify/assert"
)

func TestJoinAnnotations_NoAnnotations(t *testing.T) {
	assert.Equal(t, "hello", joinAnnotations("hello", nil))
}

func TestJoinAnnotations_EmptyOriginal(t *testing.T) {
	assert.Equal(t, "[Uploaded Image: a cat]", joinAnnotations("", []string{"[Uploaded Image: a cat]"}))
}

func TestJoinAnnotations_AppendsAfterText(t *testing.T) {
	got := joinAnnotations("check this out", []string{"[Uploaded Image: a cat]"})
	assert.Equal(t, "check this out\n[Uploaded Image: a cat]", got)
}

func TestJoinAnnotations_MultipleAttachments(t *testing.T) {
	got := joinAnnotations("", []string{"[Uploaded Image: a cat]", "[Uploaded Image: a dog]"})
	assert.Equal(t, "[Uploaded Image: a cat]\n[Uploaded Image: a dog]", got)
}

func TestToConversationMessages(t *testing.T) {
	msgs := []*ent.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	out := toConversationMessages(msgs)
	assert.Len(t, out, 2)
	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, "hi", out[0].Content)
	assert.Equal(t, "assistant", out[1].Role)
}

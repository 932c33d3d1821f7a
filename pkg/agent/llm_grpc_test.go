package agent

import (
	"testing"

	"github.com/codeready-toolchain/sage/pkg/config"
	modelv1 "github.com/codeready-toolchain/sage/proto"
	"github.com/stretchr/testify/assert"
)

func TestToProtoRequest_UsesCallConfigOverFallback(t *testing.T) {
	fallback := &modelv1.LLMConfig{Model: "fallback-model"}
	input := &GenerateInput{
		Messages: []ConversationMessage{{Role: RoleUser, Content: "hi"}},
		Config:   &config.LLMConfig{Model: "call-model"},
	}
	req := toProtoRequest(input, fallback)
	assert.Equal(t, "call-model", req.LLMConfig.Model)
	assert.Len(t, req.Messages, 1)
}

func TestToProtoRequest_FallsBackWhenCallConfigNil(t *testing.T) {
	fallback := &modelv1.LLMConfig{Model: "fallback-model"}
	req := toProtoRequest(&GenerateInput{}, fallback)
	assert.Equal(t, "fallback-model", req.LLMConfig.Model)
}

func TestFromProtoResponse_Variants(t *testing.T) {
	assert.IsType(t, &TextChunk{}, fromProtoResponse(&modelv1.GenerateResponse{Text: &modelv1.TextContent{Content: "hi"}}))
	assert.IsType(t, &ToolCallChunk{}, fromProtoResponse(&modelv1.GenerateResponse{ToolCall: &modelv1.ToolCallEvent{Name: "done"}}))
	assert.IsType(t, &UsageChunk{}, fromProtoResponse(&modelv1.GenerateResponse{Usage: &modelv1.UsageContent{TotalTokens: 3}}))
	assert.IsType(t, &ErrorChunk{}, fromProtoResponse(&modelv1.GenerateResponse{Error: &modelv1.ErrorContent{Message: "boom"}}))
	assert.Nil(t, fromProtoResponse(&modelv1.GenerateResponse{IsFinal: true}))
}

package agent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewAgent_PanicsOnNilDependency(t *testing.T) {
	id := uuid.New()
	mem := &fakeMemory{}
	tools := NewStubToolExecutor(nil)
	llm := &fakeLLM{}

	assert.Panics(t, func() { NewAgent(id, nil, tools, mem) })
	assert.Panics(t, func() { NewAgent(id, llm, nil, mem) })
	assert.Panics(t, func() { NewAgent(id, llm, tools, nil) })
}

func TestResetBuffer(t *testing.T) {
	a := NewAgent(uuid.New(), &fakeLLM{}, NewStubToolExecutor(nil), &fakeMemory{})
	a.pending = []ToolResultRecord{{Name: "x"}}
	a.ResetBuffer()
	assert.Empty(t, a.pending)
}

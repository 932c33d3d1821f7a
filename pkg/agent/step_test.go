package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemory struct{ view ContextView }

func (f *fakeMemory) BuildContextView(context.Context) (ContextView, error) { return f.view, nil }

type fakeLLM struct {
	responses []string // one JSON blob per call, consumed in order
	calls     int
}

func (f *fakeLLM) Generate(ctx context.Context, in *GenerateInput) (<-chan Chunk, error) {
	idx := f.calls
	f.calls++
	ch := make(chan Chunk, 2)
	if idx >= len(f.responses) {
		ch <- &ErrorChunk{Message: "no more canned responses"}
		close(ch)
		return ch, nil
	}
	ch <- &TextChunk{Content: f.responses[idx]}
	ch <- &UsageChunk{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	close(ch)
	return ch, nil
}
func (f *fakeLLM) Close() error { return nil }

func newTestAgent(t *testing.T, llm LLMClient, tools ToolExecutor) *Agent {
	t.Helper()
	return NewAgent(uuid.New(), llm, tools, &fakeMemory{view: ContextView{PersonaBlock: "p", HumanBlock: "h"}})
}

func TestStep_FirstStepNoTools(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"messages":["hello there"],"tool_calls":[]}`}}
	tools := NewStubToolExecutor(nil)
	a := newTestAgent(t, llm, tools)

	res, err := a.Step(context.Background(), 0, "hi")
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, []string{"hello there"}, res.Messages)
	assert.Empty(t, res.ExecutedTools)
}

func TestStep_ExecutesToolAndContinues(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"messages":[],"tool_calls":[{"name":"memory_append","args":{"block":"human","content":"likes go"}}]}`,
	}}
	tools := NewStubToolExecutor([]ToolDefinition{{Name: "memory_append"}})
	a := newTestAgent(t, llm, tools)

	res, err := a.Step(context.Background(), 0, "remember I like go")
	require.NoError(t, err)
	assert.False(t, res.Done)
	require.Len(t, res.ExecutedTools, 1)
	assert.Equal(t, "memory_append", res.ExecutedTools[0].Name)
	assert.True(t, res.ExecutedTools[0].Success)

	a.mu.Lock()
	pending := len(a.pending)
	a.mu.Unlock()
	assert.Equal(t, 1, pending)
}

func TestStep_DoneToolOnlyIsTerminal(t *testing.T) {
	out := &StepOutput{ToolCalls: []RequestedTool{{Name: "done"}}}
	assert.True(t, out.IsDone())

	// done mixed with another call is terminal too; Step still dispatches the other call.
	out2 := &StepOutput{ToolCalls: []RequestedTool{{Name: "done"}, {Name: "shell"}}}
	assert.True(t, out2.IsDone())
}

func TestParseStepOutput_InvalidJSON(t *testing.T) {
	_, err := parseStepOutput("not json")
	assert.Error(t, err)
}

func TestParseStepOutput_Empty(t *testing.T) {
	_, err := parseStepOutput("")
	assert.Error(t, err)
}

func TestFlattenMessages_NestedArrayAndEmpties(t *testing.T) {
	in := []string{`["a","b",""]`, "plain", ""}
	out := flattenMessages(in)
	assert.Equal(t, []string{"a", "b", "plain"}, out)
}

func TestStep_CorrectionPathOnParseFailure(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`not valid json at all`,
		`{"messages":["corrected"],"tool_calls":[]}`,
	}}
	tools := NewStubToolExecutor(nil)
	a := newTestAgent(t, llm, tools)

	res, err := a.Step(context.Background(), 0, "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"corrected"}, res.Messages)
	assert.True(t, res.Done)
}

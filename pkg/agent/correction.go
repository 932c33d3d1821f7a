package agent

import (
	"context"
	"fmt"
	"strings"
)

// correct invokes the Correction Sub-agent: a second typed call whose only
// job is to reshape a malformed raw response into the (messages,
// tool_calls) record, without inventing new content. It is called at most
// once per attempt and is not itself retried — a correction failure
// propagates the original parse error (spec §4.5.4).
func (a *Agent) correct(ctx context.Context, in StepInput, rawResponse string, parseErr error, tools []ToolDefinition) (*StepOutput, error) {
	ch, err := a.LLM.Generate(ctx, &GenerateInput{
		Messages: []ConversationMessage{
			{Role: RoleSystem, Content: buildCorrectionPrompt(in, rawResponse, parseErr, tools)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("correction call: %w", err)
	}

	var sb strings.Builder
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return parseStepOutput(sb.String())
			}
			if tc, ok := chunk.(*TextChunk); ok {
				sb.WriteString(tc.Content)
			}
			if ec, ok := chunk.(*ErrorChunk); ok {
				return nil, fmt.Errorf("correction call: %s", ec.Message)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func buildCorrectionPrompt(in StepInput, rawResponse string, parseErr error, tools []ToolDefinition) string {
	var sb strings.Builder
	sb.WriteString("The previous response failed to parse as the required JSON record. ")
	sb.WriteString("Reshape it into a valid response. Do not invent new content — only restructure ")
	sb.WriteString("what is already present in the malformed output.\n\n")
	fmt.Fprintf(&sb, "Original input:\n%s\n\n", in.Input)
	fmt.Fprintf(&sb, "Malformed output:\n%s\n\n", rawResponse)
	fmt.Fprintf(&sb, "Parse error:\n%s\n\n", parseErr)
	fmt.Fprintf(&sb, "Available tools:\n%s\n\n", renderToolDescriptions(tools))
	sb.WriteString("Respond with a JSON object: {\"messages\": [string...], \"tool_calls\": [{\"name\": string, \"args\": object}...]}.")
	return sb.String()
}

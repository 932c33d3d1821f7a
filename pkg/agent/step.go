package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StepInput is the typed input record for one Step Loop round (spec
// §4.5.1). Each field carries a distinct semantic purpose so prompt
// wording can evolve without touching callers.
type StepInput struct {
	Input                  string // current user message (step 0) or synthesized tool-result payload (step k>0)
	CurrentTime            string // formatted in the user's timezone if set
	PersonaBlock           string
	HumanBlock             string
	MemoryMetadata         string
	PreviousContextSummary string
	RecentConversation     string
	AvailableTools         string
	IsFirstTimeUser        bool
}

// StepOutput is the typed output record for one Step Loop round. There is
// no free-text field — everything the model wants to say is an entry in
// Messages.
type StepOutput struct {
	Messages  []string
	ToolCalls []RequestedTool
}

// RequestedTool is one {name, args} entry the model asked to invoke.
type RequestedTool struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// IsDone reports whether tool_calls is empty, or contains a `done` call
// (spec §8 property 4: `[done, X]` is treated as done and X is still
// dispatched once, the chosen resolution of the done-mixing Open Question —
// see DESIGN.md).
func (o *StepOutput) IsDone() bool {
	if len(o.ToolCalls) == 0 {
		return true
	}
	for _, c := range o.ToolCalls {
		if c.Name == "done" {
			return true
		}
	}
	return false
}

// StepResult is returned by (*Agent).Step to the event loop: the messages
// to send, the executed tools to persist, and whether the step is done.
type StepResult struct {
	Messages      []string
	ExecutedTools []ToolResultRecord
	Done          bool
	Usage         TokenUsage
}

// continuationPreamble reminds the model, for step k>0, that prior
// messages were already delivered, that silence is the default, and that
// calling done is correct when the tool result was for its own benefit.
const continuationPreamble = "The following are results from tools you called in the previous step. " +
	"Any messages you sent then have already been delivered to the user — do not repeat them. " +
	"Silence is the default response; only send a new message if these results change what the " +
	"user needs to hear. Calling done with no message is correct when the result was only for " +
	"your own benefit.\n\n"

// Step runs one LLM round of the Agent Step Loop (spec §4.5.2).
//
// step is the 0-based index within the current incoming message's
// processing (0 clears the ephemeral tool-result buffer implicitly, since
// the caller is expected to have called ResetBuffer beforehand).
func (a *Agent) Step(ctx context.Context, step int, userInput string) (*StepResult, error) {
	view, err := a.Mem.BuildContextView(ctx)
	if err != nil {
		return nil, fmt.Errorf("build context view: %w", err)
	}

	tools, err := a.Tools.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	in := StepInput{
		CurrentTime:            time.Now().Format(time.RFC3339),
		PersonaBlock:           view.PersonaBlock,
		HumanBlock:             view.HumanBlock,
		MemoryMetadata:         view.MemoryMetadata,
		PreviousContextSummary: view.PreviousContextSummary,
		RecentConversation:     view.RecentConversation,
		AvailableTools:         renderToolDescriptions(tools),
		IsFirstTimeUser:        view.IsFirstTimeUser,
	}

	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if step == 0 {
		in.Input = userInput
	} else {
		in.Input = continuationPreamble + renderToolResults(pending)
	}

	output, usage, err := a.callWithRetries(ctx, in, tools)
	if err != nil {
		return nil, err
	}

	output.Messages = flattenMessages(output.Messages)

	result := &StepResult{Messages: output.Messages, Usage: usage}

	for _, call := range output.ToolCalls {
		if call.Name == "done" {
			continue
		}
		rec := a.executeTool(ctx, call)
		result.ExecutedTools = append(result.ExecutedTools, rec)

		a.mu.Lock()
		a.pending = append(a.pending, rec)
		a.mu.Unlock()
	}

	result.Done = output.IsDone()
	return result, nil
}

// executeTool looks up and runs a single requested tool, synthesizing an
// error result for an unknown tool rather than failing the step.
func (a *Agent) executeTool(ctx context.Context, call RequestedTool) ToolResultRecord {
	argsJSON, _ := json.Marshal(call.Args)
	res, err := a.Tools.Execute(ctx, ToolCall{Name: call.Name, Arguments: string(argsJSON)})
	if err != nil {
		return ToolResultRecord{Name: call.Name, Args: call.Args, Success: false, Output: err.Error()}
	}
	return ToolResultRecord{Name: call.Name, Args: call.Args, Success: !res.IsError, Output: res.Content}
}

// callWithRetries drives the LLM call, the parse-failure correction path,
// and the backoff-and-retry path (spec §4.5.2 step 4).
func (a *Agent) callWithRetries(ctx context.Context, in StepInput, tools []ToolDefinition) (*StepOutput, TokenUsage, error) {
	var lastErr error
	for attempt := 0; attempt < MaxLLMRetries; attempt++ {
		raw, usage, err := a.generateRaw(ctx, in, tools)
		if err != nil {
			lastErr = err
			select {
			case <-time.After(RetryBackoff):
			case <-ctx.Done():
				return nil, usage, ctx.Err()
			}
			continue
		}

		output, perr := parseStepOutput(raw)
		if perr == nil {
			return output, usage, nil
		}

		corrected, cerr := a.correct(ctx, in, raw, perr, tools)
		if cerr != nil {
			lastErr = fmt.Errorf("parse step output: %w (correction failed: %v)", perr, cerr)
			select {
			case <-time.After(RetryBackoff):
			case <-ctx.Done():
				return nil, usage, ctx.Err()
			}
			continue
		}
		return corrected, usage, nil
	}
	return nil, TokenUsage{}, fmt.Errorf("step loop: exhausted %d attempts: %w", MaxLLMRetries, lastErr)
}

// generateRaw makes one LLM call and collects the streamed response into
// a single raw text blob, which is expected to be the JSON-encoded
// {messages, tool_calls} record.
func (a *Agent) generateRaw(ctx context.Context, in StepInput, tools []ToolDefinition) (string, TokenUsage, error) {
	ch, err := a.LLM.Generate(ctx, &GenerateInput{
		Messages: []ConversationMessage{
			{Role: RoleSystem, Content: buildSystemPrompt(in)},
			{Role: RoleUser, Content: in.Input},
		},
		Tools: tools,
	})
	if err != nil {
		return "", TokenUsage{}, err
	}

	var sb strings.Builder
	var usage TokenUsage
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return sb.String(), usage, nil
			}
			switch c := chunk.(type) {
			case *TextChunk:
				sb.WriteString(c.Content)
			case *UsageChunk:
				usage = TokenUsage{
					InputTokens: c.InputTokens, OutputTokens: c.OutputTokens,
					TotalTokens: c.TotalTokens, ThinkingTokens: c.ThinkingTokens,
				}
			case *ErrorChunk:
				return "", usage, fmt.Errorf("llm error (code=%s): %s", c.Code, c.Message)
			}
		case <-ctx.Done():
			return "", usage, ctx.Err()
		}
	}
}

func buildSystemPrompt(in StepInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current time: %s\n\n", in.CurrentTime)
	fmt.Fprintf(&sb, "=== Persona ===\n%s\n\n", in.PersonaBlock)
	fmt.Fprintf(&sb, "=== Human ===\n%s\n\n", in.HumanBlock)
	fmt.Fprintf(&sb, "=== Memory metadata ===\n%s\n\n", in.MemoryMetadata)
	if in.PreviousContextSummary != "" {
		fmt.Fprintf(&sb, "=== Previous summary ===\n%s\n\n", in.PreviousContextSummary)
	}
	fmt.Fprintf(&sb, "=== Recent conversation ===\n%s\n\n", in.RecentConversation)
	fmt.Fprintf(&sb, "=== Available tools ===\n%s\n\n", in.AvailableTools)
	if in.IsFirstTimeUser {
		sb.WriteString("This is the first message from a new user.\n\n")
	}
	sb.WriteString("Respond with a JSON object: {\"messages\": [string...], \"tool_calls\": [{\"name\": string, \"args\": object}...]}.")
	return sb.String()
}

func renderToolDescriptions(tools []ToolDefinition) string {
	var sb strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&sb, "- %s: %s\n  args schema: %s\n", t.Name, t.Description, t.ParametersSchema)
	}
	return sb.String()
}

func renderToolResults(records []ToolResultRecord) string {
	var sb strings.Builder
	for _, r := range records {
		status := "success"
		if !r.Success {
			status = "error"
		}
		argsJSON, _ := json.Marshal(r.Args)
		fmt.Fprintf(&sb, "[Tool Result: %s]\nargs: %s\nstatus: %s\noutput: %s\n\n", r.Name, argsJSON, status, r.Output)
	}
	return sb.String()
}

// parseStepOutput decodes the raw LLM response into the typed output
// record, returning a parse error the caller routes to the Correction
// Sub-agent.
func parseStepOutput(raw string) (*StepOutput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty response")
	}

	var decoded struct {
		Messages  []json.RawMessage `json:"messages"`
		ToolCalls []RequestedTool   `json:"tool_calls"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("decode step response: %w", err)
	}

	out := &StepOutput{ToolCalls: decoded.ToolCalls}
	for _, m := range decoded.Messages {
		var s string
		if err := json.Unmarshal(m, &s); err == nil {
			out.Messages = append(out.Messages, s)
			continue
		}
		out.Messages = append(out.Messages, string(m))
	}
	return out, nil
}

// flattenMessages expands any message entry that is itself a JSON-encoded
// array of strings into its elements, and drops empty entries (spec
// §4.5.2 step 5).
func flattenMessages(messages []string) []string {
	var out []string
	for _, m := range messages {
		var nested []string
		if err := json.Unmarshal([]byte(m), &nested); err == nil {
			for _, n := range nested {
				if n != "" {
					out = append(out, n)
				}
			}
			continue
		}
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

package tools

import "context"

// DoneTool implements the done tool (spec §4.4): an explicit "no more
// output" signal, terminal in a step. Its Execute is never actually called
// by pkg/agent.Step — done calls are filtered out before dispatch — but it
// is registered so it appears in the rendered tool catalog and so an
// unexpected direct invocation (e.g. via the Correction Sub-agent re-shaping
// a malformed response into a bare `done` call) resolves to a harmless
// no-op rather than "unknown tool".
type DoneTool struct{}

func (t *DoneTool) Name() string { return "done" }

func (t *DoneTool) Description() string {
	return "Signal that you have nothing more to say or do this step. Takes no arguments."
}

func (t *DoneTool) ArgsSchema() string { return `{}` }

func (t *DoneTool) Execute(context.Context, map[string]string) (Result, error) {
	return Result{Success: true, Output: ""}, nil
}

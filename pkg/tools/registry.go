// Package tools implements the Tool Registry (spec §4.4): a name-keyed,
// lexicographically ordered set of handles the Agent Step Loop calls by
// name, each wrapping a piece of the Memory Hierarchy, the Scheduler, or an
// external effect (shell, web search).
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/sage/pkg/agent"
)

// Result is a tool's outcome. Mirrors spec §4.4's
// ToolResult{success, output, error?} record exactly.
type Result struct {
	Success bool
	Output  string
	Error   string // empty when Success
}

// Tool is one entry in the registry. Execute receives args as
// map[string]string (spec §4.4's signature) — numeric/bool arguments arrive
// as their string representation and each tool parses what it needs,
// matching the teacher's shell_tool.rs convention of args.get(...).parse().
type Tool interface {
	Name() string
	Description() string
	ArgsSchema() string // JSON-shaped literal, rendered verbatim into the prompt
	Execute(ctx context.Context, args map[string]string) (Result, error)
}

// Registry is a name-keyed tool set satisfying agent.ToolExecutor.
type Registry struct {
	tools map[string]Tool
	order []string // lexicographic by name, computed once at construction
}

var _ agent.ToolExecutor = (*Registry)(nil)

// NewRegistry builds a registry from the given tools. Nil Tool values are
// skipped, so a caller can pass a nil entry for a tool it leaves out
// without a separate filter pass.
func NewRegistry(toolList ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(toolList))}
	for _, t := range toolList {
		if t == nil {
			continue
		}
		r.tools[t.Name()] = t
	}
	r.order = make([]string, 0, len(r.tools))
	for name := range r.tools {
		r.order = append(r.order, name)
	}
	sort.Strings(r.order)
	return r
}

// GenerateDescription renders the canonical tool listing exactly as the LLM
// will see it (spec §4.4): one block per tool, in lexicographic order, name
// then description then argument schema.
func (r *Registry) GenerateDescription() string {
	var b strings.Builder
	for i, name := range r.order {
		if i > 0 {
			b.WriteString("\n\n")
		}
		t := r.tools[name]
		fmt.Fprintf(&b, "%s: %s\nArgs: %s", t.Name(), t.Description(), t.ArgsSchema())
	}
	return b.String()
}

// Execute implements agent.ToolExecutor.
func (r *Registry) Execute(ctx context.Context, call agent.ToolCall) (*agent.ToolResult, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return &agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("unknown tool %q", call.Name),
			IsError: true,
		}, nil
	}

	args, err := parseArgs(call.Arguments)
	if err != nil {
		return &agent.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("failed to parse arguments: %s", err),
			IsError: true,
		}, nil
	}

	res, err := t.Execute(ctx, args)
	if err != nil {
		// Infra-level failure (e.g. context cancelled) — surfaced as a Go
		// error so the step loop's retry logic can distinguish it from a
		// tool-level failure, which is always a successful Execute call
		// carrying Result{Success:false}.
		return nil, fmt.Errorf("tool %q: %w", call.Name, err)
	}

	if !res.Success {
		content := res.Error
		if content == "" {
			content = res.Output
		}
		return &agent.ToolResult{CallID: call.ID, Name: call.Name, Content: content, IsError: true}, nil
	}
	return &agent.ToolResult{CallID: call.ID, Name: call.Name, Content: res.Output, IsError: false}, nil
}

// ListTools implements agent.ToolExecutor.
func (r *Registry) ListTools(_ context.Context) ([]agent.ToolDefinition, error) {
	if len(r.order) == 0 {
		return nil, nil
	}
	defs := make([]agent.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, agent.ToolDefinition{
			Name:             t.Name(),
			Description:      t.Description(),
			ParametersSchema: t.ArgsSchema(),
		})
	}
	return defs, nil
}

// Close calls Close on every registered tool that has one. WebSearchTool has
// no Close method, so the MCP client it uses is not closed here.
func (r *Registry) Close() error {
	var firstErr error
	for _, name := range r.order {
		if c, ok := r.tools[name].(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// parseArgs decodes a JSON object into map[string]string. Non-string JSON
// values (numbers, bools) are stringified rather than rejected, since
// spec §4.4's tool signature is uniformly map<string,string> and several
// tools accept numeric-looking fields (line, count, top_k).
func parseArgs(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]string{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	args := make(map[string]string, len(decoded))
	for k, v := range decoded {
		args[k] = stringifyArg(v)
	}
	return args, nil
}

func stringifyArg(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

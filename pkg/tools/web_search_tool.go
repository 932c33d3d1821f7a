package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/codeready-toolchain/sage/pkg/searchmcp"
)

const defaultWebSearchCount = 5

// WebSearchTool implements the web_search tool (spec §4.4), bridging to the
// configured MCP search provider. A nil Client means no provider is
// configured; Execute then reports the tool as unavailable rather than
// panicking, so the Registry can register it unconditionally.
type WebSearchTool struct {
	Client *searchmcp.Client
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for current information. Unavailable unless a search provider is configured."
}

func (t *WebSearchTool) ArgsSchema() string {
	return `{"query": "string", "count": "int (optional, default 5)", ` +
		`"freshness": "string (optional, e.g. \"past_day\", \"past_week\")", "location": "string (optional)"}`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	if t.Client == nil {
		return Result{Success: false, Error: "web search is not configured"}, nil
	}
	query := args["query"]
	if query == "" {
		return Result{Success: false, Error: "query is required"}, nil
	}
	count := defaultWebSearchCount
	if raw, ok := args["count"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Result{Success: false, Error: fmt.Sprintf("count must be an integer: %v", err)}, nil
		}
		count = n
	}

	out, err := t.Client.Search(ctx, searchmcp.SearchParams{
		Query:     query,
		Count:     count,
		Freshness: args["freshness"],
		Location:  args["location"],
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}
	return Result{Success: true, Output: out}, nil
}

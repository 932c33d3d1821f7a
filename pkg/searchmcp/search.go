package searchmcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolName is the tool the configured search provider exposes. Search
// providers speaking MCP (Brave, Tavily, etc.) converge on this name.
const ToolName = "search"

// SearchParams carries the web_search tool's full argument set (spec §4.4):
// query is required, the rest are optional provider hints passed through
// verbatim.
type SearchParams struct {
	Query     string
	Count     int
	Freshness string
	Location  string
}

// Search runs a web search via the configured MCP provider and returns the
// provider's rendered text result, truncated for storage.
func (c *Client) Search(ctx context.Context, p SearchParams) (string, error) {
	args := map[string]any{"query": p.Query}
	if p.Count > 0 {
		args["count"] = p.Count
	}
	if p.Freshness != "" {
		args["freshness"] = p.Freshness
	}
	if p.Location != "" {
		args["location"] = p.Location
	}

	result, err := c.CallTool(ctx, ServerID, ToolName, args)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}

	text := extractTextContent(result)
	if result.IsError {
		return "", fmt.Errorf("web search provider error: %s", text)
	}
	return TruncateForStorage(text), nil
}

// extractTextContent concatenates text parts of an MCP tool result.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

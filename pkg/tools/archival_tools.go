package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/sage/pkg/memory"
)

const defaultArchivalSearchLimit = 5

// ArchivalInsertTool implements the archival_insert tool (spec §4.4):
// persist a passage into archival memory.
type ArchivalInsertTool struct {
	Archival *memory.ArchivalManager
}

func (t *ArchivalInsertTool) Name() string { return "archival_insert" }

func (t *ArchivalInsertTool) Description() string {
	return "Save content to long-term archival memory for later retrieval, optionally tagged."
}

func (t *ArchivalInsertTool) ArgsSchema() string {
	return `{"content": "string", "tags": "comma-separated string (optional)"}`
}

func (t *ArchivalInsertTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	content := args["content"]
	if content == "" {
		return Result{Success: false, Error: "content is required"}, nil
	}
	id, err := t.Archival.Insert(ctx, content, parseTags(args["tags"]))
	if err != nil {
		return Result{}, fmt.Errorf("archival_insert: %w", err)
	}
	return Result{Success: true, Output: fmt.Sprintf("stored passage %s", id)}, nil
}

// ArchivalSearchTool implements the archival_search tool (spec §4.4):
// nearest-neighbor search over archival passages, optionally filtered by
// tag intersection.
type ArchivalSearchTool struct {
	Archival *memory.ArchivalManager
}

func (t *ArchivalSearchTool) Name() string { return "archival_search" }

func (t *ArchivalSearchTool) Description() string {
	return "Search long-term archival memory for content similar to the query, optionally filtered by tags."
}

func (t *ArchivalSearchTool) ArgsSchema() string {
	return `{"query": "string", "top_k": "int (optional, default 5)", "tags": "comma-separated string (optional)"}`
}

func (t *ArchivalSearchTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	query := args["query"]
	if query == "" {
		return Result{Success: false, Error: "query is required"}, nil
	}
	topK := defaultArchivalSearchLimit
	if raw, ok := args["top_k"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Result{Success: false, Error: fmt.Sprintf("top_k must be an integer: %v", err)}, nil
		}
		topK = n
	}

	hits, err := t.Archival.Search(ctx, query, topK, parseTags(args["tags"]))
	if err != nil {
		return Result{}, fmt.Errorf("archival_search: %w", err)
	}
	if len(hits) == 0 {
		return Result{Success: true, Output: "(no matches)"}, nil
	}

	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "[score=%.3f] %s (tags: %s)\n", h.Score, h.Content, strings.Join(h.Tags, ","))
	}
	return Result{Success: true, Output: sb.String()}, nil
}

func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

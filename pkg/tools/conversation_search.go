package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/memory"
	"github.com/codeready-toolchain/sage/pkg/store"
)

const defaultConversationSearchLimit = 5

// ConversationSearchTool implements the conversation_search tool (spec
// §4.4): a union over Messages and Summaries, formatted with section
// headers so the model can tell which part of the history a hit came from.
type ConversationSearchTool struct {
	Recall    *memory.RecallManager
	Summaries *store.SummaryRepo
	Embed     embedding.Client
	Prefs     *memory.PreferenceManager
	AgentID   string
}

func (t *ConversationSearchTool) Name() string { return "conversation_search" }

func (t *ConversationSearchTool) Description() string {
	return "Search the conversation history and compaction summaries for a query. " +
		"Use this to recall things said earlier that are no longer in the visible context."
}

func (t *ConversationSearchTool) ArgsSchema() string {
	return `{"query": "string", "limit": "int (optional, default 5)"}`
}

func (t *ConversationSearchTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	query := args["query"]
	if query == "" {
		return Result{Success: false, Error: "query is required"}, nil
	}
	limit := defaultConversationSearchLimit
	if raw, ok := args["limit"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Result{Success: false, Error: fmt.Sprintf("limit must be an integer: %v", err)}, nil
		}
		limit = n
	}

	loc, _ := t.Prefs.Timezone(ctx)

	msgHits, err := t.Recall.Search(ctx, query, limit)
	if err != nil {
		return Result{}, fmt.Errorf("conversation_search: %w", err)
	}

	summaryHits, err := t.searchSummaries(ctx, query, limit)
	if err != nil {
		return Result{}, fmt.Errorf("conversation_search: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("=== Messages ===\n")
	if len(msgHits) == 0 {
		sb.WriteString("(no matches)\n")
	}
	for _, h := range msgHits {
		sb.WriteString(memory.Render(h, loc))
		sb.WriteByte('\n')
	}

	sb.WriteString("\n=== Summaries ===\n")
	if len(summaryHits) == 0 {
		sb.WriteString("(no matches)\n")
	}
	for _, s := range summaryHits {
		fmt.Fprintf(&sb, "[seq %d-%d] (score=%.3f): %s\n", s.fromSeq, s.toSeq, s.score, s.content)
	}

	return Result{Success: true, Output: sb.String()}, nil
}

type summaryHit struct {
	fromSeq, toSeq int64
	content        string
	score          float64
}

func (t *ConversationSearchTool) searchSummaries(ctx context.Context, query string, k int) ([]summaryHit, error) {
	vec, err := t.Embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	neighbors, err := t.Summaries.SearchByEmbedding(ctx, t.AgentID, vec, k)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	ids := make([]string, len(neighbors))
	scoreByID := make(map[string]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ID
		scoreByID[n.ID] = n.Score
	}
	rows, err := t.Summaries.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]summaryHit, len(rows))
	for i, s := range rows {
		hits[i] = summaryHit{fromSeq: s.FromSequenceID, toSeq: s.ToSequenceID, content: s.Content, score: scoreByID[s.ID]}
	}
	return hits, nil
}

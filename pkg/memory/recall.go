package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/message"
	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// maxPreviewLen is the UTF-8-safe truncation bound for a search hit's
// rendered content (spec §4.3.2).
const maxPreviewLen = 500

// keywordSearchWindow bounds how far back search_keyword looks, since it is
// a substring scan rather than an indexed search.
const keywordSearchWindow = 500

// SearchHit is one ranked result from search/search_keyword/search_semantic.
type SearchHit struct {
	Message *ent.Message
	Score   *float64 // nil for keyword-only hits
}

// RecallManager is a thin layer over the Messages repository and the
// Embedding Client (spec §4.3.2).
type RecallManager struct {
	messages *store.MessageRepo
	embed    embedding.Client
	agentID  string
}

// NewRecallManager constructs a RecallManager for one agent.
func NewRecallManager(messages *store.MessageRepo, embed embedding.Client, agentID string) *RecallManager {
	return &RecallManager{messages: messages, embed: embed, agentID: agentID}
}

// AddMessageSync inserts a message with a zero embedding — the fast path
// used on the hot conversational turn; embedding is filled in later.
func (r *RecallManager) AddMessageSync(ctx context.Context, userID *string, role message.Role, content string, attachment *string) (string, error) {
	m, err := r.messages.Insert(ctx, r.agentID, role, content, store.InsertOpts{
		UserID:         userID,
		AttachmentText: attachment,
	})
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// UpdateEmbedding computes and persists content's embedding for message id,
// the asynchronous fill that follows AddMessageSync.
func (r *RecallManager) UpdateEmbedding(ctx context.Context, id, content string) error {
	vec, err := r.embed.Embed(ctx, content)
	if err != nil {
		return err
	}
	return r.messages.UpdateEmbedding(ctx, id, vec)
}

// AddMessage is the synchronous variant: embeds first, then inserts with
// the embedding already attached.
func (r *RecallManager) AddMessage(ctx context.Context, userID *string, role message.Role, content string) (string, error) {
	vec, err := r.embed.Embed(ctx, content)
	if err != nil {
		return "", err
	}
	m, err := r.messages.Insert(ctx, r.agentID, role, content, store.InsertOpts{
		UserID:    userID,
		Embedding: vec,
	})
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// SearchKeyword does a case-insensitive substring match over a recent
// window, excluding tool-role messages, ranked by most recent.
func (r *RecallManager) SearchKeyword(ctx context.Context, q string, k int) ([]SearchHit, error) {
	recent, err := r.messages.GetRecent(ctx, r.agentID, keywordSearchWindow)
	if err != nil {
		return nil, fmt.Errorf("search_keyword: %w", err)
	}

	needle := strings.ToLower(q)
	var hits []SearchHit
	for i := len(recent) - 1; i >= 0 && len(hits) < k; i-- {
		m := recent[i]
		if m.Role == message.RoleTool {
			continue
		}
		if strings.Contains(strings.ToLower(m.Content), needle) {
			hits = append(hits, SearchHit{Message: m})
		}
	}
	return hits, nil
}

// SearchSemantic embeds q and returns the k nearest messages by cosine
// distance.
func (r *RecallManager) SearchSemantic(ctx context.Context, q string, k int) ([]SearchHit, error) {
	vec, err := r.embed.Embed(ctx, q)
	if err != nil {
		return nil, err
	}
	neighbors, err := r.messages.SearchByEmbedding(ctx, r.agentID, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search_semantic: %w", err)
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
	msgs, err := r.messages.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, len(msgs))
	for i, m := range msgs {
		score := scoreByID[m.ID]
		hits[i] = SearchHit{Message: m, Score: &score}
	}
	return hits, nil
}

// Search merges semantic then keyword results, dedupes by message id, sorts
// by (score desc, sequence_id desc), and truncates to k.
func (r *RecallManager) Search(ctx context.Context, q string, k int) ([]SearchHit, error) {
	semantic, err := r.SearchSemantic(ctx, q, k)
	if err != nil {
		return nil, err
	}
	keyword, err := r.SearchKeyword(ctx, q, k)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	merged := make([]SearchHit, 0, len(semantic)+len(keyword))
	for _, h := range append(semantic, keyword...) {
		if seen[h.Message.ID] {
			continue
		}
		seen[h.Message.ID] = true
		merged = append(merged, h)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		si, sj := scoreOf(merged[i]), scoreOf(merged[j])
		if si != sj {
			return si > sj
		}
		return merged[i].Message.SequenceID > merged[j].Message.SequenceID
	})

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func scoreOf(h SearchHit) float64 {
	if h.Score == nil {
		return 0
	}
	return *h.Score
}

// Render formats a search hit for prompt presentation: timestamp (in loc,
// if non-nil), role, similarity score when present, and content truncated
// to at most 500 bytes, cut back to a UTF-8 rune boundary.
func Render(h SearchHit, loc *time.Location) string {
	ts := h.Message.CreatedAt
	if loc != nil {
		ts = ts.In(loc)
	}
	content := truncateUTF8(h.Message.Content, maxPreviewLen)

	if h.Score != nil {
		return fmt.Sprintf("[%s] %s (score=%.3f): %s", ts.Format(time.RFC3339), h.Message.Role, *h.Score, content)
	}
	return fmt.Sprintf("[%s] %s: %s", ts.Format(time.RFC3339), h.Message.Role, content)
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	b := []byte(s)[:limit]
	for len(b) > 0 && !utf8.RuneStart(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return string(b)
}

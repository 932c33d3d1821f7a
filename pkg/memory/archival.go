package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// ArchivalHit pairs an archival passage's content with its similarity
// score.
type ArchivalHit struct {
	ID      string
	Content string
	Tags    []string
	Score   float64
}

// ArchivalManager is a thin layer over Passages (spec §4.3.3).
type ArchivalManager struct {
	passages *store.PassageRepo
	embed    embedding.Client
	agentID  string
}

// NewArchivalManager constructs an ArchivalManager for one agent.
func NewArchivalManager(passages *store.PassageRepo, embed embedding.Client, agentID string) *ArchivalManager {
	return &ArchivalManager{passages: passages, embed: embed, agentID: agentID}
}

// Insert embeds content then persists it as a new passage.
func (a *ArchivalManager) Insert(ctx context.Context, content string, tags []string) (string, error) {
	vec, err := a.embed.Embed(ctx, content)
	if err != nil {
		return "", err
	}
	p, err := a.passages.Insert(ctx, a.agentID, content, tags, vec)
	if err != nil {
		return "", fmt.Errorf("archival insert: %w", err)
	}
	return p.ID, nil
}

// Search embeds query and retrieves the k nearest passages, optionally
// filtered by tag intersection.
func (a *ArchivalManager) Search(ctx context.Context, query string, k int, tags []string) ([]ArchivalHit, error) {
	vec, err := a.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	neighbors, err := a.passages.SearchByEmbedding(ctx, a.agentID, vec, k, tags)
	if err != nil {
		return nil, fmt.Errorf("archival search: %w", err)
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
	rows, err := a.passages.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]ArchivalHit, len(rows))
	for i, p := range rows {
		hits[i] = ArchivalHit{ID: p.ID, Content: p.Content, Tags: p.Tags, Score: scoreByID[p.ID]}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// Count returns the number of archival passages stored for this agent,
// exposed for prompt metadata.
func (a *ArchivalManager) Count(ctx context.Context) (int, error) {
	return a.passages.Count(ctx, a.agentID)
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/passage"
	"github.com/codeready-toolchain/sage/pkg/pgvec"
	"github.com/google/uuid"
)

// PassageRepo is the repository over the Passage (archival memory) entity.
type PassageRepo struct {
	client *ent.Client
	db     *sql.DB
}

// Insert persists a new archival passage with its embedding.
func (r *PassageRepo) Insert(ctx context.Context, agentID, content string, tags []string, vec pgvec.Vector) (*ent.Passage, error) {
	create := r.client.Passage.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetContent(content).
		SetEmbedding(vec)
	if len(tags) > 0 {
		create.SetTags(tags)
	}
	p, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert passage: %w", err)
	}
	return p, nil
}

// GetByIDs returns passages for the given ids, order unspecified.
func (r *PassageRepo) GetByIDs(ctx context.Context, ids []string) ([]*ent.Passage, error) {
	passages, err := r.client.Passage.Query().Where(passage.IDIn(ids...)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get passages by ids: %w", err)
	}
	return passages, nil
}

// Count returns the number of passages stored for agentID.
func (r *PassageRepo) Count(ctx context.Context, agentID string) (int, error) {
	n, err := r.client.Passage.Query().Where(passage.AgentID(agentID)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// SearchByEmbedding returns the k nearest passages, optionally filtered to
// those whose tags intersect tagsFilter.
func (r *PassageRepo) SearchByEmbedding(ctx context.Context, agentID string, q pgvec.Vector, k int, tagsFilter []string) ([]pgvec.Neighbor, error) {
	return pgvec.QueryNearest(ctx, r.db, pgvec.NearestOpts{
		Table: "passages", AgentCol: "agent_id", IDCol: "passage_id", VectorCol: "embedding",
		AgentID: agentID, Query: q, K: k, TagsCol: "tags", TagsFilter: tagsFilter,
	})
}

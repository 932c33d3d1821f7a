package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/summary"
	"github.com/codeready-toolchain/sage/pkg/pgvec"
	"github.com/google/uuid"
)

// SummaryRepo is the repository over the Summary entity — one link in an
// agent's append-only summary chain.
type SummaryRepo struct {
	client *ent.Client
	db     *sql.DB
}

// Insert appends a new summary, optionally chained to the previous latest.
func (r *SummaryRepo) Insert(ctx context.Context, agentID string, fromSeq, toSeq int64, content string, vec pgvec.Vector, previousSummaryID *string) (*ent.Summary, error) {
	create := r.client.Summary.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetFromSequenceID(fromSeq).
		SetToSequenceID(toSeq).
		SetContent(content).
		SetEmbedding(vec)
	if previousSummaryID != nil {
		create.SetPreviousSummaryID(*previousSummaryID)
	}
	s, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return s, nil
}

// GetLatest returns the most recent summary for agentID, nil if none exists.
func (r *SummaryRepo) GetLatest(ctx context.Context, agentID string) (*ent.Summary, error) {
	s, err := r.client.Summary.Query().
		Where(summary.AgentID(agentID)).
		Order(ent.Desc(summary.FieldToSequenceID)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest summary for agent %s: %w", agentID, err)
	}
	return s, nil
}

// GetByIDs returns summaries for the given ids, order unspecified.
func (r *SummaryRepo) GetByIDs(ctx context.Context, ids []string) ([]*ent.Summary, error) {
	summaries, err := r.client.Summary.Query().Where(summary.IDIn(ids...)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get summaries by ids: %w", err)
	}
	return summaries, nil
}

// SearchByEmbedding returns the k nearest summaries by cosine distance.
func (r *SummaryRepo) SearchByEmbedding(ctx context.Context, agentID string, q pgvec.Vector, k int) ([]pgvec.Neighbor, error) {
	return pgvec.QueryNearest(ctx, r.db, pgvec.NearestOpts{
		Table: "summaries", AgentCol: "agent_id", IDCol: "summary_id", VectorCol: "embedding",
		AgentID: agentID, Query: q, K: k,
	})
}

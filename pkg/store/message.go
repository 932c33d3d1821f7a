package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/message"
	"github.com/codeready-toolchain/sage/pkg/pgvec"
	"github.com/google/uuid"
)

// MessageRepo is the repository over the Message entity.
type MessageRepo struct {
	client *ent.Client
	db     *sql.DB // underlying connection, for pgvec cosine-distance queries
}

// InsertOpts carries the optional fields a message insert may set.
type InsertOpts struct {
	UserID         *string
	ToolCalls      []map[string]any
	ToolResults    []map[string]any
	AttachmentText *string
	Embedding      pgvec.Vector // nil = zero embedding, filled in asynchronously later
}

// Insert persists a message at the next sequence_id for agentID.
func (r *MessageRepo) Insert(ctx context.Context, agentID string, role message.Role, content string, opts InsertOpts) (*ent.Message, error) {
	seq, err := r.MaxSequence(ctx, agentID)
	if err != nil {
		return nil, err
	}

	create := r.client.Message.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetRole(role).
		SetContent(content).
		SetSequenceID(seq + 1)

	if opts.UserID != nil {
		create.SetUserID(*opts.UserID)
	}
	if opts.ToolCalls != nil {
		create.SetToolCalls(opts.ToolCalls)
	}
	if opts.ToolResults != nil {
		create.SetToolResults(opts.ToolResults)
	}
	if opts.AttachmentText != nil {
		create.SetAttachmentText(*opts.AttachmentText)
	}
	if opts.Embedding != nil {
		create.SetEmbedding(opts.Embedding)
	}

	m, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// UpdateEmbedding fills in a message's embedding after asynchronous computation.
func (r *MessageRepo) UpdateEmbedding(ctx context.Context, id string, vec pgvec.Vector) error {
	if _, err := r.client.Message.UpdateOneID(id).SetEmbedding(vec).Save(ctx); err != nil {
		return fmt.Errorf("update message embedding %s: %w", id, err)
	}
	return nil
}

// GetByIDs returns messages ordered by sequence_id ascending.
func (r *MessageRepo) GetByIDs(ctx context.Context, ids []string) ([]*ent.Message, error) {
	msgs, err := r.client.Message.Query().
		Where(message.IDIn(ids...)).
		Order(ent.Asc(message.FieldSequenceID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messages by ids: %w", err)
	}
	return msgs, nil
}

// GetRecent returns the n most recent messages for agentID, newest-first
// internally but returned in chronological order.
func (r *MessageRepo) GetRecent(ctx context.Context, agentID string, n int) ([]*ent.Message, error) {
	msgs, err := r.client.Message.Query().
		Where(message.AgentID(agentID)).
		Order(ent.Desc(message.FieldSequenceID)).
		Limit(n).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recent messages: %w", err)
	}
	reverse(msgs)
	return msgs, nil
}

// GetAfterSequence returns up to n messages with sequence_id > seq, in
// chronological order. n<=0 means unbounded.
func (r *MessageRepo) GetAfterSequence(ctx context.Context, agentID string, seq int64, n int) ([]*ent.Message, error) {
	q := r.client.Message.Query().
		Where(message.AgentID(agentID), message.SequenceIDGT(seq)).
		Order(ent.Asc(message.FieldSequenceID))
	if n > 0 {
		q = q.Limit(n)
	}
	msgs, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messages after sequence %d: %w", seq, err)
	}
	return msgs, nil
}

// Count returns the total number of messages for agentID.
func (r *MessageRepo) Count(ctx context.Context, agentID string) (int, error) {
	n, err := r.client.Message.Query().Where(message.AgentID(agentID)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// MaxSequence returns the highest sequence_id used so far for agentID, 0 if none.
func (r *MessageRepo) MaxSequence(ctx context.Context, agentID string) (int64, error) {
	last, err := r.client.Message.Query().
		Where(message.AgentID(agentID)).
		Order(ent.Desc(message.FieldSequenceID)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("max sequence for agent %s: %w", agentID, err)
	}
	return last.SequenceID, nil
}

// SearchByEmbedding returns the k nearest messages by cosine distance.
func (r *MessageRepo) SearchByEmbedding(ctx context.Context, agentID string, q pgvec.Vector, k int) ([]pgvec.Neighbor, error) {
	return pgvec.QueryNearest(ctx, r.db, pgvec.NearestOpts{
		Table: "messages", AgentCol: "agent_id", IDCol: "message_id", VectorCol: "embedding",
		AgentID: agentID, Query: q, K: k,
	})
}

func reverse(msgs []*ent.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

package store

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/memoryblock"
	"github.com/google/uuid"
)

// BlockRepo is the repository over the MemoryBlock entity.
type BlockRepo struct {
	client *ent.Client
}

// LoadByAgent returns every block belonging to agentID.
func (r *BlockRepo) LoadByAgent(ctx context.Context, agentID string) ([]*ent.MemoryBlock, error) {
	blocks, err := r.client.MemoryBlock.Query().
		Where(memoryblock.AgentID(agentID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blocks for agent %s: %w", agentID, err)
	}
	return blocks, nil
}

// Get returns a single block by (agent, label).
func (r *BlockRepo) Get(ctx context.Context, agentID, label string) (*ent.MemoryBlock, error) {
	b, err := r.client.MemoryBlock.Query().
		Where(memoryblock.AgentID(agentID), memoryblock.Label(label)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get block %s/%s: %w", agentID, label, err)
	}
	return b, nil
}

// Upsert inserts a new block, failing if the (agent, label) pair already
// exists — its callers (BlockManager.Add and the default-block seeding)
// check their block cache first.
func (r *BlockRepo) Upsert(ctx context.Context, agentID, label, description, value string, limit int, readOnly bool) (*ent.MemoryBlock, error) {
	b, err := r.client.MemoryBlock.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetLabel(label).
		SetDescription(description).
		SetValue(value).
		SetLimit(limit).
		SetReadOnly(readOnly).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create block %s/%s: %w", agentID, label, err)
	}
	return b, nil
}

// UpdateValue overwrites a block's value, bumping version and updated_at.
func (r *BlockRepo) UpdateValue(ctx context.Context, blockID, value string) (*ent.MemoryBlock, error) {
	b, err := r.client.MemoryBlock.UpdateOneID(blockID).
		SetValue(value).
		AddVersion(1).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("update block %s: %w", blockID, err)
	}
	return b, nil
}

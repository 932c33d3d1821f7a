package store

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/chatcontext"
	"github.com/google/uuid"
)

// ChatContextRepo is the repository over the ChatContext entity — the
// identity→agent binding pkg/agentmanager resolves on every lookup.
type ChatContextRepo struct {
	client *ent.Client
}

// GetByIdentity finds the ChatContext for (messenger, identity), if any.
func (r *ChatContextRepo) GetByIdentity(ctx context.Context, messenger, identity string) (*ent.ChatContext, error) {
	cc, err := r.client.ChatContext.Query().
		Where(chatcontext.Messenger(messenger), chatcontext.Identity(identity)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat context by identity: %w", err)
	}
	return cc, nil
}

// Get returns one ChatContext by id (== agent_id), nil if not found — the
// Agent Manager's reverse lookup for the Scheduler (spec §4.6, §4.7).
func (r *ChatContextRepo) Get(ctx context.Context, agentID string) (*ent.ChatContext, error) {
	cc, err := r.client.ChatContext.Get(ctx, agentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat context %s: %w", agentID, err)
	}
	return cc, nil
}

// ContextCreateOpts carries a new ChatContext's fields beyond the identity
// key.
type ContextCreateOpts struct {
	WorkspacePath string
	Kind          chatcontext.Kind
	DisplayName   string // empty = not set
}

// Create allocates a new ChatContext for a previously-unseen identity.
func (r *ChatContextRepo) Create(ctx context.Context, messenger, identity string, o ContextCreateOpts) (*ent.ChatContext, error) {
	kind := o.Kind
	if kind == "" {
		kind = chatcontext.KindDirect
	}
	create := r.client.ChatContext.Create().
		SetID(uuid.NewString()).
		SetMessenger(messenger).
		SetIdentity(identity).
		SetWorkspacePath(o.WorkspacePath).
		SetKind(kind)
	if o.DisplayName != "" {
		create.SetDisplayName(o.DisplayName)
	}
	cc, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat context: %w", err)
	}
	return cc, nil
}

// TouchLastInteraction updates last_interaction_at to now.
func (r *ChatContextRepo) TouchLastInteraction(ctx context.Context, agentID string) error {
	n, err := r.client.ChatContext.Update().
		Where(chatcontext.ID(agentID)).
		SetLastInteractionAt(time.Now().UTC()).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("touch last interaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("touch last interaction: context %s not found", agentID)
	}
	return nil
}

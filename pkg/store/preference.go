package store

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/preference"
	"github.com/google/uuid"
)

// PreferenceRepo is the repository over the Preference entity.
type PreferenceRepo struct {
	client *ent.Client
}

// Get returns a single preference value, nil if unset.
func (r *PreferenceRepo) Get(ctx context.Context, agentID, key string) (*ent.Preference, error) {
	p, err := r.client.Preference.Query().
		Where(preference.AgentID(agentID), preference.Key(key)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preference %s/%s: %w", agentID, key, err)
	}
	return p, nil
}

// GetAll returns every preference set for agentID.
func (r *PreferenceRepo) GetAll(ctx context.Context, agentID string) ([]*ent.Preference, error) {
	prefs, err := r.client.Preference.Query().Where(preference.AgentID(agentID)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all preferences for agent %s: %w", agentID, err)
	}
	return prefs, nil
}

// Upsert sets a preference value, creating it if absent.
func (r *PreferenceRepo) Upsert(ctx context.Context, agentID, key, value string) (*ent.Preference, error) {
	existing, err := r.Get(ctx, agentID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p, err := r.client.Preference.UpdateOneID(existing.ID).SetValue(value).Save(ctx)
		if err != nil {
			return nil, fmt.Errorf("update preference %s/%s: %w", agentID, key, err)
		}
		return p, nil
	}
	p, err := r.client.Preference.Create().
		SetID(uuid.NewString()).
		SetAgentID(agentID).
		SetKey(key).
		SetValue(value).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create preference %s/%s: %w", agentID, key, err)
	}
	return p, nil
}

// Delete removes a preference, a no-op if it doesn't exist.
func (r *PreferenceRepo) Delete(ctx context.Context, agentID, key string) error {
	n, err := r.client.Preference.Delete().
		Where(preference.AgentID(agentID), preference.Key(key)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete preference %s/%s: %w", agentID, key, err)
	}
	_ = n
	return nil
}

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/pkg/sageerr"
	"github.com/codeready-toolchain/sage/pkg/store"
	"golang.org/x/text/language"
)

// Known preference keys carrying a validation rule (spec §3); everything
// else passes through verbatim for forward compatibility.
const (
	PrefTimezone    = "timezone"
	PrefLanguage    = "language"
	PrefDisplayName = "display_name"
)

const maxDisplayNameLen = 100

// PreferenceManager wraps the Preference repository (spec §4.3.5).
type PreferenceManager struct {
	repo    *store.PreferenceRepo
	agentID string
}

// NewPreferenceManager constructs a PreferenceManager for one agent.
func NewPreferenceManager(repo *store.PreferenceRepo, agentID string) *PreferenceManager {
	return &PreferenceManager{repo: repo, agentID: agentID}
}

// Set validates key/value against the known-key rules, then upserts.
// Unknown keys pass through unvalidated.
func (p *PreferenceManager) Set(ctx context.Context, key, value string) error {
	if err := validatePreference(key, value); err != nil {
		return err
	}
	_, err := p.repo.Upsert(ctx, p.agentID, key, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// Get returns the raw value for key, "" if unset.
func (p *PreferenceManager) Get(ctx context.Context, key string) (string, error) {
	pref, err := p.repo.Get(ctx, p.agentID, key)
	if err != nil {
		return "", err
	}
	if pref == nil {
		return "", nil
	}
	return pref.Value, nil
}

// GetAll returns every preference set for this agent.
func (p *PreferenceManager) GetAll(ctx context.Context) ([]*ent.Preference, error) {
	return p.repo.GetAll(ctx, p.agentID)
}

// Delete removes a preference, a no-op if unset.
func (p *PreferenceManager) Delete(ctx context.Context, key string) error {
	return p.repo.Delete(ctx, p.agentID, key)
}

// Timezone parses the timezone preference into an IANA *time.Location, nil
// if unset.
func (p *PreferenceManager) Timezone(ctx context.Context) (*time.Location, error) {
	tz, err := p.Get(ctx, PrefTimezone)
	if err != nil || tz == "" {
		return nil, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return loc, nil
}

func validatePreference(key, value string) error {
	switch key {
	case PrefTimezone:
		if _, err := time.LoadLocation(value); err != nil {
			return &sageerr.ValidationError{Field: key, Value: value, Message: "not a valid IANA timezone"}
		}
	case PrefLanguage:
		if _, err := language.Parse(value); err != nil {
			return &sageerr.ValidationError{Field: key, Value: value, Message: "not a valid ISO-639-1 language tag"}
		}
	case PrefDisplayName:
		if value == "" || len(value) > maxDisplayNameLen {
			return &sageerr.ValidationError{Field: key, Value: value, Message: "must be non-empty and at most 100 characters"}
		}
	}
	return nil
}

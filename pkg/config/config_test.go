package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MESSENGER", "noop")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestLoadFromEnvRejectsUnknownMessenger(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sage")
	t.Setenv("MESSENGER", "carrier-pigeon")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sage")
	t.Setenv("MESSENGER", "slack")
	t.Setenv("ALLOWED_USERS", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, MessengerSlack, cfg.Messenger)
	assert.Equal(t, "8080", cfg.HealthPort)
	assert.True(t, cfg.Allowed("anyone"))
}

func TestParseAllowedUsers(t *testing.T) {
	assert.Nil(t, parseAllowedUsers(""))
	assert.Nil(t, parseAllowedUsers("*"))
	assert.Equal(t, []string{"u1", "u2"}, parseAllowedUsers(" u1 , u2 "))
}

func TestConfigAllowedWithExplicitList(t *testing.T) {
	cfg := &Config{AllowedUsers: []string{"alice", "bob"}}
	assert.True(t, cfg.Allowed("alice"))
	assert.False(t, cfg.Allowed("carol"))
}

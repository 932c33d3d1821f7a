package agentmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceFor(t *testing.T) {
	m := &Manager{workspace: "/data/workspaces"}

	assert.Equal(t, "/data/workspaces/slack/u123-abc", m.workspaceFor("slack", "U123-abc"))
	assert.Equal(t, "/data/workspaces/slack/weird-chars", m.workspaceFor("slack", "weird!!chars"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "slack:U123", cacheKey("slack", "U123"))
}

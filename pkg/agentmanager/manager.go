// Package agentmanager implements the Agent Manager (spec §4.6):
// identity -> agent resolution, lazy construction, and an in-memory cache
// of live Agent handles keyed by (messenger, identity) and by agent id.
//
// Mirrors the original agent manager almost directly: a ChatContext row per
// identity, a coarse-locked cache of constructed agents, idempotent
// first-touch construction, and a reverse lookup the Scheduler uses to
// deliver a due task back to the identity that owns it.
package agentmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/chatcontext"
	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/memory"
	"github.com/codeready-toolchain/sage/pkg/searchmcp"
	"github.com/codeready-toolchain/sage/pkg/store"
	"github.com/codeready-toolchain/sage/pkg/tools"
	"github.com/codeready-toolchain/sage/pkg/transport"
)

// cachedAgent bundles a live Agent with the per-agent exclusive guard (spec
// §5): the event loop holds this lock while it runs a Step Loop for this
// agent, whether for an inbound message or a scheduled Message task, so two
// Step Loops never interleave against the same memory state. The Scheduler
// itself never takes it.
type cachedAgent struct {
	mu        sync.Mutex
	agent     *agent.Agent
	messenger string
	identity  string
}

// Lock acquires the per-agent exclusive guard. Callers must Unlock.
func (c *cachedAgent) Lock() { c.mu.Lock() }

// Unlock releases the per-agent exclusive guard.
func (c *cachedAgent) Unlock() { c.mu.Unlock() }

// Agent returns the underlying Agent handle. Only safe to use while holding
// the lock.
func (c *cachedAgent) Agent() *agent.Agent { return c.agent }

// Manager resolves identities to Agent handles, constructing and caching
// them lazily.
type Manager struct {
	store     *store.Store
	embed     embedding.Client
	llm       agent.LLMClient
	memCfg    config.MemoryConfig
	workspace string
	webSearch *searchmcp.Client // nil disables web_search
	waker     tools.Waker       // nil degrades schedule_task's wake-on-insert nudge to no-op

	mu        sync.Mutex
	byKey     map[string]*cachedAgent // "messenger:identity"
	byAgentID map[string]*cachedAgent
}

// Opts carries Manager's construction-time dependencies.
type Opts struct {
	Store         *store.Store
	Embed         embedding.Client
	LLM           agent.LLMClient
	MemoryConfig  config.MemoryConfig
	WorkspacePath string
	WebSearch     *searchmcp.Client // optional
	Waker         tools.Waker       // optional
}

// New constructs a Manager. All cache lookups start empty; agents are built
// on first touch.
func New(o Opts) *Manager {
	return &Manager{
		store:     o.Store,
		embed:     o.Embed,
		llm:       o.LLM,
		memCfg:    o.MemoryConfig,
		workspace: o.WorkspacePath,
		webSearch: o.WebSearch,
		waker:     o.Waker,
		byKey:     make(map[string]*cachedAgent),
		byAgentID: make(map[string]*cachedAgent),
	}
}

func cacheKey(messenger, identity string) string { return messenger + ":" + identity }

// NewContext carries the fields needed to seed a ChatContext the first time
// an identity is seen; ignored once the ChatContext already exists.
type NewContext struct {
	Kind        transport.ConversationKind
	DisplayName string
}

// ForIdentity resolves (messenger, identity) to its cached Agent, lazily
// constructing one on first touch (spec §4.6 step 1-3). Concurrent
// first-touches for the same identity are serialized by the Manager's
// coarse lock, so construction happens exactly once; the loser of the race
// gets the winner's cached result rather than constructing a duplicate.
func (m *Manager) ForIdentity(ctx context.Context, messenger, identity string, nc NewContext) (*cachedAgent, error) {
	key := cacheKey(messenger, identity)

	m.mu.Lock()
	if c, ok := m.byKey[key]; ok {
		m.mu.Unlock()
		return c, nil
	}
	// Hold the lock across construction: a coarse, compare-and-set-style
	// guard is simpler than per-key locks and construction only happens
	// once per identity for the life of the process.
	defer m.mu.Unlock()

	cc, err := m.store.Contexts.GetByIdentity(ctx, messenger, identity)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %s/%s: %w", messenger, identity, err)
	}
	if cc == nil {
		cc, err = m.store.Contexts.Create(ctx, messenger, identity, store.ContextCreateOpts{
			WorkspacePath: m.workspaceFor(messenger, identity),
			Kind:          chatcontext.Kind(nc.Kind),
			DisplayName:   nc.DisplayName,
		})
		if err != nil {
			return nil, fmt.Errorf("create chat context for %s/%s: %w", messenger, identity, err)
		}
	}

	c, err := m.build(ctx, cc)
	if err != nil {
		return nil, err
	}
	m.byKey[key] = c
	m.byAgentID[cc.ID] = c
	return c, nil
}

// build assembles the full per-agent stack for an existing ChatContext row:
// the Memory Hierarchy handle (creating default blocks if this is the
// agent's first construction), a fresh agent-scoped Tool Registry, and the
// Agent itself.
func (m *Manager) build(ctx context.Context, cc *ent.ChatContext) (*cachedAgent, error) {
	id, err := uuid.Parse(cc.ID)
	if err != nil {
		return nil, fmt.Errorf("chat context id %q is not a uuid: %w", cc.ID, err)
	}

	mem, err := memory.NewManager(ctx, m.store, m.embed, m.llm, cc.ID, m.memCfg)
	if err != nil {
		return nil, fmt.Errorf("build memory manager for agent %s: %w", cc.ID, err)
	}

	if err := ensureWorkspace(cc.WorkspacePath); err != nil {
		return nil, err
	}

	registry := tools.Build(tools.BuildOpts{
		Memory:        mem,
		Summaries:     m.store.Summaries,
		Embed:         m.embed,
		Tasks:         m.store.Tasks,
		WorkspacePath: cc.WorkspacePath,
		WebSearch:     m.webSearch,
		Waker:         m.waker,
	})

	a := agent.NewAgent(id, m.llm, registry, mem)
	return &cachedAgent{agent: a, messenger: cc.Messenger, identity: cc.Identity}, nil
}

// IdentityFor is the Scheduler's reverse lookup (spec §4.7 Dispatch loop):
// given an agent id, resolve the (messenger, identity) to deliver a due
// task to. Checks the cache first; falls back to the store for an agent
// that has a pending scheduled task but hasn't been touched since the
// process started (e.g. right after a restart).
func (m *Manager) IdentityFor(ctx context.Context, agentID string) (messenger, identity string, err error) {
	m.mu.Lock()
	if c, ok := m.byAgentID[agentID]; ok {
		m.mu.Unlock()
		return c.messenger, c.identity, nil
	}
	m.mu.Unlock()

	cc, err := m.store.Contexts.Get(ctx, agentID)
	if err != nil {
		return "", "", fmt.Errorf("identity for agent %s: %w", agentID, err)
	}
	if cc == nil {
		return "", "", fmt.Errorf("identity for agent %s: chat context not found", agentID)
	}

	c, err := m.build(ctx, cc)
	if err != nil {
		return "", "", err
	}
	m.mu.Lock()
	m.byKey[cacheKey(cc.Messenger, cc.Identity)] = c
	m.byAgentID[cc.ID] = c
	m.mu.Unlock()
	return cc.Messenger, cc.Identity, nil
}

// ByAgentID returns the cached Agent for agentID, constructing it via
// IdentityFor's fallback path if it isn't cached yet.
func (m *Manager) ByAgentID(ctx context.Context, agentID string) (*cachedAgent, error) {
	m.mu.Lock()
	c, ok := m.byAgentID[agentID]
	m.mu.Unlock()
	if ok {
		return c, nil
	}
	if _, _, err := m.IdentityFor(ctx, agentID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byAgentID[agentID], nil
}

var nonWordRE = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// workspaceFor derives a deterministic per-identity workspace directory. It
// does not depend on the not-yet-allocated agent id, so it can be computed
// before the ChatContext row exists.
func (m *Manager) workspaceFor(messenger, identity string) string {
	slug := nonWordRE.ReplaceAllString(strings.ToLower(identity), "-")
	return filepath.Join(m.workspace, messenger, slug)
}

func ensureWorkspace(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create workspace %s: %w", path, err)
	}
	return nil
}

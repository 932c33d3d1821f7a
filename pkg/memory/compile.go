package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// Manager is the composite Memory Hierarchy handle a single agent owns: the
// Block Manager, Recall Manager, Archival Manager, Compaction Engine, and
// Preferences view bound to one agent_id. It implements agent.MemoryView.
type Manager struct {
	AgentID string

	Blocks    *BlockManager
	Recall    *RecallManager
	Archival  *ArchivalManager
	Prefs     *PreferenceManager
	Compactor *Compactor

	summaries *store.SummaryRepo
	messages  *store.MessageRepo

	minMessagesInContext int
}

var _ agent.MemoryView = (*Manager)(nil)

// NewManager constructs the full Memory Hierarchy for one agent, seeding
// default blocks if this is the agent's first construction (spec §4.6 step
// 3: "build a MemoryManager bound to agent_id — this also creates default
// blocks if absent").
func NewManager(ctx context.Context, s *store.Store, embed embedding.Client, llm agent.LLMClient, agentID string, cfg config.MemoryConfig) (*Manager, error) {
	blocks, err := NewBlockManager(ctx, s.Blocks, agentID, cfg)
	if err != nil {
		return nil, fmt.Errorf("new memory manager: %w", err)
	}

	return &Manager{
		AgentID:              agentID,
		Blocks:               blocks,
		Recall:               NewRecallManager(s.Messages, embed, agentID),
		Archival:             NewArchivalManager(s.Passages, embed, agentID),
		Prefs:                NewPreferenceManager(s.Prefs, agentID),
		Compactor:            NewCompactor(llm, embed, s.Messages, s.Summaries, cfg),
		summaries:            s.Summaries,
		messages:             s.Messages,
		minMessagesInContext: cfg.MinMessagesInContext,
	}, nil
}

// BuildContextView assembles the compiled prompt inputs for a single Step
// call (spec §4.5.1, §4.3.4's context-assembly contract).
func (m *Manager) BuildContextView(ctx context.Context) (agent.ContextView, error) {
	latest, err := m.summaries.GetLatest(ctx, m.AgentID)
	if err != nil {
		return agent.ContextView{}, fmt.Errorf("build context view: %w", err)
	}

	var msgs []*ent.Message
	var previousSummary string
	if latest != nil {
		previousSummary = latest.Content
		msgs, err = m.messages.GetAfterSequence(ctx, m.AgentID, latest.ToSequenceID, 0)
		if err != nil {
			return agent.ContextView{}, fmt.Errorf("build context view: %w", err)
		}
		if len(msgs) < m.minMessagesInContext {
			msgs, err = m.messages.GetRecent(ctx, m.AgentID, m.minMessagesInContext)
			if err != nil {
				return agent.ContextView{}, fmt.Errorf("build context view: %w", err)
			}
		}
	} else {
		// No summary yet: deliberately unbounded, so the first compaction
		// has enough material to summarize (spec §4.3.4).
		msgs, err = m.messages.GetAfterSequence(ctx, m.AgentID, 0, 0)
		if err != nil {
			return agent.ContextView{}, fmt.Errorf("build context view: %w", err)
		}
	}

	count, err := m.messages.Count(ctx, m.AgentID)
	if err != nil {
		return agent.ContextView{}, fmt.Errorf("build context view: %w", err)
	}

	loc, err := m.Prefs.Timezone(ctx)
	if err != nil {
		loc = nil
	}

	return agent.ContextView{
		PersonaBlock:           m.Blocks.Get(LabelPersona).Value,
		HumanBlock:             m.Blocks.Get(LabelHuman).Value,
		MemoryMetadata:         m.renderMetadata(count),
		PreviousContextSummary: previousSummary,
		RecentConversation:     renderConversation(msgs, loc),
		IsFirstTimeUser:        count == 0 && latest == nil,
	}, nil
}

func (m *Manager) renderMetadata(messageCount int) string {
	var lastModified time.Time
	for _, b := range m.Blocks.All() {
		if b.LastModified.After(lastModified) {
			lastModified = b.LastModified
		}
	}
	return fmt.Sprintf("messages=%d blocks_last_modified=%s", messageCount, lastModified.Format(time.RFC3339))
}

// renderConversation formats a context view's messages as the recent
// conversation block injected into the step input.
func renderConversation(msgs []*ent.Message, loc *time.Location) string {
	var sb strings.Builder
	for _, m := range msgs {
		ts := m.CreatedAt
		if loc != nil {
			ts = ts.In(loc)
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", ts.Format(time.RFC3339), m.Role, m.Content)
	}
	return sb.String()
}

// Package agent implements the Agent Step Loop: one typed LLM call per
// step, tool dispatch, correction on malformed output, and the ephemeral
// tool-result buffer that carries state from one step to the next.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxLLMRetries bounds the attempts made to obtain a well-formed response
// from the LLM for a single step, including attempts that required a
// correction pass.
const MaxLLMRetries = 3

// RetryBackoff is the delay between retry attempts after a non-parse
// failure (network error, transient provider error).
const RetryBackoff = 1 * time.Second

// MaxSteps bounds the number of Step Loop iterations the event loop runs
// per incoming message before giving up (spec §4.5.3).
const MaxSteps = 10

// MemoryView is the read/write surface the Step Loop needs from the
// Memory Hierarchy. Defined here (rather than imported from pkg/memory)
// to avoid a circular import between pkg/agent and pkg/memory.
type MemoryView interface {
	// BuildContextView assembles the compiled prompt inputs: core-memory
	// blocks, recent conversation, previous summary, and metadata.
	BuildContextView(ctx context.Context) (ContextView, error)
}

// ContextView is the compiled set of prompt inputs produced by the Memory
// Hierarchy for a single step (spec §4.5.1).
type ContextView struct {
	PersonaBlock           string
	HumanBlock             string
	MemoryMetadata         string
	PreviousContextSummary string
	RecentConversation     string
	IsFirstTimeUser        bool
}

// ToolResultRecord is one tool invocation's outcome, held in the agent's
// ephemeral buffer until it is folded into the next step's input.
type ToolResultRecord struct {
	Name    string
	Args    map[string]string
	Success bool
	Output  string
}

// Agent is the per-identity conversational agent: an LLM client, a tool
// registry, and a view onto that identity's Memory Hierarchy, plus the
// ephemeral tool-result buffer that survives across steps of a single
// incoming message (cleared at step 0 of the next message).
//
// Agent instances are long-lived and cached by pkg/agentmanager; callers
// must serialize access to a given Agent (the per-agent exclusive guard
// lives in agentmanager, not here — see spec §5).
type Agent struct {
	ID    uuid.UUID
	LLM   LLMClient
	Tools ToolExecutor
	Mem   MemoryView

	mu      sync.Mutex
	pending []ToolResultRecord
}

// NewAgent constructs an Agent bound to the given identity and
// dependencies. Panics if any dependency is nil (construction-time
// programming error in the factory, mirroring the teacher's
// NewBaseAgent nil-controller panic).
func NewAgent(id uuid.UUID, llm LLMClient, tools ToolExecutor, mem MemoryView) *Agent {
	if llm == nil {
		panic("NewAgent: llm must not be nil")
	}
	if tools == nil {
		panic("NewAgent: tools must not be nil")
	}
	if mem == nil {
		panic("NewAgent: mem must not be nil")
	}
	return &Agent{ID: id, LLM: llm, Tools: tools, Mem: mem}
}

// ResetBuffer clears the ephemeral tool-result buffer. Called by the
// event loop at step 0 of each newly received message (spec §4.5.2.1).
func (a *Agent) ResetBuffer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
}

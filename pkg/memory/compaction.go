package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/sageerr"
	"github.com/codeready-toolchain/sage/pkg/store"

	"golang.org/x/sync/singleflight"
)

// summary is the three-section structured output the summarization
// sub-call returns (spec §4.3.4): task/overview, current state, next
// steps, rendered into a single ≤100-word content string.
type summary struct {
	TaskOverview string `json:"task_overview"`
	CurrentState string `json:"current_state"`
	NextSteps    string `json:"next_steps"`
}

func (s summary) render() string {
	return fmt.Sprintf("Task/Overview: %s\nCurrent State: %s\nNext Steps: %s", s.TaskOverview, s.CurrentState, s.NextSteps)
}

// Compactor is the Summaries & Compaction Engine (spec §4.3.4): a
// process-wide single-flight lock per agent guarding a summarize-and-chain
// operation, grounded on the teacher's preference for
// golang.org/x/sync/singleflight over hand-rolled dedup locks.
type Compactor struct {
	llm       agent.LLMClient
	embed     embedding.Client
	messages  *store.MessageRepo
	summaries *store.SummaryRepo
	cfg       config.MemoryConfig

	group singleflight.Group
}

// NewCompactor constructs a Compactor bound to the given dependencies.
func NewCompactor(llm agent.LLMClient, embed embedding.Client, messages *store.MessageRepo, summaries *store.SummaryRepo, cfg config.MemoryConfig) *Compactor {
	return &Compactor{llm: llm, embed: embed, messages: messages, summaries: summaries, cfg: cfg}
}

// ShouldCompact estimates the current context view's token count from a
// cheap character-based heuristic and reports whether it crosses
// threshold_ratio * context_window (spec §4.3.4 Trigger).
func (c *Compactor) ShouldCompact(previousSummary string, messageChars int) bool {
	estimatedTokens := float64(len(previousSummary)+messageChars) / c.cfg.CharsPerToken
	threshold := c.cfg.ThresholdRatio * float64(c.cfg.ContextWindow)
	return estimatedTokens > threshold
}

// Compact runs (or joins an in-flight) compaction for agentID. Concurrent
// callers collapse onto a single execution via singleflight; a caller that
// joins rather than leads still receives the real result.
func (c *Compactor) Compact(ctx context.Context, agentID string) error {
	_, err, _ := c.group.Do(agentID, func() (any, error) {
		return nil, c.compact(ctx, agentID)
	})
	return err
}

func (c *Compactor) compact(ctx context.Context, agentID string) error {
	latest, err := c.summaries.GetLatest(ctx, agentID)
	if err != nil {
		return fmt.Errorf("compaction: %w", err)
	}

	var boundary int64
	var previousSummaryID *string
	var previousSummaryText string
	if latest != nil {
		boundary = latest.ToSequenceID
		id := latest.ID
		previousSummaryID = &id
		previousSummaryText = latest.Content
	}

	candidates, err := c.messages.GetAfterSequence(ctx, agentID, boundary, 0)
	if err != nil {
		return fmt.Errorf("compaction: %w", err)
	}

	retained := c.cfg.MinMessagesInContext
	if len(candidates) <= retained {
		return &sageerr.NotEnoughMessagesError{AgentID: agentID, Available: len(candidates), Required: retained + 1}
	}

	// Summarize the oldest half, always retaining at least MinMessagesInContext.
	pivot := len(candidates) / 2
	if len(candidates)-pivot < retained {
		pivot = len(candidates) - retained
	}
	if pivot <= 0 {
		return &sageerr.NotEnoughMessagesError{AgentID: agentID, Available: len(candidates), Required: retained + 1}
	}
	toSummarize := candidates[:pivot]

	fromSeq := toSummarize[0].SequenceID
	toSeq := toSummarize[len(toSummarize)-1].SequenceID

	s, err := c.summarize(ctx, previousSummaryText, toSummarize)
	if err != nil {
		return &sageerr.CompactionFailedError{AgentID: agentID, Err: err}
	}

	content := s.render()
	vec, err := c.embed.Embed(ctx, content)
	if err != nil {
		vec = nil
	}

	if _, err := c.summaries.Insert(ctx, agentID, fromSeq, toSeq, content, vec, previousSummaryID); err != nil {
		return &sageerr.CompactionFailedError{AgentID: agentID, Err: err}
	}
	return nil
}

// summarize drives the primary summarization call with its correction path
// and up to CompactionMaxRetries attempts, each independently eligible for
// one correction sub-call (spec §4.3.4).
func (c *Compactor) summarize(ctx context.Context, previousSummary string, messages []*ent.Message) (summary, error) {
	serialized := serializeMessages(messages)

	var lastErr error
	for attempt := 0; attempt < c.cfg.CompactionMaxRetries; attempt++ {
		raw, err := c.callSummarize(ctx, previousSummary, serialized)
		if err != nil {
			lastErr = err
			select {
			case <-time.After(c.cfg.CompactionRetryBackoff):
			case <-ctx.Done():
				return summary{}, ctx.Err()
			}
			continue
		}

		s, perr := parseSummary(raw)
		if perr == nil {
			return s, nil
		}

		corrected, cerr := c.correctSummary(ctx, previousSummary, serialized, raw, perr)
		if cerr != nil {
			lastErr = perr
			continue
		}
		return corrected, nil
	}
	return summary{}, fmt.Errorf("compaction: exhausted %d attempts: %w", c.cfg.CompactionMaxRetries, lastErr)
}

func (c *Compactor) callSummarize(ctx context.Context, previousSummary, serializedMessages string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following conversation turns in 100 words or fewer, as JSON "+
			"{\"task_overview\":string,\"current_state\":string,\"next_steps\":string}.\n\n"+
			"Previous summary:\n%s\n\nNew messages:\n%s",
		previousSummary, serializedMessages,
	)
	return c.drainText(ctx, prompt)
}

func (c *Compactor) correctSummary(ctx context.Context, previousSummary, serializedMessages, malformed string, parseErr error) (summary, error) {
	prompt := fmt.Sprintf(
		"The previous summarization response failed to parse: %v\n\n"+
			"Reshape it into valid JSON {\"task_overview\":string,\"current_state\":string,\"next_steps\":string} "+
			"without inventing new content.\n\nPrevious summary:\n%s\n\nNew messages:\n%s\n\nMalformed output:\n%s",
		parseErr, previousSummary, serializedMessages, malformed,
	)
	raw, err := c.drainText(ctx, prompt)
	if err != nil {
		return summary{}, err
	}
	return parseSummary(raw)
}

func (c *Compactor) drainText(ctx context.Context, prompt string) (string, error) {
	ch, err := c.llm.Generate(ctx, &agent.GenerateInput{
		Messages: []agent.ConversationMessage{{Role: agent.RoleSystem, Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return sb.String(), nil
			}
			switch v := chunk.(type) {
			case *agent.TextChunk:
				sb.WriteString(v.Content)
			case *agent.ErrorChunk:
				return "", fmt.Errorf("summarization call: %s", v.Message)
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func serializeMessages(messages []*ent.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "[seq=%d] %s: %s\n", m.SequenceID, m.Role, m.Content)
	}
	return sb.String()
}

// TriggerIfNeeded estimates the current context view's size and, if it
// crosses the compaction threshold, kicks off a background compaction
// (spec §4.3.4 Trigger). It never blocks the caller and never propagates
// CompactionFailed or NotEnoughMessages — both are logged and left for the
// next persisted message to retry.
func (c *Compactor) TriggerIfNeeded(agentID, previousSummary string, messageChars int) {
	if !c.ShouldCompact(previousSummary, messageChars) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		err := c.Compact(ctx, agentID)
		if err == nil {
			return
		}
		var notEnough *sageerr.NotEnoughMessagesError
		if errors.As(err, &notEnough) {
			slog.Debug("compaction skipped", "agent_id", agentID, "err", err)
			return
		}
		slog.Error("compaction failed", "agent_id", agentID, "err", err)
	}()
}

func parseSummary(raw string) (summary, error) {
	raw = strings.TrimSpace(raw)
	var s summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return summary{}, fmt.Errorf("decode summary response: %w", err)
	}
	return s, nil
}

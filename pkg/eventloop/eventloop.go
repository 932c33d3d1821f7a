// Package eventloop implements the Event Loop (spec §4.10): the single
// process-wide fan-in that multiplexes the Transport Adapter's inbound
// message stream, the Scheduler's due-task stream, and a periodic health
// tick, driving each through the Agent Manager and the Agent Step Loop.
//
// Grounded on pkg/queue/worker.go's run() select-loop shape, re-themed from
// "poll and claim one AlertSession" to "multiplex three event sources and
// hold the per-agent lock for the duration of one Step Loop".
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/message"
	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/codeready-toolchain/sage/pkg/agentmanager"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/memory"
	"github.com/codeready-toolchain/sage/pkg/scheduler"
	"github.com/codeready-toolchain/sage/pkg/store"
	"github.com/codeready-toolchain/sage/pkg/transport"
	"github.com/codeready-toolchain/sage/pkg/vision"
)

// healthTickInterval is how often the Event Loop calls the Transport
// Adapter's Refresh (spec §4.10's periodic tick).
const healthTickInterval = 30 * time.Second

// replyPacing is the delay between successive outbound messages within a
// single step's reply, so a burst of short messages doesn't arrive as one
// indistinguishable wall of text.
const replyPacing = 1500 * time.Millisecond

// embedTimeout bounds the detached goroutine that fills in a message's
// embedding after the synchronous insert, so a slow embedding provider
// can't leak goroutines past process shutdown indefinitely.
const embedTimeout = 30 * time.Second

// Opts carries the Event Loop's dependencies.
type Opts struct {
	Transport transport.Adapter
	Agents    *agentmanager.Manager
	Scheduler *scheduler.Scheduler
	Store     *store.Store
	Config    *config.Config
	Vision    *vision.Preprocessor // optional; nil disables image pre-processing
}

// Loop is the Event Loop: one goroutine, Run, owns it for the life of the
// process.
type Loop struct {
	transport transport.Adapter
	agents    *agentmanager.Manager
	sched     *scheduler.Scheduler
	store     *store.Store
	cfg       *config.Config
	vision    *vision.Preprocessor

	logger *slog.Logger
}

// New constructs a Loop. Call Run to start it.
func New(o Opts) *Loop {
	return &Loop{
		transport: o.Transport,
		agents:    o.Agents,
		sched:     o.Scheduler,
		store:     o.Store,
		cfg:       o.Config,
		vision:    o.Vision,
		logger:    slog.Default().With("component", "eventloop"),
	}
}

// Run multiplexes the three event sources until ctx is cancelled (spec
// §4.10's shutdown signal: abort the inbound stream and return).
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(healthTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("event loop shutting down")
			return nil

		case msg, ok := <-l.transport.Inbound():
			if !ok {
				continue
			}
			l.handleIncoming(ctx, msg)

		case evt, ok := <-l.sched.Events():
			if !ok {
				continue
			}
			l.handleScheduled(ctx, evt)

		case <-ticker.C:
			if err := l.transport.Refresh(ctx); err != nil {
				l.logger.Warn("transport refresh failed", "err", err)
			}
		}
	}
}

// handleIncoming authorizes, resolves, and runs one inbound message through
// the Step Loop (spec §4.10).
func (l *Loop) handleIncoming(ctx context.Context, msg transport.IncomingMessage) {
	identity := msg.ReplyTo
	if identity == "" {
		identity = msg.Source
	}

	if !l.cfg.Allowed(msg.Source) {
		l.logger.Warn("rejected message from unauthorized sender", "source", msg.Source)
		return
	}

	cached, err := l.agents.ForIdentity(ctx, string(l.cfg.Messenger), identity, agentmanager.NewContext{
		Kind:        msg.Kind,
		DisplayName: msg.SourceName,
	})
	if err != nil {
		l.logger.Error("resolve agent failed", "identity", identity, "err", err)
		return
	}

	cached.Lock()
	defer cached.Unlock()
	ag := cached.Agent()

	mem, ok := ag.Mem.(*memory.Manager)
	if !ok {
		l.logger.Error("agent memory view is not a *memory.Manager", "agent_id", ag.ID)
		return
	}

	text := l.annotateWithAttachments(ctx, mem.AgentID, msg)

	userID := msg.Source
	msgID, err := mem.Recall.AddMessageSync(ctx, &userID, message.RoleUser, text, nil)
	if err != nil {
		l.logger.Error("persist inbound message failed", "agent_id", mem.AgentID, "err", err)
		return
	}
	l.embedAsync(mem, msgID, text)

	l.runStepLoop(ctx, identity, ag, mem, text)
}

// annotateWithAttachments runs the Vision Pre-processor over any supported
// attachments and appends their descriptions to the message text (spec
// §4.9). Unsupported or undescribable attachments are skipped, not fatal.
func (l *Loop) annotateWithAttachments(ctx context.Context, agentID string, msg transport.IncomingMessage) string {
	if l.vision == nil || len(msg.Attachments) == 0 {
		return msg.Message
	}

	var tail []agent.ConversationMessage
	if recent, err := l.store.Messages.GetRecent(ctx, agentID, vision.MaxContextTailTurns); err == nil {
		tail = vision.Tail(toConversationMessages(recent))
	}

	var annotations []string
	for _, a := range msg.Attachments {
		if !vision.Supported(a.MIMEType) {
			continue
		}
		data, err := l.transport.FetchAttachment(ctx, a.URL)
		if err != nil {
			l.logger.Warn("fetch attachment failed", "url", a.URL, "err", err)
			continue
		}
		desc, err := l.vision.Describe(ctx, data, a.MIMEType, msg.Message, tail)
		if err != nil {
			l.logger.Warn("describe attachment failed", "url", a.URL, "err", err)
			continue
		}
		annotations = append(annotations, vision.FormatAnnotation(desc))
	}

	return joinAnnotations(msg.Message, annotations)
}

// joinAnnotations appends vision annotations to the original message text,
// or returns the original unchanged if there are none.
func joinAnnotations(original string, annotations []string) string {
	if len(annotations) == 0 {
		return original
	}
	if original == "" {
		return strings.Join(annotations, "\n")
	}
	return original + "\n" + strings.Join(annotations, "\n")
}

// runStepLoop drives the Agent Step Loop to completion for one triggering
// input, sending replies and persisting assistant/tool turns as it goes
// (spec §4.5.3, §4.10).
func (l *Loop) runStepLoop(ctx context.Context, identity string, ag *agent.Agent, mem *memory.Manager, input string) {
	ag.ResetBuffer()

	if err := l.transport.SendTyping(ctx, identity, false); err != nil {
		l.logger.Warn("send typing start failed", "identity", identity, "err", err)
	}
	defer func() {
		if err := l.transport.SendTyping(ctx, identity, true); err != nil {
			l.logger.Warn("send typing stop failed", "identity", identity, "err", err)
		}
	}()

	for step := 0; step < agent.MaxSteps; step++ {
		result, err := ag.Step(ctx, step, input)
		if err != nil {
			l.logger.Error("step failed", "agent_id", mem.AgentID, "step", step, "err", err)
			if serr := l.transport.SendMessage(ctx, identity, "Sorry, something went wrong while handling that. Please try again."); serr != nil {
				l.logger.Error("send apology failed", "identity", identity, "err", serr)
			}
			return
		}

		l.sendReplies(ctx, identity, mem, result.Messages)
		l.persistToolLog(ctx, mem.AgentID, result.ExecutedTools)

		if result.Done {
			return
		}
	}

	l.logger.Warn("step loop exhausted max steps without finishing", "agent_id", mem.AgentID, "max_steps", agent.MaxSteps)
}

// sendReplies delivers each message in order, pacing successive sends and
// persisting each as an assistant turn.
func (l *Loop) sendReplies(ctx context.Context, identity string, mem *memory.Manager, msgs []string) {
	for i, text := range msgs {
		if err := l.transport.SendMessage(ctx, identity, text); err != nil {
			l.logger.Error("send message failed", "identity", identity, "err", err)
			continue
		}
		id, err := mem.Recall.AddMessageSync(ctx, nil, message.RoleAssistant, text, nil)
		if err != nil {
			l.logger.Error("persist assistant message failed", "agent_id", mem.AgentID, "err", err)
		} else {
			l.embedAsync(mem, id, text)
		}
		if i < len(msgs)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(replyPacing):
			}
		}
	}
}

// persistToolLog records one step's executed tools as a single tool-role
// message, structured JSON in tool_calls/tool_results rather than prose.
func (l *Loop) persistToolLog(ctx context.Context, agentID string, executed []agent.ToolResultRecord) {
	if len(executed) == 0 {
		return
	}

	calls := make([]map[string]any, 0, len(executed))
	results := make([]map[string]any, 0, len(executed))
	names := make([]string, 0, len(executed))
	for _, r := range executed {
		calls = append(calls, map[string]any{"name": r.Name, "args": r.Args})
		results = append(results, map[string]any{"name": r.Name, "success": r.Success, "output": r.Output})
		names = append(names, r.Name)
	}

	content := fmt.Sprintf("tools executed: %s", strings.Join(names, ", "))
	if _, err := l.store.Messages.Insert(ctx, agentID, message.RoleTool, content, store.InsertOpts{
		ToolCalls:   calls,
		ToolResults: results,
	}); err != nil {
		l.logger.Error("persist tool log failed", "agent_id", agentID, "err", err)
	}
}

// embedAsync fills in a message's embedding in the background, off the
// conversational hot path (spec §4.3.2: AddMessageSync inserts a zero
// embedding first), then checks the context view against the compaction
// threshold (spec §4.3.4 Trigger).
func (l *Loop) embedAsync(mem *memory.Manager, msgID, content string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), embedTimeout)
		defer cancel()
		if err := mem.Recall.UpdateEmbedding(ctx, msgID, content); err != nil {
			l.logger.Warn("update embedding failed", "message_id", msgID, "err", err)
		}
		if view, err := mem.BuildContextView(ctx); err == nil {
			mem.Compactor.TriggerIfNeeded(mem.AgentID, view.PreviousContextSummary, len(view.RecentConversation))
		}
	}()
}

// handleScheduled delivers one due task to the identity that owns it (spec
// §4.7 Dispatch loop).
func (l *Loop) handleScheduled(ctx context.Context, evt scheduler.TaskEvent) {
	t := evt.Task

	_, identity, err := l.agents.IdentityFor(ctx, t.AgentID)
	if err != nil {
		l.logger.Error("resolve identity for scheduled task failed", "task_id", t.ID, "agent_id", t.AgentID, "err", err)
		if ferr := l.sched.Fail(ctx, t, err); ferr != nil {
			l.logger.Error("mark scheduled task failed", "task_id", t.ID, "err", ferr)
		}
		return
	}

	if t.TaskType == scheduler.TaskTypeToolCall {
		// Supported by the schema (a tool can be scheduled without a user
		// turn to trigger it) but not wired to a dispatcher here.
		l.failTask(ctx, t, errors.New("scheduled tool-call tasks are not implemented"))
		return
	}

	cached, err := l.agents.ByAgentID(ctx, t.AgentID)
	if err != nil {
		l.failTask(ctx, t, err)
		return
	}

	cached.Lock()
	defer cached.Unlock()
	ag := cached.Agent()

	mem, ok := ag.Mem.(*memory.Manager)
	if !ok {
		l.failTask(ctx, t, fmt.Errorf("agent %s memory view is not a *memory.Manager", t.AgentID))
		return
	}

	text, _ := t.Payload["message"].(string)
	if text == "" {
		l.failTask(ctx, t, fmt.Errorf("scheduled task %s has no message payload", t.ID))
		return
	}

	logID, err := mem.Recall.AddMessageSync(ctx, nil, message.RoleTool, "[Scheduled Task] "+text, nil)
	if err != nil {
		l.logger.Error("persist scheduled task trigger failed", "task_id", t.ID, "err", err)
	} else {
		l.embedAsync(mem, logID, text)
	}

	l.runStepLoop(ctx, identity, ag, mem, text)

	if err := l.sched.Complete(ctx, t); err != nil {
		l.logger.Error("mark scheduled task complete failed", "task_id", t.ID, "err", err)
	}
}

func (l *Loop) failTask(ctx context.Context, t *ent.ScheduledTask, cause error) {
	l.logger.Error("scheduled task failed", "task_id", t.ID, "err", cause)
	if err := l.sched.Fail(ctx, t, cause); err != nil {
		l.logger.Error("mark scheduled task failed", "task_id", t.ID, "err", err)
	}
}

// toConversationMessages adapts persisted messages to the Agent Step
// Loop's wire type for the Vision Pre-processor's context tail.
func toConversationMessages(msgs []*ent.Message) []agent.ConversationMessage {
	out := make([]agent.ConversationMessage, len(msgs))
	for i, m := range msgs {
		out[i] = agent.ConversationMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

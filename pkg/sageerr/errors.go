// Package sageerr defines the typed error kinds the core raises and
// recovers from (spec §7). Each kind is a distinct Go type carrying the
// context needed to render it either as tool output (errors fed back to
// the LLM) or as an infrastructure failure (propagated to the event
// loop). Follows the teacher's sentinel-error-plus-wrapper-struct idiom
// (pkg/config/errors.go, pkg/services/errors.go) generalized to this
// spec's nine error kinds plus NotEnoughMessagesError (ten types in all).
package sageerr

import "fmt"

// LimitExceededError is raised when a block write would exceed its
// char_limit. User-visible: reported in tool output.
type LimitExceededError struct {
	Block   string
	Limit   int
	Attempt int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("block %q limit exceeded: attempted %d chars, limit is %d", e.Block, e.Attempt, e.Limit)
}

// NotFoundError is raised when a lookup by id or by substring fails —
// memory_replace with missing old text, cancel of an unknown schedule id.
type NotFoundError struct {
	Kind string // "block", "schedule", "old_text", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ReadOnlyError is raised when a mutation targets a read-only block.
type ReadOnlyError struct {
	Block string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("block %q is read-only", e.Block)
}

// ValidationError is raised for invalid preference values, invalid cron
// expressions, or schedule times in the past.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s=%q: %s", e.Field, e.Value, e.Message)
}

// ParseFailureError is raised when the LLM's step output cannot be
// decoded into the typed (messages, tool_calls) record. Triggers the
// Correction Sub-agent; if correction also fails, the original error
// propagates (spec §4.5.4).
type ParseFailureError struct {
	Raw string
	Err error
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse step output: %v", e.Err)
}

func (e *ParseFailureError) Unwrap() error { return e.Err }

// LLMTransientError wraps a retryable LLM call failure. Retried with 1s
// back-off up to MAX_LLM_RETRIES.
type LLMTransientError struct {
	Err error
}

func (e *LLMTransientError) Error() string { return fmt.Sprintf("transient LLM error: %v", e.Err) }
func (e *LLMTransientError) Unwrap() error { return e.Err }

// TransportTransientError wraps a retryable transport failure (broken
// pipe, connection reset). Internal reconnect, up to 3 send attempts in all.
type TransportTransientError struct {
	Err error
}

func (e *TransportTransientError) Error() string {
	return fmt.Sprintf("transient transport error: %v", e.Err)
}
func (e *TransportTransientError) Unwrap() error { return e.Err }

// CompactionFailedError is raised when the Compaction Engine exhausts its
// summarization retries. Logged and abandoned; the next persisted
// message re-triggers compaction.
type CompactionFailedError struct {
	AgentID string
	Err     error
}

func (e *CompactionFailedError) Error() string {
	return fmt.Sprintf("compaction failed for agent %s: %v", e.AgentID, e.Err)
}
func (e *CompactionFailedError) Unwrap() error { return e.Err }

// NotEnoughMessagesError is raised when compaction's range selection can't
// retain MinMessagesInContext unsummarized messages. Not a failure: the
// compaction is simply skipped until more messages accumulate.
type NotEnoughMessagesError struct {
	AgentID   string
	Available int
	Required  int
}

func (e *NotEnoughMessagesError) Error() string {
	return fmt.Sprintf("agent %s: not enough messages to compact (%d available, %d required)", e.AgentID, e.Available, e.Required)
}

// StoreError wraps a persistence-layer failure. Propagated; if it
// persists across retries the step fails and the event loop emits the
// user-visible apology.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error during %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

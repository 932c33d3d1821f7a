package config

import "time"

// MemoryConfig controls the Memory Hierarchy's default block limits and the
// Compaction Engine's trigger thresholds (spec §4.3.1, §4.3.4).
type MemoryConfig struct {
	// PersonaCharLimit and HumanCharLimit bound the two default blocks that
	// MUST exist for every agent. Spec §3 pins the invariant (len(value) <=
	// char_limit) but leaves the concrete limits to the implementer.
	PersonaCharLimit int
	HumanCharLimit   int

	// ContextWindow is the reasoning model's token budget; ThresholdRatio is
	// the fraction of it that triggers compaction once crossed.
	ContextWindow        int
	ThresholdRatio       float64
	CharsPerToken        float64 // cheap character-based token estimate divisor
	MinMessagesInContext int

	// CompactionMaxRetries bounds the primary summarization call, each
	// attempt independently eligible for one correction sub-call (spec
	// §4.3.4 pins N=2).
	CompactionMaxRetries   int
	CompactionRetryBackoff time.Duration
}

// DefaultMemoryConfig returns the built-in memory defaults. The char limits,
// context window and min-messages-in-context are overridable via MEMORY_*
// environment variables; the remaining fields are fixed.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		PersonaCharLimit:       getEnvInt("MEMORY_PERSONA_CHAR_LIMIT", 2000),
		HumanCharLimit:         getEnvInt("MEMORY_HUMAN_CHAR_LIMIT", 2000),
		ContextWindow:          getEnvInt("MEMORY_CONTEXT_WINDOW", 128000),
		ThresholdRatio:         0.7,
		CharsPerToken:          4.0,
		MinMessagesInContext:   getEnvInt("MEMORY_MIN_MESSAGES_IN_CONTEXT", 10),
		CompactionMaxRetries:   2,
		CompactionRetryBackoff: 1 * time.Second,
	}
}

// Package config loads process configuration from environment variables.
// Environment-variable parsing is deliberately the external collaborator the
// core spec names (it pins down the keys, not how they get parsed); this
// package is the thin adapter that turns them into typed values, following
// the validate-on-construct shape the teacher uses across its config types.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved process configuration, loaded once at
// startup from the environment (optionally seeded from a .env file by the
// caller via godotenv, matching cmd/tarsy/main.go's bootstrap).
type Config struct {
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Vision    VisionConfig

	DatabaseURL string

	Messenger     MessengerType
	AllowedUsers  []string // "*" or empty (with a logged warning) means allow-all
	SlackBotToken string
	SlackAppToken string

	WebSearch     WebSearchConfig // empty URL disables the web_search tool
	WorkspacePath string
	HealthPort    string

	Scheduler SchedulerConfig
	Memory    MemoryConfig
}

// LLMConfig is the primary reasoning endpoint.
type LLMConfig struct {
	APIURL string
	APIKey string
	Model  string
}

// EmbeddingConfig is the embedding provider endpoint.
type EmbeddingConfig struct {
	APIURL string
	APIKey string
	Model  string
}

// VisionConfig is the vision pre-processing model endpoint.
type VisionConfig struct {
	APIURL string
	APIKey string
	Model  string
}

// WebSearchConfig describes the MCP-speaking search provider behind the
// web_search tool (spec §4.4). Transport.Type selects stdio (a local MCP
// server binary) or http/sse (a hosted provider). An empty URL/Command
// disables the tool — pkg/tools skips registering it.
type WebSearchConfig struct {
	Transport TransportConfig
}

// Enabled reports whether a provider transport was configured.
func (w WebSearchConfig) Enabled() bool {
	return w.Transport.URL != "" || w.Transport.Command != ""
}

// LoadFromEnv builds a Config from the process environment, applying the
// defaults and validation spec §6's key table implies.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			APIURL: os.Getenv("LLM_API_URL"),
			APIKey: os.Getenv("LLM_API_KEY"),
			Model:  os.Getenv("LLM_MODEL"),
		},
		Embedding: EmbeddingConfig{
			APIURL: getEnv("EMBEDDING_API_URL", os.Getenv("LLM_API_URL")),
			APIKey: getEnv("EMBEDDING_API_KEY", os.Getenv("LLM_API_KEY")),
			Model:  os.Getenv("EMBEDDING_MODEL"),
		},
		Vision: VisionConfig{
			APIURL: getEnv("VISION_API_URL", os.Getenv("LLM_API_URL")),
			APIKey: getEnv("VISION_API_KEY", os.Getenv("LLM_API_KEY")),
			Model:  os.Getenv("VISION_MODEL"),
		},
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Messenger:     MessengerType(getEnv("MESSENGER", string(MessengerNoop))),
		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken: os.Getenv("SLACK_APP_TOKEN"),
		WebSearch:     loadWebSearchConfig(),
		WorkspacePath: getEnv("WORKSPACE_PATH", "./workspaces"),
		HealthPort:    getEnv("HEALTH_PORT", "8080"),
		Scheduler:     DefaultSchedulerConfig(),
		Memory:        DefaultMemoryConfig(),
	}

	cfg.AllowedUsers = parseAllowedUsers(os.Getenv("ALLOWED_USERS"))

	if err := cfg.validate(); err != nil {
		return nil, NewLoadError("environment", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return NewValidationError("config", "DATABASE_URL", "", ErrMissingRequiredField)
	}
	if !c.Messenger.IsValid() {
		return NewValidationError("config", "MESSENGER", string(c.Messenger), ErrInvalidValue)
	}
	return nil
}

// parseAllowedUsers implements the "*" / empty = allow-all rule. The caller
// is responsible for logging the warning on the empty case, since this
// function has no logger.
func parseAllowedUsers(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Allowed reports whether identity may use the core, per ALLOWED_USERS.
func (c *Config) Allowed(identity string) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, u := range c.AllowedUsers {
		if u == identity {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// loadWebSearchConfig resolves the web_search MCP transport from env.
// WEB_SEARCH_URL (http/sse) takes precedence; otherwise WEB_SEARCH_COMMAND
// (stdio) is used. Neither set => zero value => web_search stays disabled.
func loadWebSearchConfig() WebSearchConfig {
	if url := os.Getenv("WEB_SEARCH_URL"); url != "" {
		transportType := TransportTypeHTTP
		if getEnv("WEB_SEARCH_TRANSPORT", "http") == "sse" {
			transportType = TransportTypeSSE
		}
		return WebSearchConfig{Transport: TransportConfig{
			Type:        transportType,
			URL:         url,
			BearerToken: os.Getenv("WEB_SEARCH_API_KEY"),
			Timeout:     getEnvInt("WEB_SEARCH_TIMEOUT_SECONDS", 30),
		}}
	}
	if cmd := os.Getenv("WEB_SEARCH_COMMAND"); cmd != "" {
		env := map[string]string{}
		if key := os.Getenv("WEB_SEARCH_API_KEY"); key != "" {
			env["WEB_SEARCH_API_KEY"] = key
		}
		return WebSearchConfig{Transport: TransportConfig{
			Type:    TransportTypeStdio,
			Command: cmd,
			Args:    strings.Fields(os.Getenv("WEB_SEARCH_COMMAND_ARGS")),
			Env:     env,
		}}
	}
	return WebSearchConfig{}
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

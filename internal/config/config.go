package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Ops HTTP server (health + metrics)
	OpsListenAddr string `envconfig:"OPS_LISTEN_ADDR" default:":8080"`

	// Management API (read-only task visibility)
	MgmtListenAddr string `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`
	MgmtAPIKey     string `envconfig:"MGMT_API_KEY"`

	// Slack
	SlackBotToken   string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel    string `envconfig:"SLACK_CHANNEL"`
	SlackFetchLimit int    `envconfig:"SLACK_FETCH_LIMIT" default:"30"`

	// Gemini oracle
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OracleTimeout time.Duration `envconfig:"ORACLE_TIMEOUT" default:"60s"`

	// Jira (optional, tasks are tracked locally either way)
	JiraBaseURL    string `envconfig:"JIRA_BASE_URL"`
	JiraAPIEmail   string `envconfig:"JIRA_API_EMAIL"`
	JiraAPIToken   string `envconfig:"JIRA_API_TOKEN"`
	JiraProjectKey string `envconfig:"JIRA_PROJECT_KEY" default:"SCRUMMSTR"`

	// Store
	DBPath string `envconfig:"DB_PATH" default:"maestro.db"`

	// Timers
	IngestInterval     time.Duration `envconfig:"INGEST_INTERVAL" default:"60s"`
	ReconcileInterval  time.Duration `envconfig:"RECONCILE_INTERVAL" default:"30s"`
	MentionInterval    time.Duration `envconfig:"MENTION_INTERVAL" default:"30s"`
	ReminderInterval   time.Duration `envconfig:"REMINDER_INTERVAL" default:"5m"`
	SummaryInterval    time.Duration `envconfig:"SUMMARY_INTERVAL" default:"90s"`
	GreetingInterval   time.Duration `envconfig:"GREETING_INTERVAL" default:"24h"`
	DeadLetterInterval time.Duration `envconfig:"DEAD_LETTER_INTERVAL" default:"1m"`

	// SummaryWarmup suppresses the standup summary for a while after
	// startup so the first cycle has something to summarize.
	SummaryWarmup time.Duration `envconfig:"SUMMARY_WARMUP" default:"1m"`

	// DedupCapacity bounds the seen-message set. Must exceed the fetch
	// window by a wide margin.
	DedupCapacity int `envconfig:"DEDUP_CAPACITY" default:"4096"`

	// RulesPath points at an optional YAML file overriding classifier
	// keyword sets and oracle prompts.
	RulesPath string `envconfig:"RULES_PATH"`
}

// SlackEnabled returns true if Slack credentials and channel are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// JiraEnabled returns true if Jira basic-auth credentials are configured.
func (c *Config) JiraEnabled() bool {
	return c.JiraBaseURL != "" && c.JiraAPIEmail != "" && c.JiraAPIToken != ""
}

// OracleEnabled returns true if a Gemini API key is configured.
func (c *Config) OracleEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Validate checks the configuration the process cannot run without.
func (c *Config) Validate() error {
	if !c.SlackEnabled() {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_CHANNEL are required")
	}
	if c.SlackFetchLimit < 1 {
		return fmt.Errorf("SLACK_FETCH_LIMIT must be >= 1")
	}
	if c.DedupCapacity < c.SlackFetchLimit {
		return fmt.Errorf("DEDUP_CAPACITY (%d) must be >= SLACK_FETCH_LIMIT (%d)",
			c.DedupCapacity, c.SlackFetchLimit)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

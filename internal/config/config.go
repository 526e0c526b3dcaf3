package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/waabox/shipwatch/internal/domain"
)

// SlackConfig holds the bot credential and the channel release messages go to.
type SlackConfig struct {
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"`
	Username  string `toml:"username"`
	IconEmoji string `toml:"icon_emoji"`
	APIURL    string `toml:"api_url,omitempty"`
}

// CIConfig holds the coordinates of the CI run, used for the workflow and PR links.
type CIConfig struct {
	ServerURL  string `toml:"server_url"`
	Repository string `toml:"repository"`
	RunID      string `toml:"run_id"`
}

// AmplifyConfig holds settings for the AWS Amplify provider.
type AmplifyConfig struct {
	Region string `toml:"region"`
}

// PollConfig bounds the deployment poll loop.
type PollConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	MaxPolls        int `toml:"max_polls"`
}

// SupervisorConfig tunes the crash supervisor.
type SupervisorConfig struct {
	ProbeIntervalSeconds  int `toml:"probe_interval_seconds"`
	DismissTimeoutSeconds int `toml:"dismiss_timeout_seconds"`
}

// MetricsConfig points at an optional Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

// TargetConfig is one application to deploy.
type TargetConfig struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Branch   string `toml:"branch"`
	Provider string `toml:"provider"`
}

// Config holds all shipwatch configuration.
type Config struct {
	Slack      SlackConfig      `toml:"slack"`
	CI         CIConfig         `toml:"ci"`
	Amplify    AmplifyConfig    `toml:"amplify"`
	Poll       PollConfig       `toml:"poll"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Targets    []TargetConfig   `toml:"targets"`
}

const (
	defaultPollInterval   = 15
	defaultMaxPolls       = 120
	defaultProbeInterval  = 2
	defaultDismissTimeout = 5
	defaultBranch         = "main"
	defaultProvider       = "amplify"
	defaultMetricsJob     = "shipwatch"
)

// PollIntervalOrDefault returns the poll interval, 15s when unset.
func (c Config) PollIntervalOrDefault() time.Duration {
	return secondsOr(c.Poll.IntervalSeconds, defaultPollInterval)
}

// MaxPollsOrDefault returns the maximum number of status queries per job.
func (c Config) MaxPollsOrDefault() int {
	if c.Poll.MaxPolls > 0 {
		return c.Poll.MaxPolls
	}
	return defaultMaxPolls
}

// ProbeIntervalOrDefault returns how often the supervisor checks on its parent.
func (c Config) ProbeIntervalOrDefault() time.Duration {
	return secondsOr(c.Supervisor.ProbeIntervalSeconds, defaultProbeInterval)
}

// DismissTimeoutOrDefault returns how long to wait for a dismissed supervisor to exit.
func (c Config) DismissTimeoutOrDefault() time.Duration {
	return secondsOr(c.Supervisor.DismissTimeoutSeconds, defaultDismissTimeout)
}

// MetricsJobOrDefault returns the Pushgateway job name.
func (c Config) MetricsJobOrDefault() string {
	if c.Metrics.Job != "" {
		return c.Metrics.Job
	}
	return defaultMetricsJob
}

// Identity returns the bot identity used on every channel call.
func (c Config) Identity() domain.Identity {
	return domain.Identity{Username: c.Slack.Username, IconEmoji: c.Slack.IconEmoji}
}

// CIContext returns the CI coordinates for link rendering.
func (c Config) CIContext() domain.CIContext {
	return domain.CIContext{ServerURL: c.CI.ServerURL, Repository: c.CI.Repository, RunID: c.CI.RunID}
}

// DomainTargets returns the configured targets with defaults applied.
func (c Config) DomainTargets() []domain.Target {
	targets := make([]domain.Target, len(c.Targets))
	for i, t := range c.Targets {
		targets[i] = domain.Target{
			ID:       t.ID,
			Name:     t.Name,
			Branch:   t.Branch,
			Provider: t.Provider,
		}
		if targets[i].Name == "" {
			targets[i].Name = t.ID
		}
		if targets[i].Branch == "" {
			targets[i].Branch = defaultBranch
		}
		if targets[i].Provider == "" {
			targets[i].Provider = defaultProvider
		}
	}
	return targets
}

func secondsOr(v, fallback int) time.Duration {
	if v > 0 {
		return time.Duration(v) * time.Second
	}
	return time.Duration(fallback) * time.Second
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values; see envOverrides.
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the shipwatch config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/shipwatch/config.toml"
}

// envOverrides maps environment variables to the field they replace.
var envOverrides = []struct {
	key   string
	field func(*Config) *string
}{
	{"SLACK_BOT_TOKEN", func(c *Config) *string { return &c.Slack.Token }},
	{"SLACK_RELEASE_CHANNEL_ID", func(c *Config) *string { return &c.Slack.ChannelID }},
	{"SLACK_BOT_USERNAME", func(c *Config) *string { return &c.Slack.Username }},
	{"SLACK_BOT_ICON_EMOJI", func(c *Config) *string { return &c.Slack.IconEmoji }},
	{"SLACK_API_URL", func(c *Config) *string { return &c.Slack.APIURL }},
	{"GITHUB_SERVER_URL", func(c *Config) *string { return &c.CI.ServerURL }},
	{"GITHUB_REPOSITORY", func(c *Config) *string { return &c.CI.Repository }},
	{"GITHUB_RUN_ID", func(c *Config) *string { return &c.CI.RunID }},
	{"AWS_REGION", func(c *Config) *string { return &c.Amplify.Region }},
	{"SHIPWATCH_PUSHGATEWAY_URL", func(c *Config) *string { return &c.Metrics.PushgatewayURL }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.key); v != "" {
			*o.field(cfg) = v
		}
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}

// Default returns a starter configuration with one Amplify target.
func Default() Config {
	return Config{
		Slack:      SlackConfig{Username: "Release Bot", IconEmoji: ":rocket:"},
		Poll:       PollConfig{IntervalSeconds: defaultPollInterval, MaxPolls: defaultMaxPolls},
		Supervisor: SupervisorConfig{ProbeIntervalSeconds: defaultProbeInterval, DismissTimeoutSeconds: defaultDismissTimeout},
		Metrics:    MetricsConfig{Job: defaultMetricsJob},
		Targets:    []TargetConfig{{ID: "d1a2b3c4d5e6f7", Name: "web", Branch: defaultBranch, Provider: defaultProvider}},
	}
}

// Package config provides configuration loading and validation using
// Viper, bound to TVREEL_-prefixed environment variables and an
// optional YAML config file (SPEC_FULL.md §A.3).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/errs"
)

// Default configuration values.
const (
	defaultAgentTimeout       = 600 * time.Second
	defaultSidegenTimeout     = 300 * time.Second
	defaultResourcePoll       = 30 * time.Second
	defaultWatchdogInterval   = 300 * time.Second
	defaultMemoryFloor        = 3 * 1024 * 1024 * 1024
	defaultTempCeilingCelsius = 80.0
	defaultSidegenCeiling     = 6
	defaultSidegenCropPixels  = 0
	defaultStatusPort         = 9091
)

// Config holds all configuration for the daemon and CLI.
type Config struct {
	Messaging   MessagingConfig   `mapstructure:"messaging"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Resources   ResourcesConfig   `mapstructure:"resources"`
	Paths       PathsConfig       `mapstructure:"paths"`
	StatusHTTP  StatusHTTPConfig  `mapstructure:"status_http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// MessagingConfig holds the messaging-channel credentials (§6).
type MessagingConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// DeliveryConfig holds file-delivery credentials.
type DeliveryConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

// GenerationConfig holds the side-generation provider settings.
type GenerationConfig struct {
	APIKey     string   `mapstructure:"api_key"`
	BaseURL    string   `mapstructure:"base_url"`
	ClipCount  int      `mapstructure:"clip_count"`
	Timeout    Duration `mapstructure:"timeout"`
	CropPixels int      `mapstructure:"crop_pixels"`
}

// AgentConfig holds agent-dispatch settings.
type AgentConfig struct {
	Binary  string   `mapstructure:"binary"`
	Timeout Duration `mapstructure:"timeout"`
}

// ResourcesConfig holds resource-throttler thresholds.
type ResourcesConfig struct {
	MemoryFloor         ByteSize `mapstructure:"memory_floor"`
	TemperatureCeiling  float64  `mapstructure:"temperature_ceiling"`
	PollInterval        Duration `mapstructure:"poll_interval"`
	WatchdogInterval    Duration `mapstructure:"watchdog_interval"`
}

// PathsConfig holds the filesystem roots named in §6.
type PathsConfig struct {
	KnowledgeBase string `mapstructure:"knowledge_base"`
	WorkspaceRoot string `mapstructure:"workspace_root"`
	QueueRoot     string `mapstructure:"queue_root"`
}

// StatusHTTPConfig holds the ambient status/health HTTP server bind
// address (SPEC_FULL.md §C.2).
type StatusHTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the environment, the config file
// (configPath if non-empty, otherwise config.yaml in the default search
// paths), and defaults, in that precedence order, then validates it. Load is the only place required variables are checked; callers
// never need to re-validate at point of use.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tvreel")
		v.AddConfigPath("$HOME/.tvreel")
	}

	v.SetEnvPrefix("TVREEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Required keys have no default, so Unmarshal only sees their
	// environment variables once they are bound explicitly.
	for _, key := range []string{
		"messaging.bot_token", "messaging.chat_id", "delivery.credentials_path",
		"generation.api_key", "paths.knowledge_base", "paths.workspace_root", "paths.queue_root",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults configures default values for every optional setting.
// Required variables (messaging credentials, the generation API key,
// delivery credentials path, and the three filesystem roots) are
// deliberately left unset so Validate rejects their absence.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("generation.base_url", "https://video-generation.invalid")
	v.SetDefault("generation.clip_count", defaultSidegenCeiling)
	v.SetDefault("generation.timeout", defaultSidegenTimeout)
	v.SetDefault("generation.crop_pixels", defaultSidegenCropPixels)

	v.SetDefault("agent.binary", "agent")
	v.SetDefault("agent.timeout", defaultAgentTimeout)

	v.SetDefault("resources.memory_floor", defaultMemoryFloor)
	v.SetDefault("resources.temperature_ceiling", defaultTempCeilingCelsius)
	v.SetDefault("resources.poll_interval", defaultResourcePoll)
	v.SetDefault("resources.watchdog_interval", defaultWatchdogInterval)

	v.SetDefault("status_http.host", "127.0.0.1")
	v.SetDefault("status_http.port", defaultStatusPort)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects any unset required variable (§6) with a
// ConfigurationError, before any side effect occurs.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"messaging.bot_token", c.Messaging.BotToken},
		{"messaging.chat_id", c.Messaging.ChatID},
		{"delivery.credentials_path", c.Delivery.CredentialsPath},
		{"generation.api_key", c.Generation.APIKey},
		{"paths.knowledge_base", c.Paths.KnowledgeBase},
		{"paths.workspace_root", c.Paths.WorkspaceRoot},
		{"paths.queue_root", c.Paths.QueueRoot},
	}
	for _, r := range required {
		if r.value == "" {
			return errs.NewConfigurationError(r.field, "required configuration value is unset")
		}
	}

	const maxPort = 65535
	if c.StatusHTTP.Port < 1 || c.StatusHTTP.Port > maxPort {
		return errs.NewConfigurationError("status_http.port", fmt.Sprintf("must be between 1 and %d", maxPort))
	}

	return nil
}

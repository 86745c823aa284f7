package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutRequiredVarsReturnsConfigurationError(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadAppliesDefaultsWhenRequiredVarsSet(t *testing.T) {
	t.Setenv("TVREEL_MESSAGING_BOT_TOKEN", "token")
	t.Setenv("TVREEL_MESSAGING_CHAT_ID", "chat")
	t.Setenv("TVREEL_DELIVERY_CREDENTIALS_PATH", "/creds.json")
	t.Setenv("TVREEL_GENERATION_API_KEY", "key")
	t.Setenv("TVREEL_PATHS_KNOWLEDGE_BASE", "/kb.yaml")
	t.Setenv("TVREEL_PATHS_WORKSPACE_ROOT", "/workspace")
	t.Setenv("TVREEL_PATHS_QUEUE_ROOT", "/queue")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Generation.ClipCount)
	assert.Equal(t, "agent", cfg.Agent.Binary)
	assert.Equal(t, 9091, cfg.StatusHTTP.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidateRejectsOutOfRangeStatusPort(t *testing.T) {
	cfg := &Config{
		Messaging:  MessagingConfig{BotToken: "t", ChatID: "c"},
		Delivery:   DeliveryConfig{CredentialsPath: "/c"},
		Generation: GenerationConfig{APIKey: "k"},
		Paths:      PathsConfig{KnowledgeBase: "/kb", WorkspaceRoot: "/w", QueueRoot: "/q"},
		StatusHTTP: StatusHTTPConfig{Port: 99999},
	}
	assert.Error(t, cfg.Validate())
}

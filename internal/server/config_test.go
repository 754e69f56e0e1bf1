package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rummyd.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9090
  log_level = "debug"
}

game {
  max_players  = 2
  turn_seconds = 15
}

bot "llm" {
  provider        = "http"
  url             = "http://localhost:9000/decide"
  timeout_seconds = 5
}
`)

	config, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "0.0.0.0:9090", config.GetServerAddress())
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, 2, config.Game.MaxPlayers)
	assert.Equal(t, 15*time.Second, config.TurnLimit())

	// Unset game values fall back to defaults.
	assert.Equal(t, 3, config.Game.MaxTimeouts)
	assert.Equal(t, 20, config.Game.FirstDropPenalty)
	assert.Equal(t, 40, config.Game.MiddleDropPenalty)
	assert.Equal(t, 10, config.Game.ReshuffleThreshold)

	llm := config.GetBotByName("llm")
	require.NotNil(t, llm)
	assert.Equal(t, "http", llm.Provider)
	assert.Equal(t, 5, llm.TimeoutSeconds)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	config, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), config)
	require.NoError(t, config.Validate())
}

func TestLoadServerConfigInvalidHCL(t *testing.T) {
	path := writeConfig(t, `server { port = `)
	_, err := LoadServerConfig(path)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"too many players", func(c *ServerConfig) { c.Game.MaxPlayers = 6 }},
		{"too few players", func(c *ServerConfig) { c.Game.MaxPlayers = 1 }},
		{"zero turn limit", func(c *ServerConfig) { c.Game.TurnSeconds = 0 }},
		{"inverted penalties", func(c *ServerConfig) {
			c.Game.FirstDropPenalty = 50
			c.Game.MiddleDropPenalty = 40
		}},
		{"http bot without url", func(c *ServerConfig) {
			c.Bots = []BotConfig{{Name: "b", Provider: "http"}}
		}},
		{"unknown provider", func(c *ServerConfig) {
			c.Bots = []BotConfig{{Name: "b", Provider: "psychic"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultServerConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

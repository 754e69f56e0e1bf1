package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Bots   []BotConfig    `hcl:"bot,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// GameSettings contains the table rules applied to every game
type GameSettings struct {
	MaxPlayers           int  `hcl:"max_players,optional"`
	TurnSeconds          int  `hcl:"turn_seconds,optional"`
	MaxTimeouts          int  `hcl:"max_timeouts,optional"`
	FirstDropPenalty     int  `hcl:"first_drop_penalty,optional"`
	MiddleDropPenalty    int  `hcl:"middle_drop_penalty,optional"`
	ReshuffleThreshold   int  `hcl:"reshuffle_threshold,optional"`
	DisablePrintedJokers bool `hcl:"disable_printed_jokers,optional"`
	Seed                 int  `hcl:"seed,optional"`
}

// BotConfig defines a decision provider for computer-controlled seats
type BotConfig struct {
	Name           string `hcl:"name,label"`
	Provider       string `hcl:"provider"` // "random" or "http"
	URL            string `hcl:"url,optional"`
	TimeoutSeconds int    `hcl:"timeout_seconds,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			LogFile:  "rummyd.log",
		},
		Game: GameSettings{
			MaxPlayers:         4,
			TurnSeconds:        10,
			MaxTimeouts:        3,
			FirstDropPenalty:   20,
			MiddleDropPenalty:  40,
			ReshuffleThreshold: 10,
		},
		Bots: []BotConfig{
			{
				Name:     "random",
				Provider: "random",
			},
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = "rummyd.log"
	}

	if config.Game.MaxPlayers == 0 {
		config.Game.MaxPlayers = 4
	}
	if config.Game.TurnSeconds == 0 {
		config.Game.TurnSeconds = 10
	}
	if config.Game.MaxTimeouts == 0 {
		config.Game.MaxTimeouts = 3
	}
	if config.Game.FirstDropPenalty == 0 {
		config.Game.FirstDropPenalty = 20
	}
	if config.Game.MiddleDropPenalty == 0 {
		config.Game.MiddleDropPenalty = 40
	}
	if config.Game.ReshuffleThreshold == 0 {
		config.Game.ReshuffleThreshold = 10
	}

	// Apply defaults to bots
	for i := range config.Bots {
		if config.Bots[i].Provider == "" {
			config.Bots[i].Provider = "random"
		}
		if config.Bots[i].TimeoutSeconds == 0 {
			config.Bots[i].TimeoutSeconds = 8
		}
	}
	if len(config.Bots) == 0 {
		config.Bots = DefaultServerConfig().Bots
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Game.MaxPlayers < 2 || c.Game.MaxPlayers > 4 {
		return fmt.Errorf("max players must be between 2 and 4, got %d", c.Game.MaxPlayers)
	}
	if c.Game.TurnSeconds <= 0 {
		return fmt.Errorf("turn seconds must be positive")
	}
	if c.Game.MaxTimeouts <= 0 {
		return fmt.Errorf("max timeouts must be positive")
	}
	if c.Game.FirstDropPenalty < 0 || c.Game.MiddleDropPenalty < c.Game.FirstDropPenalty {
		return fmt.Errorf("drop penalties must be non-negative and middle >= first")
	}

	for _, bot := range c.Bots {
		switch bot.Provider {
		case "random":
		case "http":
			if bot.URL == "" {
				return fmt.Errorf("bot %s: http provider requires a url", bot.Name)
			}
		default:
			return fmt.Errorf("bot %s: invalid provider %s", bot.Name, bot.Provider)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GetBotByName returns a bot configuration by name
func (c *ServerConfig) GetBotByName(name string) *BotConfig {
	for i := range c.Bots {
		if c.Bots[i].Name == name {
			return &c.Bots[i]
		}
	}
	return nil
}

// TurnLimit returns the configured turn limit as a duration.
func (c *ServerConfig) TurnLimit() time.Duration {
	return time.Duration(c.Game.TurnSeconds) * time.Second
}

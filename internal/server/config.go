package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the race rules applied to every room.
type GameSettings struct {
	MaxPlayers    int `hcl:"max_players,optional"`
	Laps          int `hcl:"laps,optional"`
	TrackLength   int `hcl:"track_length,optional"`
	TurnTimeoutMs int `hcl:"turn_timeout_ms,optional"` // 0 disables the per-turn deadline
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     42073,
			LogLevel: "info",
		},
		Game: GameSettings{
			MaxPlayers:    10,
			Laps:          3,
			TrackLength:   50,
			TurnTimeoutMs: 0,
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file,
// falling back to defaults when the file does not exist.
func LoadServerConfig(filename string) (*ServerConfig, error) {
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
		config.Server.Port = 42073
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.MaxPlayers == 0 {
		config.Game.MaxPlayers = 10
	}
	if config.Game.Laps == 0 {
		config.Game.Laps = 3
	}
	if config.Game.TrackLength == 0 {
		config.Game.TrackLength = 50
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.MaxPlayers < 1 || c.Game.MaxPlayers > 10 {
		return fmt.Errorf("max players must be between 1 and 10, got %d", c.Game.MaxPlayers)
	}
	if c.Game.Laps < 1 {
		return fmt.Errorf("laps must be positive, got %d", c.Game.Laps)
	}
	if c.Game.TrackLength < 2 {
		return fmt.Errorf("track length must be at least 2, got %d", c.Game.TrackLength)
	}
	if c.Game.TurnTimeoutMs < 0 {
		return fmt.Errorf("turn timeout cannot be negative, got %d", c.Game.TurnTimeoutMs)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

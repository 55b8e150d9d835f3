package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/calvinwijaya/blackjack-be/internal/game"
)

// Archive drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverNone     = "none"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerSettings  `hcl:"server,block"`
	Table   TableSettings   `hcl:"table,block"`
	Archive ArchiveSettings `hcl:"archive,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	FrontendURL string `hcl:"frontend_url,optional"`
}

// TableSettings contains the table limits and presentation pacing
type TableSettings struct {
	BetUnit         int `hcl:"bet_unit,optional"`
	MaxBet          int `hcl:"max_bet,optional"`
	StartingBalance int `hcl:"starting_balance,optional"`
	RevealDelayMS   int `hcl:"reveal_delay_ms,optional"`
}

// ArchiveSettings selects where settled rounds are recorded
type ArchiveSettings struct {
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn,optional"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:     "",
			Port:        8080,
			LogLevel:    "info",
			FrontendURL: "http://localhost:5173",
		},
		Table: TableSettings{
			BetUnit:         100,
			MaxBet:          0,
			StartingBalance: game.DefaultStartingBalance,
			RevealDelayMS:   500,
		},
		Archive: ArchiveSettings{
			Driver: DriverSQLite,
			DSN:    "./data/blackjack.db",
		},
	}
}

// Load loads configuration from an HCL file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = def.Server.FrontendURL
	}
	if c.Table.BetUnit == 0 {
		c.Table.BetUnit = def.Table.BetUnit
	}
	if c.Table.StartingBalance == 0 {
		c.Table.StartingBalance = def.Table.StartingBalance
	}
	if c.Archive.Driver == "" {
		c.Archive = def.Archive
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Table.BetUnit <= 0 {
		return fmt.Errorf("bet_unit must be positive, got %d", c.Table.BetUnit)
	}
	if c.Table.MaxBet < 0 || c.Table.MaxBet%c.Table.BetUnit != 0 {
		return fmt.Errorf("max_bet %d must be a multiple of bet_unit %d", c.Table.MaxBet, c.Table.BetUnit)
	}
	if c.Table.StartingBalance < c.Table.BetUnit {
		return fmt.Errorf("starting_balance %d is below bet_unit %d", c.Table.StartingBalance, c.Table.BetUnit)
	}
	if c.Table.RevealDelayMS < 0 {
		return fmt.Errorf("reveal_delay_ms must not be negative, got %d", c.Table.RevealDelayMS)
	}

	switch c.Archive.Driver {
	case DriverSQLite, DriverPostgres, DriverRedis:
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive driver %q requires a dsn", c.Archive.Driver)
		}
	case DriverNone:
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Rules returns the table limits
func (c *Config) Rules() game.Rules {
	return game.Rules{BetUnit: c.Table.BetUnit, MaxBet: c.Table.MaxBet}
}

// RevealDelay returns the pause between pushed snapshots
func (c *Config) RevealDelay() time.Duration {
	return time.Duration(c.Table.RevealDelayMS) * time.Millisecond
}

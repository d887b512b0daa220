package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/vendstars/VendStarsEconomy/internal/reward"
	"github.com/vendstars/VendStarsEconomy/internal/settings"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// ErrInvalidConfig marks a config file that parsed but cannot run the server.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// AppConfig holds the process-level inputs resolved before the file loads.
type AppConfig struct {
	ConfigPath string
}

// Config is the full server configuration, loaded from a YAML file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Economy  EconomyConfig  `yaml:"economy"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the host:port pair for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures storage. DSN accepts a postgres URL or a SQLite
// file path.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig configures structured logging and file rotation. An empty File
// keeps logs on stderr only.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// EconomyConfig holds the reward table and the seed values for the runtime
// settings. The seeds only apply on first boot; afterwards the settings
// table wins.
type EconomyConfig struct {
	PrizeTable          []reward.PrizeEntry `yaml:"prize-table"`
	BaseSpinReward      int                 `yaml:"base-spin-reward"`
	FirstSpinBonus      int                 `yaml:"first-spin-bonus"`
	VoteReward          int                 `yaml:"vote-reward"`
	PartnerSharePercent int                 `yaml:"partner-share-percent"`
}

// ResolveConfigPath picks the config file path: the explicit flag, then the
// ECONOMYD_CONFIG environment variable, then config.yaml in the working
// directory.
func ResolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("ECONOMYD_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	raw, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	cfg := &Config{}
	if errParse := yaml.Unmarshal(raw, cfg); errParse != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errParse)
	}
	cfg.applyDefaults()
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// LoadDatabaseDSN reads only the database DSN from the config file. Used by
// migrate-only invocations that never build the rest of the server.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, errLoad := Load(path)
	if errLoad != nil {
		return "", errLoad
	}
	return cfg.Database.DSN, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.Economy.BaseSpinReward == 0 {
		c.Economy.BaseSpinReward = settings.DefaultBaseSpinReward
	}
	if c.Economy.FirstSpinBonus == 0 {
		c.Economy.FirstSpinBonus = settings.DefaultFirstSpinBonus
	}
	if c.Economy.VoteReward == 0 {
		c.Economy.VoteReward = settings.DefaultVoteReward
	}
	if c.Economy.PartnerSharePercent == 0 {
		c.Economy.PartnerSharePercent = settings.DefaultPartnerSharePercent
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalidConfig)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if len(c.Economy.PrizeTable) == 0 {
		return fmt.Errorf("%w: economy.prize-table is required", ErrInvalidConfig)
	}
	if _, errTable := reward.NewPrizeTable(c.Economy.PrizeTable); errTable != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errTable)
	}
	if c.Economy.PartnerSharePercent < 0 || c.Economy.PartnerSharePercent > 100 {
		return fmt.Errorf("%w: economy.partner-share-percent %d out of range", ErrInvalidConfig, c.Economy.PartnerSharePercent)
	}
	return nil
}

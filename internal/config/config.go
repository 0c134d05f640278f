// Package config loads runtime settings from a YAML file, an optional .env
// file and CONNECT4_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/jaminalder/codex-connect-four/internal/domain"
)

const (
	ModeConsole = "console"
	ModeWeb     = "web"
)

// Config holds runtime settings.
type Config struct {
	Mode      string        `yaml:"mode"`
	Addr      string        `yaml:"addr"`
	Seed      int64         `yaml:"seed"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	LogLevel  string        `yaml:"log_level"`
	// Computer is "auto", "none" for two players on one screen, or the
	// colour the computer plays in console mode.
	Computer string `yaml:"computer"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Mode:      ModeConsole,
		Addr:      ":8080",
		Heartbeat: 15 * time.Second,
		LogLevel:  "info",
		Computer:  "auto",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory if present, and the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("CONNECT4_MODE"); ok {
		c.Mode = v
	}
	if v, ok := os.LookupEnv("CONNECT4_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := os.LookupEnv("CONNECT4_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("CONNECT4_COMPUTER"); ok {
		c.Computer = v
	}
	if v, ok := os.LookupEnv("CONNECT4_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CONNECT4_SEED: %w", err)
		}
		c.Seed = seed
	}
	if v, ok := os.LookupEnv("CONNECT4_HEARTBEAT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONNECT4_HEARTBEAT: %w", err)
		}
		c.Heartbeat = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeConsole, ModeWeb:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", c.Heartbeat)
	}
	if _, err := c.ComputerColour(); err != nil {
		return err
	}
	return nil
}

// HotSeat reports whether both colours are played by humans.
func (c *Config) HotSeat() bool { return c.Computer == "none" }

// ComputerColour returns the colour fixed for the computer, or nil when the
// computer is disabled or takes whichever colour the human leaves.
func (c *Config) ComputerColour() (*domain.Player, error) {
	switch c.Computer {
	case "", "auto", "none":
		return nil, nil
	}
	p, err := domain.ParsePlayer(c.Computer)
	if err != nil {
		return nil, fmt.Errorf("computer: %w", err)
	}
	return &p, nil
}

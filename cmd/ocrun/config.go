package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the ocrun configuration file (~/.config/ocrun/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Card    string         `yaml:"card"`
	Layout  string         `yaml:"layout"`
	Timeout *time.Duration `yaml:"timeout"`
	NoIRQ   *bool          `yaml:"no_irq"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ocrun", "config.yaml")
}

// applyCardConfig applies config file defaults to the shared card flags
// when the corresponding CLI flag was not explicitly set.
func applyCardConfig(c *cli.Command, cfg Config) {
	if cfg.Card != "" && !c.IsSet("card") {
		cardID = cfg.Card
	}
	if cfg.Layout != "" && !c.IsSet("layout") {
		layoutPath = cfg.Layout
	}
	if cfg.Timeout != nil && !c.IsSet("timeout") {
		execTimeout = *cfg.Timeout
	}
	if cfg.NoIRQ != nil && !c.IsSet("no-irq") {
		noIRQ = *cfg.NoIRQ
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyCardConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or fails to parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

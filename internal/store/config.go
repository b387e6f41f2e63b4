package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeDryRun = "DRY_RUN"
	ModeLive   = "LIVE"
)

type Config struct {
	Mode       string `yaml:"mode"`
	Connection struct {
		Host                  string `yaml:"host"`
		Port                  int    `yaml:"port"`
		ClientID              int    `yaml:"client_id"`
		ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
	} `yaml:"connection"`
	Exchange string `yaml:"exchange"`
	// Product is the Kite product for LIVE orders (MIS, CNC, NRML).
	Product     string            `yaml:"product"`
	Instruments map[string]uint32 `yaml:"instruments"`
	Journal     struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"journal"`
	// Subscribe lists the message type names the listener prints. Empty
	// means all of them.
	Subscribe []string `yaml:"subscribe"`
	Paper     struct {
		Account string             `yaml:"account"`
		Cash    float64            `yaml:"cash"`
		Prices  map[string]float64 `yaml:"prices"`
	} `yaml:"paper"`
}

// ConnectTimeout is the connection handshake deadline.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Connection.ConnectTimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	if c.Mode != ModeDryRun && c.Mode != ModeLive {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Connection.Host == "" {
		return errors.New("connection.host cannot be empty")
	}
	if c.Connection.Port <= 0 || c.Connection.Port > 65535 {
		return fmt.Errorf("connection.port must be between 1-65535, got %d", c.Connection.Port)
	}
	if c.Connection.ClientID < 0 {
		return fmt.Errorf("connection.client_id cannot be negative, got %d", c.Connection.ClientID)
	}
	if c.Connection.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("connection.connect_timeout_seconds must be positive, got %d", c.Connection.ConnectTimeoutSeconds)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.path cannot be empty when the journal is enabled")
	}
	for symbol, token := range c.Instruments {
		if token == 0 {
			return fmt.Errorf("instruments.%s: token cannot be zero", symbol)
		}
	}
	return nil
}

// Default returns a DRY_RUN config with every default applied.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDryRun
	}
	if c.Connection.Host == "" {
		c.Connection.Host = "localhost"
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = 7496
	}
	if c.Connection.ConnectTimeoutSeconds == 0 {
		c.Connection.ConnectTimeoutSeconds = 15
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "logs/journal.db"
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

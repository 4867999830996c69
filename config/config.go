// Package config loads connection settings for the gattwrite command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	gatt "github.com/XC-/gattlib"
	"github.com/XC-/gattlib/att"
)

// Config holds the connection and logging settings.
type Config struct {
	HCI            int           `yaml:"hci" default:"-1"` // adapter index, -1 for any
	AddressType    string        `yaml:"address_type" default:"public"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"15s"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
	MTU            int           `yaml:"mtu" default:"23"`
	LogLevel       string        `yaml:"log_level" default:"warn"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gattlib", "config.yaml")
}

// Default returns a Config holding the default values.
func Default() *Config {
	cfg := new(Config)
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.HCI < -1 {
		return fmt.Errorf("hci must be -1 or an adapter index, got %d", c.HCI)
	}
	if _, err := gatt.ParseAddrType(c.AddressType); err != nil {
		return fmt.Errorf("address_type must be \"public\" or \"random\", got %q", c.AddressType)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.MTU < att.DefaultMTU || c.MTU > att.MaxMTU {
		return fmt.Errorf("mtu must be in [%d, %d], got %d", att.DefaultMTU, att.MaxMTU, c.MTU)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return log, nil
}

// Options returns the Conn options for c. It assumes c is valid.
func (c *Config) Options(log logrus.Ext1FieldLogger) []gatt.Option {
	typ, _ := gatt.ParseAddrType(c.AddressType)
	opts := []gatt.Option{
		gatt.HCI(c.HCI),
		gatt.AddressType(typ),
		gatt.ConnectTimeout(c.ConnectTimeout),
		gatt.RequestTimeout(c.RequestTimeout),
		gatt.ClientMTU(c.MTU),
	}
	if log != nil {
		opts = append(opts, gatt.WithLogger(log))
	}
	return opts
}

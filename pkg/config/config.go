// Package config stores the meeblipcc tool settings
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/layout"
	"github.com/james-see/meeblipcc/pkg/quantize"
)

// PortsConfig names the hardware ports by name fragment
type PortsConfig struct {
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Ports      PortsConfig `json:"ports,omitempty"`
	SampleRate float64     `json:"sampleRate,omitempty"`
	BlockSize  int         `json:"blockSize,omitempty"`
	HTTPPort   int         `json:"httpPort,omitempty"`

	// 1-based MIDI channels, as shown to the user
	InChannel  int `json:"inChannel,omitempty"`
	OutChannel int `json:"outChannel,omitempty"`

	Echo   *bool  `json:"echo,omitempty"`
	Layout string `json:"layout,omitempty"` // optional layout file
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	echo := true
	return &Config{
		Ports:      PortsConfig{Input: "meeblip", Output: "meeblip"},
		SampleRate: 44100,
		BlockSize:  512,
		HTTPPort:   8080,
		InChannel:  1,
		OutChannel: 1,
		Echo:       &echo,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "meeblipcc"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. A missing file yields defaults, and
// fields absent from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges of the numeric settings
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.Errorf("sampleRate %v must be positive", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return errors.Errorf("blockSize %d must be positive", c.BlockSize)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return errors.Errorf("httpPort %d out of range", c.HTTPPort)
	}
	for name, ch := range map[string]int{"inChannel": c.InChannel, "outChannel": c.OutChannel} {
		if ch < 1 || ch > quantize.MaxChannel+1 {
			return errors.Errorf("%s %d not in [1, 16]", name, ch)
		}
	}
	return nil
}

// EchoEnabled reports the echo setting, defaulting to on
func (c *Config) EchoEnabled() bool {
	return c.Echo == nil || *c.Echo
}

// EngineConfig builds the engine settings, loading the layout file if one
// is configured.
func (c *Config) EngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.EchoEnabled = c.EchoEnabled()
	cfg.InChannel = uint8(c.InChannel - 1)
	cfg.OutChannel = uint8(c.OutChannel - 1)

	if c.Layout != "" {
		table, err := layout.LoadFile(c.Layout)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.Layout = table
	}
	return cfg, nil
}

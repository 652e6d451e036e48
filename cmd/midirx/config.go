package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Garik-/midirx/pkg/midi"
	"github.com/Garik-/midirx/pkg/ringbuf"
	"github.com/Garik-/midirx/pkg/serialin"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultQueueSize     = 64
	defaultDrainInterval = time.Millisecond
)

var errConfigFormat = errors.New("unsupported config format")

type config struct {
	Debug         bool
	QueueSize     int
	SysExSize     int
	DrainInterval time.Duration
	Serial        serialin.Config
}

// fileConfig is the on-disk form. Zero values leave defaults in place.
type fileConfig struct {
	Debug         bool   `yaml:"debug" toml:"debug"`
	QueueSize     int    `yaml:"queue_size" toml:"queue_size"`
	SysExSize     int    `yaml:"sysex_size" toml:"sysex_size"`
	DrainInterval string `yaml:"drain_interval" toml:"drain_interval"`
	Serial        struct {
		Port        string `yaml:"port" toml:"port"`
		Baud        int    `yaml:"baud" toml:"baud"`
		ReadTimeout string `yaml:"read_timeout" toml:"read_timeout"`
	} `yaml:"serial" toml:"serial"`
}

func defaultConfig() config {
	return config{
		QueueSize:     defaultQueueSize,
		SysExSize:     midi.DefaultSysExCapacity,
		DrainInterval: defaultDrainInterval,
		Serial: serialin.Config{
			Baud:        serialin.DefaultBaud,
			ReadTimeout: serialin.DefaultReadTimeout,
		},
	}
}

// loadConfig returns the defaults overlaid with the file at path, if any.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		return cfg, fmt.Errorf("%w: %s", errConfigFormat, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.apply(fc); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *config) apply(fc fileConfig) error {
	c.Debug = c.Debug || fc.Debug
	if fc.QueueSize != 0 {
		c.QueueSize = fc.QueueSize
	}
	if fc.SysExSize != 0 {
		c.SysExSize = fc.SysExSize
	}
	if fc.Serial.Port != "" {
		c.Serial.Port = fc.Serial.Port
	}
	if fc.Serial.Baud != 0 {
		c.Serial.Baud = fc.Serial.Baud
	}

	var err error
	if fc.DrainInterval != "" {
		if c.DrainInterval, err = time.ParseDuration(fc.DrainInterval); err != nil {
			return fmt.Errorf("drain_interval: %w", err)
		}
	}
	if fc.Serial.ReadTimeout != "" {
		if c.Serial.ReadTimeout, err = time.ParseDuration(fc.Serial.ReadTimeout); err != nil {
			return fmt.Errorf("serial.read_timeout: %w", err)
		}
	}
	return nil
}

func (c config) validate() error {
	if _, err := ringbuf.New(c.QueueSize); err != nil {
		return fmt.Errorf("queue size: %w", err)
	}
	if c.SysExSize < 2 {
		return fmt.Errorf("sysex size must be at least 2, got %d", c.SysExSize)
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("drain interval must be positive, got %s", c.DrainInterval)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Serial.Baud)
	}
	return nil
}

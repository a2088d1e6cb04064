// internal/config/config.go

// Package config loads the settings shared by the steely binaries.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"go-steely/internal/recorder"
)

// Config holds every tunable of the CLI and the demo server.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	LogDir         string `mapstructure:"log_dir"`
	Debug          bool   `mapstructure:"debug"`
	Clean          bool   `mapstructure:"clean"`
	CurlDir        string `mapstructure:"curl_dir"`
	ScriptName     string `mapstructure:"script_name"`
	GroupMode      bool   `mapstructure:"group_mode"`
	PostmanDir     string `mapstructure:"postman_dir"`
	CollectionName string `mapstructure:"collection_name"`
	Addr           string `mapstructure:"addr"`
	RedisAddr      string `mapstructure:"redis_addr"`
	Metrics        bool   `mapstructure:"metrics"`
	QueueSize      int    `mapstructure:"queue_size"`
	Workers        int    `mapstructure:"workers"`
	NoColor        bool   `mapstructure:"no_color"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		AppName:        "steely",
		Debug:          true,
		CurlDir:        recorder.DefaultCurlDir,
		ScriptName:     "steely",
		GroupMode:      true,
		PostmanDir:     recorder.DefaultPostmanDir,
		CollectionName: "steely",
		Addr:           ":8080",
		Metrics:        true,
		QueueSize:      1024,
		Workers:        1,
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML onto cfg. Keys absent from data keep their value;
// unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return cfg.Validate()
}

// ErrInvalid marks a setting outside its allowed range.
var ErrInvalid = errors.New("invalid config")

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalid, c.QueueSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, c.Workers)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	}
	return nil
}

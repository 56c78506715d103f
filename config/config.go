// Package config loads service and frontend settings from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

// DefaultPath is the config file read when no -config flag is given.
const DefaultPath = "config.yaml"

type Config struct {
	Http     HTTPConfig     `yaml:"http"`
	Model    ModelConfig    `yaml:"model"`
	Log      LogConfig      `yaml:"log"`
	Frontend FrontendConfig `yaml:"frontend"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type ModelConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	// File enables rotation through lumberjack; empty logs to stderr only.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type FrontendConfig struct {
	Port           int           `yaml:"port"`
	APIURL         string        `yaml:"api_url"`
	Locale         string        `yaml:"locale"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the settings used when neither file nor environment
// provide a value.
func Default() *Config {
	return &Config{
		Http: HTTPConfig{
			Port:           5002,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Model: ModelConfig{Path: "model.json"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Frontend: FrontendConfig{
			Port:           8501,
			APIURL:         "http://127.0.0.1:5002",
			Locale:         "en",
			RequestTimeout: 5 * time.Second,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var err error
	if v, ok := lookup("MODEL_PATH"); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, perr := strconv.Atoi(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("PORT: %w", perr))
		}
		c.Http.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("API_URL"); ok && v != "" {
		c.Frontend.APIURL = v
	}
	if v, ok := lookup("FRONTEND_PORT"); ok && v != "" {
		port, perr := strconv.Atoi(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("FRONTEND_PORT: %w", perr))
		}
		c.Frontend.Port = port
	}
	if v, ok := lookup("FRONTEND_LOCALE"); ok && v != "" {
		c.Frontend.Locale = v
	}
	return err
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("http.port %d out of range", c.Http.Port))
	}
	if c.Http.Timeout <= 0 {
		err = multierr.Append(err, errors.New("http.timeout must be positive"))
	}
	if c.Http.MaxBodyBytes <= 0 {
		err = multierr.Append(err, errors.New("http.max_body_bytes must be positive"))
	}
	if c.Model.Path == "" {
		err = multierr.Append(err, errors.New("model.path is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Frontend.Port <= 0 || c.Frontend.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("frontend.port %d out of range", c.Frontend.Port))
	}
	if c.Frontend.APIURL == "" {
		err = multierr.Append(err, errors.New("frontend.api_url is required"))
	}
	if c.Frontend.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("frontend.request_timeout must be positive"))
	}
	if _, perr := language.Parse(c.Frontend.Locale); perr != nil {
		err = multierr.Append(err, fmt.Errorf("frontend.locale: %w", perr))
	}
	return err
}

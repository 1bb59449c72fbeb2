// Package config loads client configuration: defaults, then an optional YAML
// file, then DUKAN_* environment overrides. A .env file in the working
// directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config drives the client: where the identity API lives and where the
// credential pair is persisted.
type Config struct {
	BaseURL        string   `yaml:"base_url"`
	CommandTimeout Duration `yaml:"command_timeout"`
	TokenFile      string   `yaml:"token_file"`

	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
	LoginBurst         int `yaml:"login_burst"`
}

// Duration is a time.Duration that unmarshals from "15s"-style YAML strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		BaseURL:            "http://localhost:8080",
		CommandTimeout:     Duration(15 * time.Second),
		TokenFile:          defaultTokenFile(),
		LoginRatePerMinute: 10,
		LoginBurst:         5,
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".dukan", "credentials.json")
	}
	return filepath.Join(dir, "dukan", "credentials.json")
}

// Load builds the effective configuration. A missing file is not an error;
// a malformed one is.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = Default().CommandTimeout
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DUKAN_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DUKAN_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("DUKAN_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CommandTimeout = Duration(d)
		}
	}
	if v := os.Getenv("DUKAN_LOGIN_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRatePerMinute = n
		}
	}
}

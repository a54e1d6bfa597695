package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment variable the loader reads.
	EnvPrefix = "SEQUENCER_"

	// DefaultFile is read when no configuration file is named explicitly.
	DefaultFile = ".sequencer.yaml"
)

// Config captures the settings of the migration sequencer.
type Config struct {
	MigrationsDir  string `yaml:"migrations_dir" env:"MIGRATIONS_DIR"`
	SettingsDir    string `yaml:"settings_dir" env:"SETTINGS_DIR"`
	Strict         bool   `yaml:"strict" env:"STRICT"`
	AllowOverwrite bool   `yaml:"allow_overwrite" env:"ALLOW_OVERWRITE"`
	CreateDirs     bool   `yaml:"create_dirs" env:"CREATE_DIRS"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat      string `yaml:"log_format" env:"LOG_FORMAT"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		MigrationsDir: "migrations",
		SettingsDir:   "settings_json_schemas",
		LogLevel:      "warn",
		LogFormat:     "text",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// process environment, in increasing order of precedence.
//
// path names the YAML file. When it is empty, SEQUENCER_CONFIG is consulted,
// then DefaultFile; a missing default file is not an error, a missing named
// file is.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		if fromEnv := strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG")); fromEnv != "" {
			path, explicit = fromEnv, true
		} else {
			path = DefaultFile
		}
	}

	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	invalid := make([]string, 0, 2)

	if strings.TrimSpace(c.MigrationsDir) == "" {
		invalid = append(invalid, "migrations_dir")
	}
	if strings.TrimSpace(c.SettingsDir) == "" {
		invalid = append(invalid, "settings_dir")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log_level")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		invalid = append(invalid, "log_format")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

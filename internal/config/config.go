package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matkrin/lintgutter/internal/linter"
)

const (
	EnvCommand  = "LINTGUTTER_COMMAND"
	EnvLanguage = "LINTGUTTER_LANGUAGE"
)

type Config struct {
	Language string    `toml:"language" yaml:"language"`
	Command  string    `toml:"command" yaml:"command"`
	Encoding string    `toml:"encoding" yaml:"encoding"`
	Suffix   string    `toml:"suffix" yaml:"suffix"`
	TempDir  string    `toml:"temp_dir" yaml:"temp_dir"`
	Debounce string    `toml:"debounce" yaml:"debounce"`
	Priority int       `toml:"priority" yaml:"priority"`
	Log      LogConfig `toml:"log" yaml:"log"`

	argv     []string
	debounce time.Duration
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	File   string `toml:"file" yaml:"file"`
	Format string `toml:"format" yaml:"format"`
}

func Default() *Config {
	return &Config{
		Language: "python",
		Command:  "flake8",
		Encoding: "utf-8",
		Suffix:   ".py",
		Debounce: "0s",
		Priority: 40,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML or YAML file, chosen by extension, on top of the
// defaults. An empty path loads the defaults alone. Environment overrides are
// applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvCommand); v != "" {
		c.Command = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.Language = v
	}
}

// Validate checks the configuration and resolves the linter command line and
// debounce duration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("language is required")
	}

	argv, err := linter.SplitCommand(c.Command)
	if err != nil {
		return fmt.Errorf("command: %w", err)
	}
	c.argv = argv

	debounce := time.Duration(0)
	if c.Debounce != "" {
		debounce, err = time.ParseDuration(c.Debounce)
		if err != nil {
			return fmt.Errorf("debounce: %w", err)
		}
		if debounce < 0 {
			return fmt.Errorf("debounce: must not be negative, got %s", c.Debounce)
		}
	}
	c.debounce = debounce

	if c.Priority < 0 {
		return fmt.Errorf("priority: must be >= 0, got %d", c.Priority)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}

	return nil
}

// Argv is the linter command split into words. Valid after Validate.
func (c *Config) Argv() []string {
	return append([]string(nil), c.argv...)
}

func (c *Config) DebounceDuration() time.Duration {
	return c.debounce
}

func (c *Config) LinterOptions() linter.Options {
	return linter.Options{
		Command: c.Argv(),
		TempDir: c.TempDir,
		Suffix:  c.Suffix,
	}
}

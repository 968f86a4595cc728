// Package config loads taskforge configuration from layered sources:
// defaults, user config file, project config file, environment variables,
// and CLI flags, in that priority order.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultDataFile = "tasks.json"
	defaultLogLevel = "warn"

	envDataFile = "TASKFORGE_DATA_FILE"
	envLogLevel = "TASKFORGE_LOG_LEVEL"
)

// Config holds all runtime settings.
type Config struct {
	// DataFile is the path of the persisted task collection.
	DataFile string `toml:"data_file"`
	// LogLevel controls console diagnostics (debug, info, warn, error).
	LogLevel string `toml:"log_level"`
	// Recover enables automatic recovery from backups when the data file
	// is corrupt, instead of failing the startup load.
	Recover bool `toml:"recover"`
}

// Load resolves the configuration. Flags are registered on the given flag set
// and parsed from args, so the caller keeps control of usage output and of
// the remaining (subcommand) arguments.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}
	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	fs.StringVar(&cfg.DataFile, "file", cfg.DataFile, "Path to the task data file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Recover, "recover", cfg.Recover, "Recover from backups when the data file is corrupt")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.DataFile == "" {
		return nil, fmt.Errorf("data file path must not be empty")
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.DataFile = defaultDataFile
	cfg.LogLevel = defaultLogLevel
	cfg.Recover = false
}

func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv(envDataFile); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// findUserConfigFile looks for ~/.taskforge/taskforge.toml.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".taskforge", "taskforge.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// findProjectConfigFile looks for taskforge.toml or .taskforge.toml in the
// working directory.
func findProjectConfigFile() string {
	for _, name := range []string{"taskforge.toml", ".taskforge.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/loadplan/internal/fetch"
)

const (
	maxWalkDepth = 25
	envPrefix    = "LOADPLAN"
)

// configNames are the config files discovered from the working directory,
// in order of preference.
var configNames = []string{"loadplan.yaml", "loadplan.yml"}

// Config represents the loadplan configuration from loadplan.yaml.
type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Journal JournalConfig `mapstructure:"journal"`
	Output  OutputConfig  `mapstructure:"output"`
}

// FetchConfig holds fetch strategy resolution defaults.
type FetchConfig struct {
	DefaultBatchSize int `mapstructure:"default_batch_size"`
	MaxJoinDepth     int `mapstructure:"max_join_depth"`
}

// JournalConfig holds plan journal settings.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Environment: LOADPLAN_FETCH_DEFAULT_BATCH_SIZE etc.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.default_batch_size", fetch.DefaultBatchSize)
	v.SetDefault("fetch.max_join_depth", 0)
	v.SetDefault("journal.path", "loadplan.db")
	v.SetDefault("output.format", "text")
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Fetch.DefaultBatchSize <= 0 {
		return fmt.Errorf("fetch.default_batch_size must be positive, got %d", c.Fetch.DefaultBatchSize)
	}
	if c.Fetch.MaxJoinDepth < 0 {
		return fmt.Errorf("fetch.max_join_depth must be non-negative, got %d", c.Fetch.MaxJoinDepth)
	}
	if c.Output.Format != "" && !isValidFormat(c.Output.Format) {
		return fmt.Errorf("output.format %q: must be one of %v", c.Output.Format, ValidFormats)
	}
	return nil
}

// ResolvedJournalPath returns the journal path for a command,
// with the command's --journal flag taking precedence over journal.path.
func (c *Config) ResolvedJournalPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return c.Journal.Path
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for loadplan.yaml or loadplan.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repository root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

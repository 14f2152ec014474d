// Package config loads phototidy configuration and resolves it into an
// immutable Paths value that is passed explicitly into each pipeline
// component. Configuration comes from a YAML file under the XDG config
// directory, overridden by PHOTOTIDY_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Components   map[string]string `mapstructure:"components"`
}

// Config represents the application configuration as read from file and
// environment. Call Resolve to turn it into usable absolute paths.
type Config struct {
	ImageRoot      string   `mapstructure:"image_root"`
	OutputRoot     string   `mapstructure:"output_root"`
	DuplicatesName string   `mapstructure:"duplicates_folder"`
	DataDir        string   `mapstructure:"data_dir"`
	Extensions     []string `mapstructure:"extensions"`
	HashWorkers    int      `mapstructure:"hash_workers"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// Paths is the resolved, immutable runtime context consumed by the
// pipeline. All paths are absolute; Extensions is a sorted set of
// lowercase extensions with leading dot.
type Paths struct {
	SchemaVersion  int
	DatabaseDir    string
	ImageRoot      string
	OutputRoot     string
	DuplicatesDir  string
	DuplicatesName string
	PlanJSONPath   string
	Extensions     []string
	HashWorkers    int
}

// HasExtension reports whether path carries one of the recognized
// extensions. Matching is case-insensitive.
func (p Paths) HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	// Extensions is sorted, small enough that binary search is not worth it.
	for _, e := range p.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load loads configuration from file and environment variables.
// Config file location: $XDG_CONFIG_HOME/phototidy/config.yaml.
// Environment variables are prefixed with PHOTOTIDY_ (e.g.
// PHOTOTIDY_IMAGE_ROOT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())

	v.SetEnvPrefix("PHOTOTIDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadFile loads configuration from an explicit file path, with the same
// environment overrides and defaults as Load.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetEnvPrefix("PHOTOTIDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("image_root", filepath.Join(home, DefaultImageRootName))
	v.SetDefault("output_root", filepath.Join(home, DefaultOutputRootName))
	v.SetDefault("duplicates_folder", DefaultDuplicatesFolderName)
	v.SetDefault("data_dir", filepath.Join(xdg.DataHome, "phototidy"))
	v.SetDefault("extensions", DefaultExtensions)
	v.SetDefault("hash_workers", DefaultHashWorkers)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.components", map[string]string{
		"scanner":  "info",
		"planner":  "info",
		"executor": "info",
	})
}

// Resolve validates the configuration and produces the immutable Paths
// context. Directories that the pipeline owns (data dir, output root,
// duplicates dir) are created if missing; the image root is not, since a
// missing source tree is a caller error reported at scan time.
func (c *Config) Resolve() (Paths, error) {
	imageRoot, err := absolutePath(c.ImageRoot)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving image root: %w", err)
	}
	outputRoot, err := absolutePath(c.OutputRoot)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving output root: %w", err)
	}
	dataDir, err := absolutePath(c.DataDir)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving data dir: %w", err)
	}

	dupName := c.DuplicatesName
	if dupName == "" {
		dupName = DefaultDuplicatesFolderName
	}
	duplicatesDir := filepath.Join(outputRoot, dupName)

	for _, dir := range []string{dataDir, outputRoot, duplicatesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	exts := c.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	normalized := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.ToLower(strings.TrimSpace(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			normalized = append(normalized, e)
		}
	}
	sort.Strings(normalized)

	workers := c.HashWorkers
	if workers < 1 {
		workers = DefaultHashWorkers
	}

	return Paths{
		SchemaVersion:  SchemaVersion,
		DatabaseDir:    filepath.Join(dataDir, "db"),
		ImageRoot:      imageRoot,
		OutputRoot:     outputRoot,
		DuplicatesDir:  duplicatesDir,
		DuplicatesName: dupName,
		PlanJSONPath:   filepath.Join(outputRoot, DefaultPlanJSONName),
		Extensions:     normalized,
		HashWorkers:    workers,
	}, nil
}

func absolutePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is empty")
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "phototidy")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	home, _ := os.UserHomeDir()
	defaultConfig := fmt.Sprintf(`# phototidy configuration

# Source tree holding unorganized media files
image_root: %s

# Destination tree for organized files
output_root: %s

# Folder under output_root receiving duplicate group members
duplicates_folder: %s

# Where the inventory, plan and operation log live
data_dir: %s

# Recognized media extensions
extensions:
  - .jpg
  - .jpeg
  - .png
  - .heic
  - .mp4
  - .mov

# Bounded worker count for content hashing (0 = number of CPUs)
hash_workers: 0

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/phototidy/phototidy.log)
  path: ""
  # Console output level (empty disables console logging)
  console_level: ""
  components:
    scanner: info
    planner: info
    executor: info
`,
		filepath.Join(home, DefaultImageRootName),
		filepath.Join(home, DefaultOutputRootName),
		DefaultDuplicatesFolderName,
		filepath.Join(xdg.DataHome, "phototidy"),
	)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

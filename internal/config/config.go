package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	perrors "git.home.luguber.info/inful/umdbuilder/internal/errors"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = "umdbuilder.yaml"

// Config represents the build pipeline configuration. It is constructed once
// at the command entry point and treated as read-only afterwards.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Compiler CompilerConfig `yaml:"compiler"`
	Paths    PathsConfig    `yaml:"paths"`
	Output   OutputConfig   `yaml:"output"`
	History  HistoryConfig  `yaml:"history,omitempty"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`

	// Overrides are read from the process environment, never from YAML.
	Overrides Overrides `yaml:"-"`
}

// SourceConfig describes where the upstream sources come from.
type SourceConfig struct {
	Version     string         `yaml:"version"`
	Strategy    SourceStrategy `yaml:"strategy,omitempty"`
	ArchiveURL  string         `yaml:"archive_url,omitempty"` // {version} is substituted
	ArchiveName string         `yaml:"archive_name,omitempty"`
	GitURL      string         `yaml:"git_url,omitempty"`
	ExtractDir  string         `yaml:"extract_dir,omitempty"`
}

// SourceStrategy selects how upstream sources are fetched.
type SourceStrategy string

const (
	StrategyArchive SourceStrategy = "archive"
	StrategyGit     SourceStrategy = "git"
)

// CompilerConfig configures the external source-to-script compiler.
type CompilerConfig struct {
	Binary                 string   `yaml:"binary,omitempty"`
	ModulePrefix           string   `yaml:"module_prefix,omitempty"`
	Module                 string   `yaml:"module"`
	StdlibPath             string   `yaml:"stdlib_path,omitempty"`
	DynamicRequireSeverity string   `yaml:"dynamic_require_severity,omitempty"`
	ExtraArgs              []string `yaml:"extra_args,omitempty"`
}

// PathsConfig holds the pipeline's input and scratch locations.
type PathsConfig struct {
	Workspace string `yaml:"workspace,omitempty"`
	Overrides string `yaml:"overrides,omitempty"`
	Template  string `yaml:"template,omitempty"` // empty uses the embedded loader template
}

// OutputConfig represents the distribution directory contract.
type OutputConfig struct {
	Directory string `yaml:"directory,omitempty"`
	Filename  string `yaml:"filename,omitempty"`
}

// HistoryConfig enables the SQLite build history.
type HistoryConfig struct {
	Database string `yaml:"database,omitempty"`
}

// NotifyConfig enables publish notifications over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig enables writing a Prometheus textfile after each build.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	if err := applyDefaults(cfg); err != nil {
		// applyDefaults only fails on malformed input, never on an empty config
		panic(err)
	}
	return cfg
}

// Load loads configuration from the specified file. Environment variables in
// the YAML content are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, perrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, perrors.ConfigInvalid(configPath, fmt.Errorf("read config file: %w", err))
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, perrors.ConfigInvalid(configPath, fmt.Errorf("unmarshal config: %w", err))
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, perrors.ConfigInvalid(configPath, err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configPath when it exists and falls back to Default otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Debug("No configuration file, using defaults", "path", configPath)
		return Default(), nil
	}
	return Load(configPath)
}

// Init creates a new configuration file populated with the defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Package config provides CLI configuration management for the agri command-line tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultModel        = "gpt-4o-mini"
	DefaultTimeout      = 60 * time.Second
	DefaultConcurrency  = 0
	DefaultOutputFormat = OutputFormatText
	DefaultMetricsJob   = "agriclassify"
	DefaultConfigDir    = ".agriclassify"
	DefaultConfigFile   = "config.yaml"
)

// RecognitionConfig holds settings for the recognition and summarization service.
type RecognitionConfig struct {
	// BaseURL overrides the OpenAI-compatible API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the vision model used to classify images.
	Model string `yaml:"model"`

	// SummaryModel is used for summaries. Empty means Model.
	SummaryModel string `yaml:"summary_model,omitempty"`

	// Timeout bounds each classification and summarization call.
	Timeout time.Duration `yaml:"-"`
}

// BatchConfig holds batch run settings.
type BatchConfig struct {
	// Concurrency caps simultaneous classification calls. 0 means unlimited.
	Concurrency int `yaml:"concurrency,omitempty"`

	// ExamplesDir is loaded as the example set when no --example flags are given.
	ExamplesDir string `yaml:"examples_dir,omitempty"`
}

// EventsConfig holds Redis settings for publishing run events.
// Publishing is disabled when RedisAddr is empty.
type EventsConfig struct {
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
}

// Enabled reports whether events should be published.
func (e EventsConfig) Enabled() bool {
	return e.RedisAddr != ""
}

// MetricsConfig holds Prometheus Pushgateway settings.
// Pushing is disabled when PushgatewayURL is empty.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty"`
	JobName        string `yaml:"job_name,omitempty"`
}

// Enabled reports whether metrics should be pushed.
func (m MetricsConfig) Enabled() bool {
	return m.PushgatewayURL != ""
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Batch       BatchConfig       `yaml:"batch"`
	Events      EventsConfig      `yaml:"events"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Recognition: RecognitionConfig{
			Model:   DefaultModel,
			Timeout: DefaultTimeout,
		},
		Batch:        BatchConfig{Concurrency: DefaultConcurrency},
		Metrics:      MetricsConfig{JobName: DefaultMetricsJob},
		OutputFormat: DefaultOutputFormat,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $AGRI_CONFIG_DIR if set, otherwise ~/.agriclassify
func ConfigDir() (string, error) {
	if dir := os.Getenv("AGRI_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.agriclassify/config.yaml or $AGRI_CONFIG_DIR/config.yaml)
// 3. Environment variables (AGRI_MODEL, AGRI_TIMEOUT, AGRI_OUTPUT, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// configFile mirrors CLIConfig with the timeout as a duration string.
type configFile struct {
	Recognition struct {
		RecognitionConfig `yaml:",inline"`
		Timeout           string `yaml:"timeout,omitempty"`
	} `yaml:"recognition"`
	Batch        BatchConfig   `yaml:"batch,omitempty"`
	Events       EventsConfig  `yaml:"events,omitempty"`
	Metrics      MetricsConfig `yaml:"metrics,omitempty"`
	OutputFormat OutputFormat  `yaml:"output_format"`
	Debug        bool          `yaml:"debug,omitempty"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	rec := fileCfg.Recognition
	if rec.BaseURL != "" {
		cfg.Recognition.BaseURL = rec.BaseURL
	}
	if rec.Model != "" {
		cfg.Recognition.Model = rec.Model
	}
	if rec.SummaryModel != "" {
		cfg.Recognition.SummaryModel = rec.SummaryModel
	}
	if rec.Timeout != "" {
		timeout, err := time.ParseDuration(rec.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Recognition.Timeout = timeout
	}
	if fileCfg.Batch.Concurrency != 0 {
		cfg.Batch.Concurrency = fileCfg.Batch.Concurrency
	}
	if fileCfg.Batch.ExamplesDir != "" {
		cfg.Batch.ExamplesDir = fileCfg.Batch.ExamplesDir
	}
	cfg.Events = fileCfg.Events
	if fileCfg.Metrics.PushgatewayURL != "" {
		cfg.Metrics.PushgatewayURL = fileCfg.Metrics.PushgatewayURL
	}
	if fileCfg.Metrics.JobName != "" {
		cfg.Metrics.JobName = fileCfg.Metrics.JobName
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("AGRI_BASE_URL"); v != "" {
		cfg.Recognition.BaseURL = v
	}

	if v := os.Getenv("AGRI_MODEL"); v != "" {
		cfg.Recognition.Model = v
	}

	if v := os.Getenv("AGRI_SUMMARY_MODEL"); v != "" {
		cfg.Recognition.SummaryModel = v
	}

	if v := os.Getenv("AGRI_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Recognition.Timeout = timeout
		}
	}

	if v := os.Getenv("AGRI_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Concurrency = n
		}
	}

	if v := os.Getenv("AGRI_EXAMPLES_DIR"); v != "" {
		cfg.Batch.ExamplesDir = v
	}

	if v := os.Getenv("AGRI_OUTPUT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("AGRI_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("AGRI_REDIS_ADDR"); v != "" {
		cfg.Events.RedisAddr = v
	}

	if v := os.Getenv("AGRI_REDIS_PASSWORD"); v != "" {
		cfg.Events.RedisPassword = v
	}

	if v := os.Getenv("AGRI_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if strings.TrimSpace(c.Recognition.Model) == "" {
		return fmt.Errorf("recognition.model is required")
	}

	if c.Recognition.Timeout <= 0 {
		return fmt.Errorf("recognition.timeout must be positive")
	}

	if c.Recognition.BaseURL != "" {
		if u, err := url.Parse(c.Recognition.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid recognition.base_url: %q", c.Recognition.BaseURL)
		}
	}

	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must not be negative")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	var fileCfg configFile
	fileCfg.Recognition.RecognitionConfig = cfg.Recognition
	fileCfg.Recognition.Timeout = cfg.Recognition.Timeout.String()
	fileCfg.Batch = cfg.Batch
	fileCfg.Events = cfg.Events
	fileCfg.Metrics = cfg.Metrics
	fileCfg.OutputFormat = cfg.OutputFormat
	fileCfg.Debug = cfg.Debug

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"AGRI_CONFIG_DIR",
	"AGRI_BASE_URL",
	"AGRI_MODEL",
	"AGRI_SUMMARY_MODEL",
	"AGRI_TIMEOUT",
	"AGRI_CONCURRENCY",
	"AGRI_EXAMPLES_DIR",
	"AGRI_OUTPUT",
	"AGRI_DEBUG",
	"AGRI_REDIS_ADDR",
	"AGRI_REDIS_PASSWORD",
	"AGRI_PUSHGATEWAY_URL",
}

// isolate clears every AGRI_* variable and points the config dir at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("AGRI_CONFIG_DIR", dir)
	return dir
}

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Recognition.Model != DefaultModel {
		t.Errorf("Model = %v, want %v", cfg.Recognition.Model, DefaultModel)
	}
	if cfg.Recognition.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Recognition.Timeout, DefaultTimeout)
	}
	if cfg.Batch.Concurrency != 0 {
		t.Errorf("Concurrency = %v, want 0 (unlimited)", cfg.Batch.Concurrency)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.Events.Enabled() {
		t.Error("events should be disabled by default")
	}
	if cfg.Metrics.Enabled() {
		t.Error("metrics push should be disabled by default")
	}
	if cfg.Metrics.JobName != DefaultMetricsJob {
		t.Errorf("JobName = %v, want %v", cfg.Metrics.JobName, DefaultMetricsJob)
	}
	if cfg.Debug {
		t.Error("Debug should be false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false}, // Case sensitive
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestCLIConfig_Validate verifies configuration validation.
func TestCLIConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CLIConfig)
		errMsg string
	}{
		{name: "valid config", mutate: func(*CLIConfig) {}},
		{name: "missing model", mutate: func(c *CLIConfig) { c.Recognition.Model = " " }, errMsg: "model is required"},
		{name: "zero timeout", mutate: func(c *CLIConfig) { c.Recognition.Timeout = 0 }, errMsg: "timeout must be positive"},
		{name: "bad base url", mutate: func(c *CLIConfig) { c.Recognition.BaseURL = "localhost" }, errMsg: "invalid recognition.base_url"},
		{name: "good base url", mutate: func(c *CLIConfig) { c.Recognition.BaseURL = "http://localhost:8000/v1/" }},
		{name: "negative concurrency", mutate: func(c *CLIConfig) { c.Batch.Concurrency = -1 }, errMsg: "concurrency"},
		{name: "bad output", mutate: func(c *CLIConfig) { c.OutputFormat = "xml" }, errMsg: "invalid output_format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("Validate() error = %v, want containing %q", err, tc.errMsg)
			}
		})
	}
}

// TestConfigDir verifies the config directory override.
func TestConfigDir(t *testing.T) {
	t.Setenv("AGRI_CONFIG_DIR", "/custom/config/dir")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != "/custom/config/dir" {
		t.Errorf("ConfigDir() = %v, want /custom/config/dir", dir)
	}

	t.Setenv("AGRI_CONFIG_DIR", "")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if filepath.Base(dir) != DefaultConfigDir {
		t.Errorf("ConfigDir() = %v, want suffix %v", dir, DefaultConfigDir)
	}
}

// TestLoadConfig_Defaults verifies default values when no config exists.
func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Recognition.Model != DefaultModel {
		t.Errorf("Model = %v, want %v", cfg.Recognition.Model, DefaultModel)
	}
	if cfg.Recognition.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Recognition.Timeout, DefaultTimeout)
	}
}

// TestLoadConfig_WithEnvOverrides verifies environment variable overrides.
func TestLoadConfig_WithEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("AGRI_BASE_URL", "http://localhost:11434/v1/")
	t.Setenv("AGRI_MODEL", "llava")
	t.Setenv("AGRI_SUMMARY_MODEL", "llama3")
	t.Setenv("AGRI_TIMEOUT", "45s")
	t.Setenv("AGRI_CONCURRENCY", "3")
	t.Setenv("AGRI_OUTPUT", "json")
	t.Setenv("AGRI_DEBUG", "1")
	t.Setenv("AGRI_REDIS_ADDR", "localhost:6379")
	t.Setenv("AGRI_PUSHGATEWAY_URL", "http://localhost:9091")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Recognition.BaseURL != "http://localhost:11434/v1/" {
		t.Errorf("BaseURL = %v", cfg.Recognition.BaseURL)
	}
	if cfg.Recognition.Model != "llava" || cfg.Recognition.SummaryModel != "llama3" {
		t.Errorf("models = %v / %v", cfg.Recognition.Model, cfg.Recognition.SummaryModel)
	}
	if cfg.Recognition.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Recognition.Timeout)
	}
	if cfg.Batch.Concurrency != 3 {
		t.Errorf("Concurrency = %v, want 3", cfg.Batch.Concurrency)
	}
	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if !cfg.Events.Enabled() {
		t.Error("events should be enabled")
	}
	if !cfg.Metrics.Enabled() {
		t.Error("metrics push should be enabled")
	}
}

// TestLoadFromEnv_InvalidValues verifies unparseable values are ignored.
func TestLoadFromEnv_InvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("AGRI_TIMEOUT", "soon")
	t.Setenv("AGRI_CONCURRENCY", "many")

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if cfg.Recognition.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Recognition.Timeout)
	}
	if cfg.Batch.Concurrency != 0 {
		t.Errorf("Concurrency = %v, want default", cfg.Batch.Concurrency)
	}
}

// TestLoadConfig_FromFile verifies loading from a YAML file.
func TestLoadConfig_FromFile(t *testing.T) {
	dir := isolate(t)

	content := `recognition:
  base_url: https://openrouter.ai/api/v1/
  model: google/gemini-flash
  timeout: 90s
batch:
  concurrency: 4
  examples_dir: ~/produce-examples
events:
  redis_addr: redis:6379
  redis_db: 2
metrics:
  pushgateway_url: http://pushgateway:9091
output_format: yaml
debug: true
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Recognition.Model != "google/gemini-flash" {
		t.Errorf("Model = %v", cfg.Recognition.Model)
	}
	if cfg.Recognition.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Recognition.Timeout)
	}
	if cfg.Batch.Concurrency != 4 || cfg.Batch.ExamplesDir != "~/produce-examples" {
		t.Errorf("Batch = %+v", cfg.Batch)
	}
	if cfg.Events.RedisAddr != "redis:6379" || cfg.Events.RedisDB != 2 {
		t.Errorf("Events = %+v", cfg.Events)
	}
	if cfg.Metrics.JobName != DefaultMetricsJob {
		t.Errorf("JobName = %v, want default kept", cfg.Metrics.JobName)
	}
	if cfg.OutputFormat != OutputFormatYAML || !cfg.Debug {
		t.Errorf("OutputFormat = %v, Debug = %v", cfg.OutputFormat, cfg.Debug)
	}
}

// TestLoadConfig_InvalidTimeout verifies a bad duration in the file is an error.
func TestLoadConfig_InvalidTimeout(t *testing.T) {
	dir := isolate(t)
	content := "recognition:\n  model: m\n  timeout: forever\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail on an invalid timeout")
	}
}

// TestSaveConfig verifies a saved config loads back unchanged.
func TestSaveConfig(t *testing.T) {
	dir := filepath.Join(isolate(t), "nested")
	t.Setenv("AGRI_CONFIG_DIR", dir)

	cfg := DefaultConfig()
	cfg.Recognition.SummaryModel = "gpt-4o"
	cfg.Recognition.Timeout = 2 * time.Minute
	cfg.Batch.Concurrency = 5
	cfg.OutputFormat = OutputFormatJSON

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, DefaultConfigFile))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 600", perm)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Recognition.SummaryModel != "gpt-4o" {
		t.Errorf("SummaryModel = %v", loaded.Recognition.SummaryModel)
	}
	if loaded.Recognition.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", loaded.Recognition.Timeout)
	}
	if loaded.Batch.Concurrency != 5 {
		t.Errorf("Concurrency = %v, want 5", loaded.Batch.Concurrency)
	}
	if loaded.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", loaded.OutputFormat)
	}
}

// TestExpandPath verifies home directory expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandPath("~/examples")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if got != filepath.Join(home, "examples") {
		t.Errorf("ExpandPath() = %v", got)
	}

	if got, _ := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath() = %v, want unchanged", got)
	}
	if got, _ := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath() = %v, want empty", got)
	}
}

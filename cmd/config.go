package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/agriclassify/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `View and modify the agri CLI configuration settings.`,
	}

	cmd.AddCommand(newConfigShowCommand(out))
	cmd.AddCommand(newConfigInitCommand(out))
	cmd.AddCommand(newConfigSetCommand(out))
	return cmd
}

func newConfigShowCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the effective configuration: file values with environment overrides applied.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			configPath, _ := config.ConfigPath()

			fmt.Fprintln(out, "Current configuration:")
			fmt.Fprintf(out, "  Config file:      %s\n", configPath)
			fmt.Fprintf(out, "  Base URL:         %s\n", valueOrDefault(cfg.Recognition.BaseURL, "(OpenAI default)"))
			fmt.Fprintf(out, "  Model:            %s\n", cfg.Recognition.Model)
			fmt.Fprintf(out, "  Summary model:    %s\n", valueOrDefault(cfg.Recognition.SummaryModel, "(same as model)"))
			fmt.Fprintf(out, "  Timeout:          %s\n", cfg.Recognition.Timeout)
			fmt.Fprintf(out, "  Concurrency:      %s\n", concurrencyString(cfg.Batch.Concurrency))
			fmt.Fprintf(out, "  Examples dir:     %s\n", valueOrDefault(cfg.Batch.ExamplesDir, "(not set)"))
			fmt.Fprintf(out, "  Redis events:     %s\n", valueOrDefault(cfg.Events.RedisAddr, "(disabled)"))
			fmt.Fprintf(out, "  Pushgateway:      %s\n", valueOrDefault(cfg.Metrics.PushgatewayURL, "(disabled)"))
			fmt.Fprintf(out, "  Output format:    %s\n", cfg.OutputFormat)
			fmt.Fprintf(out, "  Debug:            %t\n", cfg.Debug)
			return nil
		},
	}
}

func newConfigInitCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  `Create a new configuration file with default values if one doesn't exist.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.ConfigPath()
			if err != nil {
				return fmt.Errorf("getting config path: %w", err)
			}

			if _, err := os.Stat(configPath); err == nil {
				fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
				fmt.Fprintln(out, "Use 'agri config show' to view current settings.")
				return nil
			}

			defaultCfg := config.DefaultConfig()
			if err := config.SaveConfig(defaultCfg); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
			fmt.Fprintln(out, "\nDefault settings:")
			fmt.Fprintf(out, "  Model:          %s\n", defaultCfg.Recognition.Model)
			fmt.Fprintf(out, "  Timeout:        %s\n", defaultCfg.Recognition.Timeout)
			fmt.Fprintf(out, "  Output format:  %s\n", defaultCfg.OutputFormat)
			return nil
		},
	}
}

func newConfigSetCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file.

Available keys:
  base_url         - OpenAI-compatible API endpoint
  model            - Vision model used for classification
  summary_model    - Model used for summaries (empty = model)
  timeout          - Per-call timeout (e.g., 30s, 2m)
  concurrency      - Maximum simultaneous calls (0 = unlimited)
  examples_dir     - Default example set directory (supports ~)
  redis_addr       - Redis address for run events (empty disables)
  pushgateway_url  - Prometheus Pushgateway URL (empty disables)
  output_format    - Default output format (text, json, yaml)
  debug            - Enable debug logging (true/false)

Examples:
  agri config set model gpt-4o
  agri config set base_url http://localhost:8000/v1
  agri config set concurrency 4
  agri config set examples_dir ~/produce-examples

Values starting with "-" must follow "--":
  agri config set concurrency -- -1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			current, err := config.LoadConfig()
			if err != nil {
				current = config.DefaultConfig()
			}

			if err := applyConfigValue(current, key, value); err != nil {
				return err
			}
			if err := current.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveConfig(current); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Fprintf(out, "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func applyConfigValue(cfg *config.CLIConfig, key, value string) error {
	switch key {
	case "base_url":
		cfg.Recognition.BaseURL = value
	case "model":
		cfg.Recognition.Model = value
	case "summary_model":
		cfg.Recognition.SummaryModel = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		cfg.Recognition.Timeout = d
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid concurrency value: %w", err)
		}
		cfg.Batch.Concurrency = n
	case "examples_dir":
		if _, err := config.ExpandPath(value); err != nil {
			return fmt.Errorf("invalid examples dir: %w", err)
		}
		cfg.Batch.ExamplesDir = value
	case "redis_addr":
		cfg.Events.RedisAddr = value
	case "pushgateway_url":
		cfg.Metrics.PushgatewayURL = value
	case "output_format":
		format := config.OutputFormat(value)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
		}
		cfg.OutputFormat = format
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
		}
		cfg.Debug = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func concurrencyString(n int) string {
	if n == 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

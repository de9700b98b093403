// Package cmd provides CLI commands for the agri tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/agriclassify/config"
)

// writeOutput renders v as JSON or YAML, or calls text for human output.
func writeOutput(w io.Writer, format config.OutputFormat, v interface{}, text func(io.Writer) error) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case config.OutputFormatText, "":
		return text(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// resolveFormat prefers a non-empty flag value over the configured format.
func resolveFormat(flag string, cfg *config.CLIConfig) (config.OutputFormat, error) {
	if flag == "" {
		return cfg.OutputFormat, nil
	}
	format := config.OutputFormat(flag)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", flag)
	}
	return format, nil
}

// Package cmd provides CLI commands for the insights tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/meeting-insights/config"
)

// renderOutput writes v to w in the requested format. Text rendering is the
// caller's job; this handles the machine formats and falls back to JSON for
// unknown formats.
func renderOutput(w io.Writer, format config.OutputFormat, v any, text func(io.Writer) error) error {
	switch format {
	case config.OutputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case config.OutputFormatText:
		if text != nil {
			return text(w)
		}
		fallthrough
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// resolveFormat applies the -o flag over the configured default.
func resolveFormat(cfg *config.Config, flag string) config.OutputFormat {
	if flag != "" {
		return config.OutputFormat(flag)
	}
	return cfg.OutputFormat
}

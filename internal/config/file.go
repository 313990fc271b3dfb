package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config format %q (use .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Parse decodes data over the defaults. Unknown keys are rejected; keys that
// are absent keep their default value. The result is not validated.
func Parse(data []byte, format Format) (Config, error) {
	cfg := Default()
	if err := decodeInto(&cfg, data, format); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeInto(cfg *Config, data []byte, format Format) error {
	var err error

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
		if err == nil {
			// More() is false on a stray closing delimiter, so only io.EOF counts as clean
			if _, tokErr := dec.Token(); tokErr != io.EOF {
				err = fmt.Errorf("config contains trailing content after the JSON document")
			}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if err == nil {
			if extra := dec.Decode(&struct{}{}); extra != io.EOF {
				err = fmt.Errorf("config contains multiple YAML documents")
			}
		}
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}

	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	msg := err.Error()
	if strings.Contains(msg, "unknown field") || (strings.Contains(msg, "field") && strings.Contains(msg, "not found")) {
		return &ConfigurationError{Violations: []Violation{{
			Fields:  []string{"file"},
			Rule:    RuleUnknownField,
			Message: msg,
		}}}
	}
	return &ConfigurationError{Violations: []Violation{{
		Fields:  []string{"file"},
		Rule:    RuleFormat,
		Message: msg,
	}}}
}

func Marshal(cfg Config, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

// Save writes cfg to path atomically, encoding by file extension.
func Save(path string, cfg Config) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(cfg, format)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

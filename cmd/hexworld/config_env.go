package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"hexworld/internal/config"
)

const (
	envConfigJSON    = "HEXWORLD_CONFIG_JSON"
	envConfigYAMLB64 = "HEXWORLD_CONFIG_YAML_B64"
)

// loadConfig returns the configuration for this run and where it came from.
// A document in HEXWORLD_CONFIG_JSON, or base64 YAML in
// HEXWORLD_CONFIG_YAML_B64, replaces the file at path.
func loadConfig(path string) (*config.Config, string, error) {
	if doc := os.Getenv(envConfigJSON); doc != "" {
		cfg, err := config.Parse([]byte(doc), config.FormatJSON)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", envConfigJSON, err)
		}
		return cfg, envConfigJSON, nil
	}

	if encoded := os.Getenv(envConfigYAMLB64); encoded != "" {
		doc, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("%s: decode base64: %w", envConfigYAMLB64, err)
		}
		cfg, err := config.Parse(doc, config.FormatYAML)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", envConfigYAMLB64, err)
		}
		return cfg, envConfigYAMLB64, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return cfg, "defaults", nil
	}
	return cfg, path, nil
}

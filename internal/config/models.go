package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ModelConfig describes one selectable chat model.
type ModelConfig struct {
	DisplayName string `yaml:"display_name" json:"displayName"`
	Provider    string `yaml:"provider" json:"provider"`
	Model       string `yaml:"model" json:"model"`
}

// ModelCatalog is the set of models the chat UI may submit against.
type ModelCatalog struct {
	Models []ModelConfig `yaml:"models"`
}

// Validate performs validation of a ModelCatalog value:
// - Checks that the model list is not empty
// - Checks that every entry carries a provider and a model name
// - Checks for duplicate provider/model pairs
func (c *ModelCatalog) Validate() error {
	if len(c.Models) == 0 {
		return errors.New("no models specified in model catalog")
	}

	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if m.Provider == "" || m.Model == "" {
			return fmt.Errorf("model catalog entry %q is missing provider or model", m.DisplayName)
		}

		key := m.Provider + "/" + m.Model
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate model catalog entry for %v", key)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// Contains reports whether the catalog carries the given provider/model pair.
func (c *ModelCatalog) Contains(provider, model string) bool {
	for _, m := range c.Models {
		if m.Provider == provider && m.Model == model {
			return true
		}
	}
	return false
}

// Default returns the first catalog entry. Valid catalogs are never empty.
func (c *ModelCatalog) Default() ModelConfig {
	return c.Models[0]
}

// LoadModelCatalog reads and validates a model catalog from a YAML file.
func LoadModelCatalog(path string) (*ModelCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog ModelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// DefaultModelCatalog returns the built-in catalog used when no file is configured.
func DefaultModelCatalog() *ModelCatalog {
	return &ModelCatalog{
		Models: []ModelConfig{
			{DisplayName: "GPT-4o mini", Provider: "openai", Model: "gpt-4o-mini"},
			{DisplayName: "GPT-4o", Provider: "openai", Model: "gpt-4o"},
			{DisplayName: "Claude 3.5 Sonnet", Provider: "anthropic", Model: "claude-3-5-sonnet"},
			{DisplayName: "Gemini 2.0 Flash", Provider: "google", Model: "gemini-2.0-flash"},
		},
	}
}

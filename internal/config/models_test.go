package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestModelCatalogValidate(t *testing.T) {
	tests := []struct {
		name    string
		catalog ModelCatalog
		wantErr bool
	}{
		{
			name: "valid catalog",
			catalog: ModelCatalog{Models: []ModelConfig{
				{DisplayName: "A", Provider: "openai", Model: "gpt-4o"},
				{DisplayName: "B", Provider: "anthropic", Model: "claude-3-5-sonnet"},
			}},
		},
		{
			name:    "empty catalog",
			catalog: ModelCatalog{},
			wantErr: true,
		},
		{
			name: "missing provider",
			catalog: ModelCatalog{Models: []ModelConfig{
				{DisplayName: "A", Model: "gpt-4o"},
			}},
			wantErr: true,
		},
		{
			name: "duplicate pair",
			catalog: ModelCatalog{Models: []ModelConfig{
				{DisplayName: "A", Provider: "openai", Model: "gpt-4o"},
				{DisplayName: "A again", Provider: "openai", Model: "gpt-4o"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestModelCatalogContains(t *testing.T) {
	c := DefaultModelCatalog()
	if !c.Contains("openai", "gpt-4o-mini") {
		t.Error("expected the default catalog to contain openai/gpt-4o-mini")
	}
	if c.Contains("openai", "nonexistent") {
		t.Error("unexpected hit for an unknown model")
	}
}

func TestLoadModelCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	content := `models:
  - display_name: "GPT-4o"
    provider: "openai"
    model: "gpt-4o"
  - display_name: "Claude 3.5 Sonnet"
    provider: "anthropic"
    model: "claude-3-5-sonnet"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadModelCatalog(path)
	if err != nil {
		t.Fatalf("LoadModelCatalog failed: %v", err)
	}
	if len(catalog.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(catalog.Models))
	}
	if d := catalog.Default(); d.Provider != "openai" || d.Model != "gpt-4o" {
		t.Errorf("unexpected default model: %+v", d)
	}
}

func TestLoadModelCatalogRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("models: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModelCatalog(path); err == nil {
		t.Error("expected an error for an empty catalog")
	}
}

func TestLoadModelCatalogMissingFile(t *testing.T) {
	if _, err := LoadModelCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

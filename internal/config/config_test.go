package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.UseMockData {
		t.Fatal("UseMockData = true, want false")
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL || cfg.WSBaseURL != DefaultWSBaseURL {
		t.Fatalf("base urls = %q/%q, want defaults", cfg.APIBaseURL, cfg.WSBaseURL)
	}
	for _, name := range []string{FeatureRealTimeChat, FeatureVideoProcessing, FeatureAnalytics, FeatureBilling} {
		if !cfg.Feature(name) {
			t.Errorf("Feature(%q) = false, want true", name)
		}
	}
	if cfg.Feature("unknown") {
		t.Error("Feature(unknown) = true, want false")
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load returned nil error for missing explicit file")
	}
}

func TestLoad_ReadsFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
store = "memory:"

[api]
use_mock_data = true
base_url = "https://api.example.com"
ws_base_url = "wss://ws.example.com"

[features]
billing = false
beta = true

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("WATCHPARTY_WS_BASE_URL", "wss://override.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.UseMockData {
		t.Error("UseMockData = false, want true")
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.WSBaseURL != "wss://override.example.com" {
		t.Errorf("WSBaseURL = %q, want env override", cfg.WSBaseURL)
	}
	if cfg.Feature(FeatureBilling) {
		t.Error("billing should be disabled by file")
	}
	if !cfg.Feature("beta") || !cfg.Feature(FeatureAnalytics) {
		t.Error("file flags should merge with defaults")
	}
	if cfg.StoreURL != "memory:" || cfg.LogLevel != "debug" {
		t.Errorf("store/log = %q/%q", cfg.StoreURL, cfg.LogLevel)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load returned nil error for invalid TOML")
	}
}

func TestLoad_EnvMockFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WATCHPARTY_USE_MOCK_DATA", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.UseMockData {
		t.Fatal("UseMockData = false, want true from env")
	}
}

func TestClone_IsolatesFeatures(t *testing.T) {
	cfg := Defaults()
	dup := cfg.Clone()
	dup.Features[FeatureBilling] = false
	if !cfg.Feature(FeatureBilling) {
		t.Fatal("Clone shares feature map with original")
	}
}

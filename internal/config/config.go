package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Defaults
const (
	DefaultConfigPath = "~/.config/watchparty/config.toml"
	DefaultAPIBaseURL = "http://localhost:8000"
	DefaultWSBaseURL  = "ws://localhost:8000"
	DefaultStoreURL   = "sqlite:~/.config/watchparty/settings.db"
	DefaultLogLevel   = "info"
	DefaultAppName    = "WatchTogether"
	DefaultAppVersion = "1.0.0"
)

// Feature flag names.
const (
	FeatureRealTimeChat    = "realTimeChat"
	FeatureVideoProcessing = "videoProcessing"
	FeatureAnalytics       = "analytics"
	FeatureBilling         = "billing"
)

// Config holds the process-wide static settings. It is read once at startup
// and passed by value.
type Config struct {
	UseMockData bool
	APIBaseURL  string
	WSBaseURL   string
	Features    map[string]bool
	AppName     string
	AppVersion  string
	StoreURL    string
	LogLevel    string
	LogFile     string
	RelayURL    string
}

type fileConfig struct {
	API struct {
		UseMockData *bool  `toml:"use_mock_data"`
		BaseURL     string `toml:"base_url"`
		WSBaseURL   string `toml:"ws_base_url"`
	} `toml:"api"`
	Features map[string]bool `toml:"features"`
	App      struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"app"`
	Store string `toml:"store"`
	Log   struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	Relay struct {
		URL string `toml:"url"`
	} `toml:"relay"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIBaseURL: DefaultAPIBaseURL,
		WSBaseURL:  DefaultWSBaseURL,
		Features: map[string]bool{
			FeatureRealTimeChat:    true,
			FeatureVideoProcessing: true,
			FeatureAnalytics:       true,
			FeatureBilling:         true,
		},
		AppName:    DefaultAppName,
		AppVersion: DefaultAppVersion,
		StoreURL:   DefaultStoreURL,
		LogLevel:   DefaultLogLevel,
	}
}

// Load reads the optional TOML file at path (empty uses the default location)
// and applies environment overrides on top. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := applyFile(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("config file not found: %s", resolved)
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, data []byte) error {
	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.API.UseMockData != nil {
		cfg.UseMockData = *raw.API.UseMockData
	}
	cfg.APIBaseURL = firstNonEmpty(raw.API.BaseURL, cfg.APIBaseURL)
	cfg.WSBaseURL = firstNonEmpty(raw.API.WSBaseURL, cfg.WSBaseURL)
	for name, enabled := range raw.Features {
		cfg.Features[name] = enabled
	}
	cfg.AppName = firstNonEmpty(raw.App.Name, cfg.AppName)
	cfg.AppVersion = firstNonEmpty(raw.App.Version, cfg.AppVersion)
	cfg.StoreURL = firstNonEmpty(raw.Store, cfg.StoreURL)
	cfg.LogLevel = firstNonEmpty(raw.Log.Level, cfg.LogLevel)
	cfg.LogFile = firstNonEmpty(raw.Log.File, cfg.LogFile)
	cfg.RelayURL = firstNonEmpty(raw.Relay.URL, cfg.RelayURL)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.UseMockData = getEnvBool("WATCHPARTY_USE_MOCK_DATA", cfg.UseMockData)
	cfg.APIBaseURL = getEnv("WATCHPARTY_API_BASE_URL", cfg.APIBaseURL)
	cfg.WSBaseURL = getEnv("WATCHPARTY_WS_BASE_URL", cfg.WSBaseURL)
	cfg.StoreURL = getEnv("WATCHPARTY_STORE", cfg.StoreURL)
	cfg.LogLevel = getEnv("WATCHPARTY_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("WATCHPARTY_LOG_FILE", cfg.LogFile)
	cfg.RelayURL = getEnv("WATCHPARTY_RELAY_URL", cfg.RelayURL)
}

// Feature reports whether the named feature flag is enabled.
func (c Config) Feature(name string) bool {
	return c.Features[name]
}

// Clone returns a copy that shares no mutable state with c.
func (c Config) Clone() Config {
	c.Features = maps.Clone(c.Features)
	return c
}

func firstNonEmpty(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

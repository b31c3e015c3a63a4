package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config drives the CLI and the daemon. Credentials resolve in order:
// environment, config file, encrypted credentials file.
type Config struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`

	// Contract restricts fetching to one contract id; empty means all.
	Contract string `json:"contract,omitempty"`

	TimeoutSeconds int    `json:"timeout_seconds"`
	LogLevel       string `json:"log_level"`

	// FrequencyMinutes is the daemon gather interval.
	FrequencyMinutes int `json:"frequency_minutes"`

	// HistoryDBPath is the SQLite consumption history location.
	HistoryDBPath string `json:"history_db_path,omitempty"`

	// BrowserCookies seeds the session from installed browsers before login.
	BrowserCookies bool `json:"browser_cookies"`

	Hourly bool `json:"hourly"`
}

func DefaultConfig() Config {
	return Config{
		TimeoutSeconds:   30,
		LogLevel:         "warn",
		FrequencyMinutes: 360,
		HistoryDBPath:    filepath.Join(ConfigDir(), "history.db"),
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "hydroscan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hydroscan")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.FrequencyMinutes <= 0 {
		cfg.FrequencyMinutes = 360
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = DefaultConfig().HistoryDBPath
	}

	return applyEnv(cfg), nil
}

// applyEnv lets environment variables override the file, the historical
// precedence of this tool's deployments.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("HYDROSCAN_USER"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("HYDROSCAN_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("HYDROSCAN_CONTRACT"); v != "" {
		cfg.Contract = v
	}
	return cfg
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

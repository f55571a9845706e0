// Package config loads and validates m9aup configuration from defaults,
// config files, and environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Configuration holds all settings for an update run.
type Configuration struct {
	InstallDir          string `koanf:"install_dir" validate:"required"`
	CacheDir            string `koanf:"cache_dir" validate:"required"`
	Repo                string `koanf:"repo" validate:"required"`
	Proxy               string `koanf:"proxy"`
	FullDownloadEnabled bool   `koanf:"full_download_enabled"`
	HTTPTimeout         int    `koanf:"http_timeout" validate:"min=1,max=3600"` // seconds
	ShowProgress        bool   `koanf:"show_progress"`
	LogSaveEnabled      bool   `koanf:"log_save_enabled"`
	LogDir              string `koanf:"log_dir"`
	LogMaxFiles         int    `koanf:"log_max_files" validate:"min=1,max=1000"`
}

// Load loads configuration from user config, local config, and environment.
// Priority: Environment variables > Local config > User config > Defaults.
func Load(localConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	if userPath, err := UserConfigPath(); err == nil {
		if _, err := os.Stat(userPath); err == nil {
			if err := k.Load(file.Provider(userPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load user config: %w", err)
			}
		}
	}

	if localConfigPath != "" {
		if _, err := os.Stat(localConfigPath); err == nil {
			if err := k.Load(file.Provider(localConfigPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load local config: %w", err)
			}
		}
	}

	k.Load(env.Provider("M9AUP_", ".", envTransform), nil)

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.InstallDir = expandHomePath(cfg.InstallDir)
	cfg.CacheDir = expandHomePath(cfg.CacheDir)
	cfg.LogDir = expandHomePath(cfg.LogDir)

	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if !strings.Contains(c.Repo, "/") || strings.Count(c.Repo, "/") != 1 {
		return fmt.Errorf("repo must be in owner/name format, got %q", c.Repo)
	}

	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil || u.Host == "" {
			return fmt.Errorf("proxy must be a URL like http://127.0.0.1:7890, got %q", c.Proxy)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("proxy scheme must be http, https, or socks5, got %q", u.Scheme)
		}
	}

	return nil
}

// ReleaseAPIURL returns the latest-release endpoint for the configured repo.
func (c *Configuration) ReleaseAPIURL() string {
	return fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", c.Repo)
}

// envTransform converts environment variable names to config keys.
// Example: M9AUP_INSTALL_DIR -> install_dir.
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "M9AUP_"))
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

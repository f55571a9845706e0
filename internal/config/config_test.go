package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir string, values map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(values)
	require.NoError(t, err)
	path := filepath.Join(dir, "m9aup.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "MAA1999/M9A", cfg.Repo)
	assert.True(t, cfg.FullDownloadEnabled)
	assert.Equal(t, 60, cfg.HTTPTimeout)
	assert.Equal(t, 15, cfg.LogMaxFiles)
	assert.Empty(t, cfg.Proxy)
}

func TestLoadLocalConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, map[string]interface{}{
		"install_dir": filepath.Join(dir, "m9a"),
		"cache_dir":   filepath.Join(dir, "cache"),
		"repo":        "someone/fork",
		"http_timeout": 30,
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "someone/fork", cfg.Repo)
	assert.Equal(t, 30, cfg.HTTPTimeout)
	assert.Equal(t, filepath.Join(dir, "m9a"), cfg.InstallDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, map[string]interface{}{
		"repo": "someone/fork",
	})

	t.Setenv("M9AUP_REPO", "another/fork")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "another/fork", cfg.Repo)
}

func TestLoadExpandsHomePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "M9A"), cfg.InstallDir)
	assert.Equal(t, filepath.Join(home, ".cache", "m9aup"), cfg.CacheDir)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Configuration {
		return &Configuration{
			InstallDir:  "/opt/m9a",
			CacheDir:    "/tmp/m9aup",
			Repo:        "MAA1999/M9A",
			HTTPTimeout: 60,
			LogMaxFiles: 15,
		}
	}

	tests := map[string]struct {
		mutate  func(*Configuration)
		wantErr string
	}{
		"valid config": {
			mutate: func(c *Configuration) {},
		},
		"valid with proxy": {
			mutate: func(c *Configuration) { c.Proxy = "http://127.0.0.1:7890" },
		},
		"valid with socks5 proxy": {
			mutate: func(c *Configuration) { c.Proxy = "socks5://127.0.0.1:1080" },
		},
		"missing install dir": {
			mutate:  func(c *Configuration) { c.InstallDir = "" },
			wantErr: "validation failed",
		},
		"repo without owner": {
			mutate:  func(c *Configuration) { c.Repo = "M9A" },
			wantErr: "owner/name",
		},
		"repo with extra segments": {
			mutate:  func(c *Configuration) { c.Repo = "a/b/c" },
			wantErr: "owner/name",
		},
		"proxy without scheme": {
			mutate:  func(c *Configuration) { c.Proxy = "127.0.0.1:7890" },
			wantErr: "proxy",
		},
		"proxy with bad scheme": {
			mutate:  func(c *Configuration) { c.Proxy = "ftp://127.0.0.1:21" },
			wantErr: "scheme",
		},
		"timeout out of range": {
			mutate:  func(c *Configuration) { c.HTTPTimeout = 0 },
			wantErr: "validation failed",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReleaseAPIURL(t *testing.T) {
	t.Parallel()

	cfg := &Configuration{Repo: "MAA1999/M9A"}
	assert.Equal(t, "https://api.github.com/repos/MAA1999/M9A/releases/latest", cfg.ReleaseAPIURL())
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	t.Run("creates file with defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "config.json")

		require.NoError(t, WriteDefault(path, false))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var values map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &values))
		assert.Equal(t, "MAA1999/M9A", values["repo"])
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.json")

		require.NoError(t, WriteDefault(path, false))
		err := WriteDefault(path, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.json")

		require.NoError(t, WriteDefault(path, false))
		assert.NoError(t, WriteDefault(path, true))
	})
}

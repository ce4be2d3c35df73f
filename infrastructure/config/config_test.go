package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnvVar, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, "char-relmap", cfg.AppTag)
	assert.Equal(t, int64(10<<20), cfg.MaxSnapshotBytes)
	assert.True(t, cfg.StrictReferences)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serverAddress: ":9000"
historyLimit: 25
logLevel: debug
shutdownTimeout: 3s
allowedOrigins:
  - http://localhost:5173
`), 0o600))

	t.Setenv(FileEnvVar, path)
	t.Setenv("RELMAP_HISTORY_LIMIT", "50")
	t.Setenv("RELMAP_STRICT_REFERENCES", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ServerAddress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	// environment wins over the file
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.False(t, cfg.StrictReferences)
	assert.Equal(t, []string{"defaults", path, "environment"}, cfg.LoadedFrom)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv(FileEnvVar, filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv(FileEnvVar, "")
		t.Setenv("RELMAP_HISTORY_LIMIT", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "history limit")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "qa" }, wantErr: "environment"},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log level"},
		{name: "zero history", mutate: func(c *Config) { c.HistoryLimit = 0 }, wantErr: "history limit"},
		{name: "zero snapshot size", mutate: func(c *Config) { c.MaxSnapshotBytes = 0 }, wantErr: "snapshot"},
		{
			name: "autosave without delay",
			mutate: func(c *Config) {
				c.AutosaveDir = "/tmp/relmap"
				c.AutosaveDelay = 0
			},
			wantErr: "autosave delay",
		},
		{name: "no address", mutate: func(c *Config) { c.ServerAddress = "" }, wantErr: "server address"},
		{
			name: "production tracing without endpoint",
			mutate: func(c *Config) {
				c.Environment = Production
				c.EnableTracing = true
			},
			wantErr: "OTLP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Source.MaxDepth)
	assert.Equal(t, 5, cfg.Source.MaxConcurrency)
	assert.Equal(t, 10, cfg.Extraction.TimeoutSeconds)
	assert.Equal(t, 30, cfg.Store.RetentionDays)
	assert.Equal(t, 5, cfg.Analysis.MinComments)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Source.TopN = 3
	cfg.Analysis.Provider = ProviderOpenAI
	cfg.Analysis.BaseURL = "https://api.deepseek.com"
	require.NoError(t, cfg.SaveTo(path))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[source]\ntop_n = 4\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Source.TopN)
	assert.Equal(t, 5, cfg.Source.MaxConcurrency)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top n", func(c *Config) { c.Source.TopN = 0 }},
		{"zero concurrency", func(c *Config) { c.Source.MaxConcurrency = 0 }},
		{"negative depth", func(c *Config) { c.Source.MaxDepth = -1 }},
		{"unknown provider", func(c *Config) { c.Analysis.Provider = "bard" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"minio without endpoint", func(c *Config) { c.Feed.Publisher = PublisherMinio }},
		{"unknown publisher", func(c *Config) { c.Feed.Publisher = "ftp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test")
	t.Setenv(EnvDSN, "postgres://localhost/hn")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "sk-test", cfg.Analysis.APIKey)
	assert.Equal(t, "postgres://localhost/hn", cfg.Store.DSN)
}

func TestDatabasePathOverride(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = "/tmp/x.db"
	p, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", p)
}

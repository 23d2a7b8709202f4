package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runboard.toml")
	content := `
[server]
port = 9090

[backend]
base_url = "https://ops.example.test/api/"
airport = "BNE"
airline = "QF"

[planner]
max_flights_per_run = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("RUNBOARD_AIRLINE", "VA")
	t.Setenv("RUNBOARD_CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://ops.example.test/api/", cfg.Backend.BaseURL)
	assert.Equal(t, "BNE", cfg.Backend.Airport)
	assert.Equal(t, "VA", cfg.Backend.Airline)
	assert.Equal(t, 10, cfg.Planner.MaxFlightsPerRun)
	assert.Equal(t, 20, cfg.Planner.TightGapMinutes, "unset keys keep defaults")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Planner.MaxFlightsPerRun)
	assert.Equal(t, "127.0.0.1:8085", cfg.Server.Addr())
	assert.Zero(t, cfg.Backend.RequestTimeout())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing base url", mutate: func(c *Config) { c.Backend.BaseURL = "" }},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "zero max flights", mutate: func(c *Config) { c.Planner.MaxFlightsPerRun = 0 }},
		{name: "zero tight gap", mutate: func(c *Config) { c.Planner.TightGapMinutes = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "runboard.example.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Planner.MaxFlightsPerRun)
	assert.Equal(t, "runboard.db", cfg.Storage.JournalPath)
}

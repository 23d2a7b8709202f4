package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full runboard configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Planner PlannerConfig `toml:"planner"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig controls the local HTTP surface
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// BackendConfig points at the remote ground-ops API
type BackendConfig struct {
	BaseURL               string `toml:"base_url"`
	Airport               string `toml:"airport"`
	Airline               string `toml:"airline"`
	APIToken              string `toml:"api_token"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// PlannerConfig holds the conflict thresholds
type PlannerConfig struct {
	MaxFlightsPerRun int    `toml:"max_flights_per_run"`
	TightGapMinutes  int    `toml:"tight_gap_minutes"`
	MetricsNamespace string `toml:"metrics_namespace"`
}

// StorageConfig locates the mutation journal
type StorageConfig struct {
	JournalPath string `toml:"journal_path"`
}

// LoggingConfig mirrors logger.Config
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a configuration with every key populated
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8085,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 30,
		},
		Backend: BackendConfig{
			BaseURL:               "http://localhost:8000/api/",
			RequestTimeoutSeconds: 0,
		},
		Planner: PlannerConfig{
			MaxFlightsPerRun: 8,
			TightGapMinutes:  20,
			MetricsNamespace: "runboard",
		},
		Storage: StorageConfig{
			JournalPath: "runboard.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the TOML file at path (if any), then applies .env and
// RUNBOARD_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Backend.BaseURL = getEnv("RUNBOARD_BACKEND_URL", c.Backend.BaseURL)
	c.Backend.Airport = getEnv("RUNBOARD_AIRPORT", c.Backend.Airport)
	c.Backend.Airline = getEnv("RUNBOARD_AIRLINE", c.Backend.Airline)
	c.Backend.APIToken = getEnv("RUNBOARD_API_TOKEN", c.Backend.APIToken)
	c.Server.Port = getEnvAsInt("RUNBOARD_PORT", c.Server.Port)
	c.Storage.JournalPath = getEnv("RUNBOARD_JOURNAL_PATH", c.Storage.JournalPath)
	c.Logging.Level = getEnv("RUNBOARD_LOG_LEVEL", c.Logging.Level)
	if origins := getEnv("RUNBOARD_CORS_ORIGINS", ""); origins != "" {
		c.Server.CORSAllowedOrigins = strings.Split(origins, ",")
	}
}

// Validate checks the values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Planner.MaxFlightsPerRun <= 0 {
		return fmt.Errorf("planner.max_flights_per_run must be positive")
	}
	if c.Planner.TightGapMinutes <= 0 {
		return fmt.Errorf("planner.tight_gap_minutes must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP surface
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RequestTimeout is zero when the transport default should apply
func (b BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

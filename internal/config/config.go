package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"stolik/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Allocation AllocationConfig `yaml:"allocation"`
	Exports    ExportConfig     `yaml:"exports"`
	Tables     []models.Table   `yaml:"tables"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AllocationConfig struct {
	// GracePeriodMinutes is the check-in window before a booked table
	// is reclaimed.
	GracePeriodMinutes int    `yaml:"grace_period_minutes"`
	TablesPath         string `yaml:"tables_path"`
}

// GracePeriod returns the configured check-in window as a duration.
func (a AllocationConfig) GracePeriod() time.Duration {
	return time.Duration(a.GracePeriodMinutes) * time.Minute
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment may already be set.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand environment variables used inside the YAML.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Allocation.GracePeriodMinutes < 0 {
		return errors.New("grace period must not be negative")
	}

	return ValidateTables(c.Tables)
}

// ValidateTables rejects duplicate table ids and non-positive capacities
// in a seating plan.
func ValidateTables(tables []models.Table) error {
	tableIDs := make(map[int64]bool)
	for _, table := range tables {
		if table.ID == 0 {
			return fmt.Errorf("table with capacity %d has invalid ID 0", table.Capacity)
		}
		if tableIDs[table.ID] {
			return fmt.Errorf("duplicate table ID found: %d", table.ID)
		}
		if table.Capacity <= 0 {
			return fmt.Errorf("table %d has non-positive capacity %d", table.ID, table.Capacity)
		}
		tableIDs[table.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// auth enabled by default when API is enabled
	if c.API.Enabled && !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = models.DefaultRateLimitRPS
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.DefaultRateLimitBurst
	}

	if c.Allocation.GracePeriodMinutes == 0 {
		c.Allocation.GracePeriodMinutes = int(models.DefaultGracePeriod / time.Minute)
	}
}

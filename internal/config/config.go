package config

import (
	"errors"
	"fmt"
	"os"

	"clubhouse/internal/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Exports    ExportConfig     `yaml:"exports"`
	Facilities []FacilityConfig `yaml:"facilities"`
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
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// SnapshotTTL is the availability cache lifetime in seconds.
	SnapshotTTL int `yaml:"snapshot_ttl"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
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
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type SchedulerConfig struct {
	// SweepIntervalMinutes is how often availability flags are
	// reconciled against the time-bounded records.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// FacilityConfig is one provisioned facility. Rates are decimal strings
// so yaml parsing never goes through floats.
type FacilityConfig struct {
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	RoomType   string `yaml:"room_type"`
	Capacity   int64  `yaml:"capacity"`
	MemberRate string `yaml:"member_rate"`
	GuestRate  string `yaml:"guest_rate"`
	SortOrder  int64  `yaml:"sort_order"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables referenced in the YAML
	// are expanded before parsing.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

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
	return ValidateFacilities(c.Facilities)
}

// ValidateFacilities rejects duplicate names, unknown categories and
// malformed rates before anything reaches the store.
func ValidateFacilities(facilities []FacilityConfig) error {
	names := make(map[string]bool)
	for _, f := range facilities {
		if f.Name == "" {
			return errors.New("facility with empty name")
		}
		if names[f.Name] {
			return fmt.Errorf("duplicate facility name: %s", f.Name)
		}
		names[f.Name] = true

		if !models.Category(f.Category).Valid() {
			return fmt.Errorf("facility %q has unknown category %q", f.Name, f.Category)
		}
		if _, err := parseRate(f.MemberRate); err != nil {
			return fmt.Errorf("facility %q member_rate: %w", f.Name, err)
		}
		if _, err := parseRate(f.GuestRate); err != nil {
			return fmt.Errorf("facility %q guest_rate: %w", f.Name, err)
		}
	}
	return nil
}

func parseRate(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// FacilityModels converts the provisioning list into store models.
// Call after Validate; malformed rates become zero here.
func (c *Config) FacilityModels() []models.Facility {
	facilities := make([]models.Facility, 0, len(c.Facilities))
	for _, f := range c.Facilities {
		memberRate, _ := parseRate(f.MemberRate)
		guestRate, _ := parseRate(f.GuestRate)
		facilities = append(facilities, models.Facility{
			Name:       f.Name,
			Category:   models.Category(f.Category),
			RoomType:   f.RoomType,
			Capacity:   f.Capacity,
			MemberRate: memberRate,
			GuestRate:  guestRate,
			SortOrder:  f.SortOrder,
		})
	}
	return facilities
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Scheduler.SweepIntervalMinutes == 0 {
		c.Scheduler.SweepIntervalMinutes = models.DefaultSweepIntervalMinutes
	}
	if c.Redis.SnapshotTTL == 0 {
		c.Redis.SnapshotTTL = models.DefaultSnapshotTTL
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

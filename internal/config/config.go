package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all fmsuplink configuration
type Config struct {
	AppEnv   string         `yaml:"app_env"`
	Server   ServerConfig   `yaml:"server"`
	SimBrief SimBriefConfig `yaml:"simbrief"`
	NavDB    NavDBConfig    `yaml:"navdb"`
	History  HistoryConfig  `yaml:"history"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Uplink   UplinkConfig   `yaml:"uplink"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

type SimBriefConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// NavDBConfig selects the GORM driver holding the navigation database.
// Driver is "sqlite" or "postgres".
type NavDBConfig struct {
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	ImportDir    string        `yaml:"import_dir"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

// HistoryConfig enables the uplink history table in Postgres
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	SSLMode  string `yaml:"sslmode"`

	// Retention is how long runs are kept; zero keeps them forever
	Retention time.Duration `yaml:"retention"`
}

// DSN returns the lib/pq connection string
func (h HistoryConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		h.Host, h.Port, h.User, h.Password, h.DB, h.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Disabled  bool          `yaml:"disabled"`
}

type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type UplinkConfig struct {
	Procedures  bool          `yaml:"procedures"`
	OFPCacheTTL time.Duration `yaml:"ofp_cache_ttl"`
	JobTTL      time.Duration `yaml:"job_ttl"`
}

type WorkerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Count     int           `yaml:"count"`
	BlockTime time.Duration `yaml:"block_time"`
	ClaimIdle time.Duration `yaml:"claim_idle"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		AppEnv: "development",
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			RateLimitRPS:   1,
			RateLimitBurst: 5,
		},
		SimBrief: SimBriefConfig{
			BaseURL: "https://www.simbrief.com/api/xml.fetcher.php",
			Timeout: 10 * time.Second,
		},
		NavDB: NavDBConfig{
			Driver:       "sqlite",
			DSN:          "navdata.db",
			CacheSize:    4096,
			CacheTTL:     time.Hour,
			AutoMigrate:  true,
			MaxOpenConns: 10,
		},
		History: HistoryConfig{
			Host:      "localhost",
			Port:      "5432",
			SSLMode:   "disable",
			Retention: 30 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Auth: AuthConfig{
			Issuer:   "fmsuplink",
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  64,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Uplink: UplinkConfig{
			Procedures:  true,
			OFPCacheTTL: 10 * time.Minute,
			JobTTL:      24 * time.Hour,
		},
		Worker: WorkerConfig{
			Count:     2,
			BlockTime: 5 * time.Second,
			ClaimIdle: 5 * time.Minute,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables are applied last in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("APP_ENV", &c.AppEnv)
	setString("PORT", &c.Server.Port)
	setString("SIMBRIEF_BASE_URL", &c.SimBrief.BaseURL)
	setString("NAVDB_DRIVER", &c.NavDB.Driver)
	setString("NAVDB_DSN", &c.NavDB.DSN)
	setString("PG_HOST", &c.History.Host)
	setString("PG_PORT", &c.History.Port)
	setString("PG_USER", &c.History.User)
	setString("PG_PASSWORD", &c.History.Password)
	setString("PG_DB", &c.History.DB)
	setString("REDIS_HOST", &c.Redis.Host)
	setString("REDIS_PORT", &c.Redis.Port)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("JWT_SECRET", &c.Auth.JWTSecret)
	setString("LOG_FILE", &c.Logging.File)

	// setting any PG_DB or REDIS_HOST turns the feature on
	if os.Getenv("PG_DB") != "" {
		c.History.Enabled = true
	}
	if os.Getenv("REDIS_HOST") != "" {
		c.Redis.Enabled = true
	}

	if v := os.Getenv("OFP_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid OFP_CACHE_TTL %q: %w", v, err)
		}
		c.Uplink.OFPCacheTTL = d
	}
	if v := os.Getenv("UPLINK_PROCEDURES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid UPLINK_PROCEDURES %q: %w", v, err)
		}
		c.Uplink.Procedures = b
	}
	return nil
}

// ValidNavDBDrivers lists the supported GORM drivers for the nav database.
var ValidNavDBDrivers = []string{"sqlite", "postgres"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidNavDBDrivers {
		if c.NavDB.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid navdb driver: %s (valid: %v)", c.NavDB.Driver, ValidNavDBDrivers)
	}
	if c.NavDB.DSN == "" {
		return fmt.Errorf("navdb dsn not configured (set NAVDB_DSN)")
	}
	if c.Worker.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("workers require redis to be enabled")
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("history retention must not be negative")
	}
	if c.Uplink.OFPCacheTTL < 0 {
		return fmt.Errorf("ofp_cache_ttl must not be negative")
	}
	return nil
}

// AuthEnabled reports whether the API requires bearer tokens.
func (c *Config) AuthEnabled() bool {
	return !c.Auth.Disabled && c.Auth.JWTSecret != ""
}

// IsProduction reports whether the service runs with production logging
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

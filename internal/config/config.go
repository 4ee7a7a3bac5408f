package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers understood by the service container.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds all configuration for the otp-shield trust engine
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Phone    PhoneConfig    `mapstructure:"phone"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the key-value backend the trust stores persist to
type StorageConfig struct {
	Driver     string        `mapstructure:"driver"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig contains PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Table           string        `mapstructure:"table"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// ScoringConfig tunes the trust stores and the message risk engine
type ScoringConfig struct {
	TrustedSenders []string      `mapstructure:"trusted_senders"`
	RatingCooldown time.Duration `mapstructure:"rating_cooldown"`
	DefaultUserID  string        `mapstructure:"default_user_id"`
	DefaultDevice  string        `mapstructure:"default_device"`
	SimulateSeed   int64         `mapstructure:"simulate_seed"`
}

// PhoneConfig contains phone number parsing configuration
type PhoneConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

// MetricsConfig contains monitoring and metrics configuration
type MetricsConfig struct {
	Enabled          bool      `mapstructure:"enabled"`
	Path             string    `mapstructure:"path"`
	HistogramBuckets []float64 `mapstructure:"histogram_buckets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

// DefaultTrustedSenders is the allowlist of known institutional sender IDs.
var DefaultTrustedSenders = []string{
	"HDFCBK", "HDFC", "HDFCBANK",
	"ICICIBNK", "ICICI",
	"SBIBANK", "SBI",
	"AXISBK", "AXIS",
	"YESBNK",
	"NETFLIX", "AMAZON", "UBER", "SWIGGY",
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OTPSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; continue with environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3010)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.sqlite_path", "otpshield.db")
	v.SetDefault("storage.timeout", "3s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "otpshield")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.table", "otpshield_kv")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "2s")
	v.SetDefault("redis.write_timeout", "2s")
	v.SetDefault("redis.idle_timeout", "5m")
	v.SetDefault("redis.key_prefix", "")

	// Scoring defaults
	v.SetDefault("scoring.trusted_senders", DefaultTrustedSenders)
	v.SetDefault("scoring.rating_cooldown", "720h") // 30 days
	v.SetDefault("scoring.default_user_id", "default_user")
	v.SetDefault("scoring.default_device", "unknown-device")
	v.SetDefault("scoring.simulate_seed", 0)

	v.SetDefault("phone.default_region", "IN")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.histogram_buckets", []float64{
		0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
	})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.encoding", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver: %q", config.Storage.Driver)
	}

	if config.Storage.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be positive")
	}

	if config.Storage.Driver == StorageSQLite && config.Storage.SQLitePath == "" {
		return fmt.Errorf("storage sqlite_path is required for the sqlite driver")
	}

	if config.Storage.Driver == StoragePostgres && config.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max_connections must be positive")
	}

	if config.Storage.Driver == StorageRedis && config.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool_size must be positive")
	}

	if config.Scoring.RatingCooldown <= 0 {
		return fmt.Errorf("scoring rating_cooldown must be positive")
	}

	if len(config.Scoring.TrustedSenders) == 0 {
		return fmt.Errorf("scoring trusted_senders must not be empty")
	}

	return nil
}

// NewConfig creates a new configuration instance
func NewConfig() (*Config, error) {
	return Load()
}

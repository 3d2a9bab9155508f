package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is prepended to every environment override, e.g. KYC_SERVER_PORT
const EnvPrefix = "KYC"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Version      string        `mapstructure:"version"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds the next-step queue connection
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkflowConfig holds the review thresholds and document requirements
type WorkflowConfig struct {
	AutoApproveThreshold  float64       `mapstructure:"auto_approve_threshold"`
	ManualReviewThreshold float64       `mapstructure:"manual_review_threshold"`
	RejectThreshold       float64       `mapstructure:"reject_threshold"`
	RequiredDocuments     []string      `mapstructure:"required_documents"`
	ExpiryWindow          time.Duration `mapstructure:"expiry_window"`
	MaxRetries            int           `mapstructure:"max_retries"`
}

// AuditConfig holds audit trail retention
type AuditConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	ExpiryInterval time.Duration `mapstructure:"expiry_interval"`
	ExpiryBatch    int           `mapstructure:"expiry_batch"`
	TriggerQueue   string        `mapstructure:"trigger_queue"`
	TriggerBlock   time.Duration `mapstructure:"trigger_block"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from configPath, a .env file next to the working
// directory and KYC_ environment variables, in increasing priority.
// An empty configPath or a missing file falls back to defaults.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.version", "dev")

	// Database defaults
	v.SetDefault("database.path", "data/kyc.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Workflow defaults
	v.SetDefault("workflow.auto_approve_threshold", 0.95)
	v.SetDefault("workflow.manual_review_threshold", 0.75)
	v.SetDefault("workflow.reject_threshold", 0.50)
	v.SetDefault("workflow.required_documents", []string{"cin_front", "cin_back", "selfie"})
	v.SetDefault("workflow.expiry_window", 30*24*time.Hour)
	v.SetDefault("workflow.max_retries", 3)

	// Audit defaults
	v.SetDefault("audit.retention_days", 2555)

	// Worker defaults
	v.SetDefault("worker.expiry_interval", time.Hour)
	v.SetDefault("worker.expiry_batch", 100)
	v.SetDefault("worker.trigger_queue", "kyc:workflow:next_step")
	v.SetDefault("worker.trigger_block", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the conventional unprefixed names used by deployment tooling
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"redis.address":  {"KYC_REDIS_ADDRESS", "REDIS_URL"},
		"redis.password": {"KYC_REDIS_PASSWORD", "REDIS_PASSWORD"},
		"database.path":  {"KYC_DATABASE_PATH", "DATABASE_PATH"},
		"logger.level":   {"KYC_LOGGER_LEVEL", "LOG_LEVEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}

	if len(c.Workflow.RequiredDocuments) == 0 {
		return fmt.Errorf("workflow.required_documents must not be empty")
	}
	if c.Workflow.ExpiryWindow <= 0 {
		return fmt.Errorf("workflow.expiry_window must be positive")
	}

	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit.retention_days must be positive")
	}

	if c.Worker.ExpiryInterval <= 0 {
		return fmt.Errorf("worker.expiry_interval must be positive")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}

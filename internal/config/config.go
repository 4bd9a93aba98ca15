package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the lending engine
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	// Cron specs use the 6-field (with seconds) format.
	DefaultScanSpec string `mapstructure:"SCHEDULER_DEFAULT_SCAN_SPEC"`
	MissedScanSpec  string `mapstructure:"SCHEDULER_MISSED_SCAN_SPEC"`
	Timezone        string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

type BusinessConfig struct {
	// Fixed day-offsets regardless of the product's configured duration.
	MinPrincipal       string `mapstructure:"MIN_PRINCIPAL"`
	ProcessingFeeRate  string `mapstructure:"PROCESSING_FEE_RATE"`
	LoanTermDays       int    `mapstructure:"LOAN_TERM_DAYS"`
	DailyInstallments  int    `mapstructure:"DAILY_INSTALLMENTS"`
	WeeklyInstallments int    `mapstructure:"WEEKLY_INSTALLMENTS"`
	DailyStepDays      int    `mapstructure:"DAILY_STEP_DAYS"`
	WeeklyStepDays     int    `mapstructure:"WEEKLY_STEP_DAYS"`
	DedupeTTL          string `mapstructure:"REPAYMENT_DEDUPE_TTL"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCHEDULER_DEFAULT_SCAN_SPEC", "0 0 6,18 * * *")
	viper.SetDefault("SCHEDULER_MISSED_SCAN_SPEC", "0 30 6,18 * * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Africa/Nairobi")
	viper.SetDefault("MIN_PRINCIPAL", "1000")
	viper.SetDefault("PROCESSING_FEE_RATE", "0.03")
	viper.SetDefault("LOAN_TERM_DAYS", 30)
	viper.SetDefault("DAILY_INSTALLMENTS", 30)
	viper.SetDefault("WEEKLY_INSTALLMENTS", 4)
	viper.SetDefault("DAILY_STEP_DAYS", 1)
	viper.SetDefault("WEEKLY_STEP_DAYS", 7)
	viper.SetDefault("REPAYMENT_DEDUPE_TTL", "24h")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" && c.Database.Name == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_NAME is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Business.LoanTermDays <= 0 {
		return fmt.Errorf("LOAN_TERM_DAYS must be greater than 0")
	}

	if c.Business.DailyInstallments <= 0 || c.Business.WeeklyInstallments <= 0 {
		return fmt.Errorf("installment divisors must be greater than 0")
	}

	if c.Business.DailyStepDays <= 0 || c.Business.WeeklyStepDays <= 0 {
		return fmt.Errorf("due-date step days must be greater than 0")
	}

	if _, err := decimal.NewFromString(c.Business.MinPrincipal); err != nil {
		return fmt.Errorf("MIN_PRINCIPAL must be a valid decimal: %w", err)
	}

	if _, err := decimal.NewFromString(c.Business.ProcessingFeeRate); err != nil {
		return fmt.Errorf("PROCESSING_FEE_RATE must be a valid decimal: %w", err)
	}

	if _, err := time.ParseDuration(c.Business.DedupeTTL); err != nil {
		return fmt.Errorf("REPAYMENT_DEDUPE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// DSN returns the Postgres connection string
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetMinPrincipal returns the minimum requestable loan amount as decimal
func (c *Config) GetMinPrincipal() decimal.Decimal {
	min, _ := decimal.NewFromString(c.Business.MinPrincipal)
	return min
}

// GetProcessingFeeRate returns the processing fee rate as decimal
func (c *Config) GetProcessingFeeRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.ProcessingFeeRate)
	return rate
}

// GetDedupeTTL returns the repayment dedupe key lifetime
func (c *Config) GetDedupeTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.DedupeTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetSchedulerLocation returns the scheduler timezone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

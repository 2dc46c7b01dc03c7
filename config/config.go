package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Gateway     GatewayConfig
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address in host:port form
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence
// over the individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// DSN returns the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	if d.ConnectionString != "" {
		return d.ConnectionString
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// LogString returns a connection description safe for logging (no password)
func (d DatabaseConfig) LogString() string {
	if d.ConnectionString != "" {
		if u, err := url.Parse(d.ConnectionString); err == nil {
			return fmt.Sprintf("%s%s", u.Host, u.Path)
		}
		return "DATABASE_URL"
	}
	return fmt.Sprintf("%s:%d/%s", d.Host, d.Port, d.Database)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// TokenSecret signs session tokens minted from API keys
	TokenSecret string
	// TokenTTL is the lifetime of a minted session token
	TokenTTL time.Duration
}

// GatewayConfig holds policy gateway configuration
type GatewayConfig struct {
	// ExecutionCost is the fixed credit cost per executed command
	ExecutionCost int
	// DefaultCredits is the starting balance for new principals
	DefaultCredits int
	// SeedOnStartup controls whether the default admin and rule set
	// are created when the database is empty
	SeedOnStartup bool
	// MatcherCacheSize bounds the compiled-pattern cache
	MatcherCacheSize int
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// Ignore error: .env is optional, real env vars take precedence
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			ConnectionString: os.Getenv("DATABASE_URL"),
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", ""),
			Database:         getEnv("DB_NAME", "command_gateway"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("AUTH_TOKEN_SECRET", ""),
			TokenTTL:    getEnvAsDuration("AUTH_TOKEN_TTL", time.Hour),
		},
		Gateway: GatewayConfig{
			ExecutionCost:    getEnvAsInt("GATEWAY_EXECUTION_COST", 1),
			DefaultCredits:   getEnvAsInt("GATEWAY_DEFAULT_CREDITS", 100),
			SeedOnStartup:    getEnvAsBool("GATEWAY_SEED_ON_STARTUP", true),
			MatcherCacheSize: getEnvAsInt("GATEWAY_MATCHER_CACHE_SIZE", 256),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Gateway.ExecutionCost <= 0 {
		return fmt.Errorf("execution cost must be positive, got %d", c.Gateway.ExecutionCost)
	}
	if c.Gateway.DefaultCredits < 0 {
		return fmt.Errorf("default credits must not be negative, got %d", c.Gateway.DefaultCredits)
	}
	if c.Environment == "production" && c.Auth.TokenSecret == "" {
		return fmt.Errorf("AUTH_TOKEN_SECRET is required in production")
	}
	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string

	// Pool sizing. The pool holds MinConns warm connections and never
	// grows past MaxConns; acquisition waits at most AcquireTimeout.
	MinConns        int32
	MaxConns        int32
	AcquireTimeout  time.Duration
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_POOL_MIN_CONNS", 2)
	viper.SetDefault("DB_POOL_MAX_CONNS", 10)
	viper.SetDefault("DB_POOL_ACQUIRE_TIMEOUT_SECONDS", 5)
	viper.SetDefault("DB_POOL_MAX_CONN_LIFETIME_MINUTES", 60)
	viper.SetDefault("DB_POOL_MAX_CONN_IDLE_MINUTES", 30)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_DATABASE"),
			Schema:          viper.GetString("DB_SCHEMA"),
			MinConns:        viper.GetInt32("DB_POOL_MIN_CONNS"),
			MaxConns:        viper.GetInt32("DB_POOL_MAX_CONNS"),
			AcquireTimeout:  time.Duration(viper.GetInt("DB_POOL_ACQUIRE_TIMEOUT_SECONDS")) * time.Second,
			MaxConnLifetime: time.Duration(viper.GetInt("DB_POOL_MAX_CONN_LIFETIME_MINUTES")) * time.Minute,
			MaxConnIdleTime: time.Duration(viper.GetInt("DB_POOL_MAX_CONN_IDLE_MINUTES")) * time.Minute,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           viper.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

// Validate rejects configurations the connection pool cannot be built from.
func (c *Config) Validate() error {
	db := c.Database
	if db.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1, got %d", db.MaxConns)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("database min connections must not be negative, got %d", db.MinConns)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("database min connections (%d) must not exceed max connections (%d)", db.MinConns, db.MaxConns)
	}
	if db.AcquireTimeout <= 0 {
		return fmt.Errorf("database acquire timeout must be positive, got %s", db.AcquireTimeout)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow < 1 {
			return fmt.Errorf("rate limit requests per window must be at least 1, got %d", c.RateLimit.RequestsPerWindow)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
		}
	}
	return nil
}

// URL builds the pgx connection string for this database.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Schema)
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

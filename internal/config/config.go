package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	AppEnv         string
	Port           string
	JWTSecret      string
	TokenTTL       time.Duration
	BaseURL        string
	SnapshotCron   string
	MetricsEnabled bool
	LogLevel       string
	Database       DatabaseConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
	SQLitePath string
	Debug      bool
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load loads configuration from .env and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3210")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("PG_HOST", "localhost")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("PG_USERNAME", "postgres")
	v.SetDefault("PG_DATABASE", "idit")
	v.SetDefault("SQLITE_PATH", "idit.db")
	v.SetDefault("DB_DEBUG", false)
	v.SetDefault("BASE_URL", "http://localhost:3210")
	v.SetDefault("SNAPSHOT_CRON", "")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "")
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	ttl, err := time.ParseDuration(v.GetString("TOKEN_TTL"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q", v.GetString("TOKEN_TTL"))
	}

	driver := strings.ToLower(v.GetString("DB_DRIVER"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Config{
		AppEnv:         v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		JWTSecret:      jwtSecret,
		TokenTTL:       ttl,
		BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
		SnapshotCron:   strings.TrimSpace(v.GetString("SNAPSHOT_CRON")),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver:     driver,
			Host:       v.GetString("PG_HOST"),
			Port:       v.GetString("PG_PORT"),
			Username:   v.GetString("PG_USERNAME"),
			Password:   v.GetString("PG_PASSWORD"),
			Database:   v.GetString("PG_DATABASE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
			Debug:      v.GetBool("DB_DEBUG"),
		},
	}, nil
}

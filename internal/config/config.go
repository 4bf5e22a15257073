// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`

	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	DuplicateRadiusMeters float64       `mapstructure:"DUPLICATE_RADIUS_METERS"`
	DuplicateWindowDays   int           `mapstructure:"DUPLICATE_WINDOW_DAYS"`
	CrowdVerifyThreshold  int           `mapstructure:"CROWD_VERIFY_THRESHOLD"`
	MaxNewIssuesPerDay    int           `mapstructure:"MAX_NEW_ISSUES_PER_DAY"`
	ReportDayTimezone     string        `mapstructure:"REPORT_DAY_TIMEZONE"`
	GeocellLockTTL        time.Duration `mapstructure:"GEOCELL_LOCK_TTL"`
	GeocellLockWait       time.Duration `mapstructure:"GEOCELL_LOCK_WAIT"`

	GeocoderURL     string        `mapstructure:"GEOCODER_URL"`
	GeocoderTimeout time.Duration `mapstructure:"GEOCODER_TIMEOUT"`
	IPLocationURL   string        `mapstructure:"IP_LOCATION_URL"`
	DefaultMapLat   float64       `mapstructure:"DEFAULT_MAP_LAT"`
	DefaultMapLng   float64       `mapstructure:"DEFAULT_MAP_LNG"`

	WriteRateLimit  int           `mapstructure:"WRITE_RATE_LIMIT"`
	VoteRateLimit   int           `mapstructure:"VOTE_RATE_LIMIT"`
	WriteRateWindow time.Duration `mapstructure:"WRITE_RATE_WINDOW"`

	OTelEnabled    bool    `mapstructure:"OTEL_ENABLED"`
	OTelExporter   string  `mapstructure:"OTEL_EXPORTER"`
	OTelEndpoint   string  `mapstructure:"OTEL_ENDPOINT"`
	OTelSampleRate float64 `mapstructure:"OTEL_SAMPLE_RATE"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "reverse_geocoding=on")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "urbanfix")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "urbanfix")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "urbanfix-identity")
	viper.SetDefault("JWT_AUDIENCE", "urbanfix-api")

	viper.SetDefault("DUPLICATE_RADIUS_METERS", 50.0)
	viper.SetDefault("DUPLICATE_WINDOW_DAYS", 7)
	viper.SetDefault("CROWD_VERIFY_THRESHOLD", 2)
	viper.SetDefault("MAX_NEW_ISSUES_PER_DAY", 1)
	viper.SetDefault("REPORT_DAY_TIMEZONE", "UTC")
	viper.SetDefault("GEOCELL_LOCK_TTL", "5s")
	viper.SetDefault("GEOCELL_LOCK_WAIT", "3s")

	viper.SetDefault("GEOCODER_URL", "")
	viper.SetDefault("GEOCODER_TIMEOUT", "2s")
	viper.SetDefault("IP_LOCATION_URL", "https://ipwho.is")
	viper.SetDefault("DEFAULT_MAP_LAT", 18.5204)
	viper.SetDefault("DEFAULT_MAP_LNG", 73.8567)

	viper.SetDefault("WRITE_RATE_LIMIT", 30)
	viper.SetDefault("VOTE_RATE_LIMIT", 120)
	viper.SetDefault("WRITE_RATE_WINDOW", "1m")

	viper.SetDefault("OTEL_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER", "stdout")
	viper.SetDefault("OTEL_ENDPOINT", "localhost:4318")
	viper.SetDefault("OTEL_SAMPLE_RATE", 1.0)
}

// IsProduction reports whether the configured environment is production-like.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Location returns the timezone that defines a reporting day.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportDayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DuplicateRadiusMeters <= 0 || c.DuplicateRadiusMeters > 5000 {
		return fmt.Errorf("DUPLICATE_RADIUS_METERS must be in (0, 5000], got %v", c.DuplicateRadiusMeters)
	}
	if c.DuplicateWindowDays < 1 {
		return errors.New("DUPLICATE_WINDOW_DAYS must be at least 1")
	}
	if c.CrowdVerifyThreshold < 1 {
		return errors.New("CROWD_VERIFY_THRESHOLD must be at least 1")
	}
	if c.MaxNewIssuesPerDay < 1 {
		return errors.New("MAX_NEW_ISSUES_PER_DAY must be at least 1")
	}
	if _, err := time.LoadLocation(c.ReportDayTimezone); err != nil {
		return fmt.Errorf("REPORT_DAY_TIMEZONE %q: %w", c.ReportDayTimezone, err)
	}
	if c.GeocellLockTTL <= 0 || c.GeocellLockWait <= 0 {
		return errors.New("GEOCELL_LOCK_TTL and GEOCELL_LOCK_WAIT must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.AllowedOrigins == "*" {
			return errors.New("ALLOWED_ORIGINS must not be '*' in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`

	// Dev switches logging to the console writer and gin to debug mode
	Dev bool `mapstructure:"dev"`

	// Allowed CORS origins; empty allows any origin
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Auth
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`

	// Data storage
	DataDir string `mapstructure:"data_dir"`

	// CSV export
	Export ExportConfig `mapstructure:"export"`
}

// ExportConfig selects where finished CSV exports are stored
type ExportConfig struct {
	// Backend is "file" or "s3"
	Backend string        `mapstructure:"backend"`
	JobTTL  time.Duration `mapstructure:"job_ttl"`
	S3      S3Config      `mapstructure:"s3"`
}

type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // MinIO or other S3-compatible endpoint
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present (local development)
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("access_token_ttl", 5*time.Minute)
	v.SetDefault("refresh_token_ttl", 24*time.Hour)
	v.SetDefault("export.backend", "file")
	v.SetDefault("export.job_ttl", 24*time.Hour)
	v.SetDefault("export.s3.prefix", "exports/")

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config") // Look for dev.config.yaml
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("contracthub")

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("dev", "CONTRACTHUB_DEV")
	_ = v.BindEnv("cors_origins", "CORS_ORIGINS")

	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("access_token_ttl", "ACCESS_TOKEN_TTL")
	_ = v.BindEnv("refresh_token_ttl", "REFRESH_TOKEN_TTL")
	_ = v.BindEnv("data_dir", "DATA_DIR")

	// Bind export Env Vars
	_ = v.BindEnv("export.backend", "EXPORT_BACKEND")
	_ = v.BindEnv("export.job_ttl", "EXPORT_JOB_TTL")
	_ = v.BindEnv("export.s3.bucket", "EXPORT_S3_BUCKET")
	_ = v.BindEnv("export.s3.prefix", "EXPORT_S3_PREFIX")
	_ = v.BindEnv("export.s3.region", "EXPORT_S3_REGION")
	_ = v.BindEnv("export.s3.endpoint", "EXPORT_S3_ENDPOINT")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info().Msg("no config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	// 2. Unmarshal into struct
	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	// 3. Backfill environment variables for tooling that reads them directly
	setEnvIfEmpty("DATABASE_URL", App.DatabaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("PORT", App.Port)

	return nil
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

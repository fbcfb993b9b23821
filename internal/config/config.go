// Package config loads process configuration from the environment via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dailyscrum/internal/storage"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DBSQLite   = "sqlite"
	DBPostgres = "postgres"
	DBMongo    = "mongo"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is resolved once at startup and handed to the app constructor.
type Config struct {
	AppPort     string
	BaseURL     string
	FrontendURL string
	LogLevel    string

	JWTSecret string
	TokenTTL  time.Duration

	DBDriver      string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string

	CacheDriver   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheSize     int

	Storage storage.Config

	RabbitMQURL    string
	MaxUploadFiles int
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", 30*24*time.Hour)
	v.SetDefault("DB_DRIVER", DBSQLite)
	v.SetDefault("DATABASE_DSN", "file:dailyscrum.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "dailyscrum")
	v.SetDefault("CACHE_DRIVER", CacheMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", time.Hour)
	v.SetDefault("CACHE_SIZE", 1024)
	v.SetDefault("STORAGE_DRIVER", storage.DriverLocal)
	v.SetDefault("STORAGE_PATH", "./uploads")
	v.SetDefault("AWS_BUCKET", "")
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PRESIGN_TTL", 2*time.Hour)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("MAX_UPLOAD_FILES", 10)
}

// Load reads an optional .env file in the working directory, then the
// environment, and validates the result.
func Load() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	if _, err := os.Stat(".env"); err == nil {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read .env: %w", err)
		}
	}
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:     v.GetString("APP_PORT"),
		BaseURL:     strings.TrimRight(v.GetString("BASE_URL"), "/"),
		FrontendURL: v.GetString("FRONTEND_URL"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		JWTSecret: v.GetString("JWT_SECRET"),
		TokenTTL:  v.GetDuration("TOKEN_TTL"),

		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),

		CacheDriver:   strings.ToLower(v.GetString("CACHE_DRIVER")),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		CacheTTL:      v.GetDuration("CACHE_TTL"),
		CacheSize:     v.GetInt("CACHE_SIZE"),

		Storage: storage.Config{
			Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
			Path:            v.GetString("STORAGE_PATH"),
			BaseURL:         strings.TrimRight(v.GetString("BASE_URL"), "/"),
			Bucket:          v.GetString("AWS_BUCKET"),
			Region:          v.GetString("AWS_REGION"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			PresignTTL:      v.GetDuration("S3_PRESIGN_TTL"),
		},

		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		MaxUploadFiles: v.GetInt("MAX_UPLOAD_FILES"),
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid or missing setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DBDriver {
	case DBSQLite, DBPostgres, DBMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	switch c.CacheDriver {
	case CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver))
	}
	switch c.Storage.Driver {
	case storage.DriverLocal:
	case storage.DriverS3:
		var missing []string
		if c.Storage.Bucket == "" {
			missing = append(missing, "AWS_BUCKET")
		}
		if c.Storage.Region == "" {
			missing = append(missing, "AWS_REGION")
		}
		if c.Storage.AccessKeyID == "" {
			missing = append(missing, "AWS_ACCESS_KEY_ID")
		}
		if c.Storage.SecretAccessKey == "" {
			missing = append(missing, "AWS_SECRET_ACCESS_KEY")
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("missing required S3 environment variables: %s", strings.Join(missing, ", ")))
		}
		// Cached views embed signed URLs, which must outlive the cache entry.
		if c.Storage.PresignTTL < c.CacheTTL {
			errs = append(errs, fmt.Errorf("S3_PRESIGN_TTL (%s) must not be shorter than CACHE_TTL (%s)", c.Storage.PresignTTL, c.CacheTTL))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.MaxUploadFiles <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_FILES must be positive"))
	}
	return errors.Join(errs...)
}

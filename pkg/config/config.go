package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	UserService UserServiceConfig
	Serving     ServingConfig
	Log         LogConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type UserServiceConfig struct {
	BaseURL           string
	BasicAuthUsername string
	BasicAuthPassword string
	Timeout           time.Duration
}

type ServingConfig struct {
	RequestTimeout  time.Duration
	MaxPool         int
	EventBuffer     int
	ProfileCacheTTL time.Duration
	// CatalogPath overrides the embedded scenario catalog when set.
	CatalogPath string
	// SeedPath loads creatives from a YAML file into memory instead of postgres.
	SeedPath string
}

type LogConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	intVal := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVal := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Reciping Ads"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "reciping_ads"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       intVal("REDIS_DB", 0),
		},
		UserService: UserServiceConfig{
			BaseURL:           getEnv("USER_SERVICE_URL", "http://localhost:8081"),
			BasicAuthUsername: getEnv("USER_SERVICE_USERNAME", ""),
			BasicAuthPassword: getEnv("USER_SERVICE_PASSWORD", ""),
			Timeout:           durVal("USER_SERVICE_TIMEOUT", 300*time.Millisecond),
		},
		Serving: ServingConfig{
			RequestTimeout:  durVal("SERVE_TIMEOUT", 800*time.Millisecond),
			MaxPool:         intVal("SERVE_MAX_POOL", 200),
			EventBuffer:     intVal("EVENT_BUFFER_SIZE", 1024),
			ProfileCacheTTL: durVal("PROFILE_CACHE_TTL", 10*time.Minute),
			CatalogPath:     getEnv("CATALOG_PATH", ""),
			SeedPath:        getEnv("CREATIVE_SEED_PATH", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", ""),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	// memory-backed runs do not touch postgres
	if cfg.Database.Password == "" && cfg.Serving.SeedPath == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"boostclics/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string
	AppVersion string
	LogLevel   string
	LogJSON    bool

	// BotToken never leaves the process: not logged, not rendered.
	BotToken       string
	InitDataMaxAge time.Duration

	AuthURL          string
	AuthSharedSecret string
	AuthAudience     string
	GraphQLURL       string
	UpstreamTimeout  time.Duration
	UpstreamRetry    int

	DatabaseURL   string
	DBAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TasksCacheTTL     time.Duration
	TasksFeedInterval time.Duration

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSAllowedOrigins []string
}

// Load reads the configuration from the environment (and .env when present).
// Missing required settings are fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppPort:    envString("APP_PORT", "8080"),
		AppVersion: envString("APP_VERSION", "dev"),
		LogLevel:   envString("LOG_LEVEL", "info"),
		LogJSON:    os.Getenv("LOG_FORMAT") == "json",

		BotToken:       os.Getenv("BOT_TOKEN"),
		InitDataMaxAge: envSeconds("INITDATA_MAX_AGE", time.Hour),

		AuthURL:          strings.TrimRight(os.Getenv("AUTH_URL"), "/"),
		AuthSharedSecret: os.Getenv("AUTH_SHARED_SECRET"),
		AuthAudience:     envString("AUTH_AUDIENCE", "boostclics-auth"),
		GraphQLURL:       os.Getenv("GRAPHQL_URL"),
		UpstreamTimeout:  envSeconds("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamRetry:    envInt("UPSTREAM_RETRY", 2),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBAutoMigrate: os.Getenv("DB_AUTO_MIGRATE") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		TasksCacheTTL:     envSeconds("TASKS_CACHE_TTL", 30*time.Second),
		TasksFeedInterval: envSeconds("TASKS_FEED_INTERVAL", 15*time.Second),

		APIRateLimit:   envInt("API_RATE_LIMIT", 60),
		APIRateWindow:  envSeconds("API_RATE_WINDOW_SECONDS", time.Minute),
		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow: envSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute),
	}

	// список через запятую
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if cfg.AuthURL == "" {
		missing = append(missing, "AUTH_URL")
	}
	if cfg.AuthSharedSecret == "" {
		missing = append(missing, "AUTH_SHARED_SECRET")
	}
	if cfg.GraphQLURL == "" {
		missing = append(missing, "GRAPHQL_URL")
	}
	if len(missing) > 0 {
		return nil, errors.New(strings.Join(missing, ", ") + " is not set")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// envSeconds reads a whole number of seconds; "0" is kept as a valid value.
func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

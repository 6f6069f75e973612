package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Remote    RemoteConfig
	Redis     RedisConfig
	Local     LocalConfig
	Realtime  RealtimeConfig
	Reminders ReminderConfig
	App       AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// RemoteConfig selects the hosted relational backend. Both fields must be set,
// otherwise the application runs in local-only mode.
type RemoteConfig struct {
	URL       string
	AccessKey string
}

type RedisConfig struct {
	URL string
}

type LocalConfig struct {
	CachePath string
}

type RealtimeConfig struct {
	EventsPerSecond int
}

type ReminderConfig struct {
	Schedule string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Remote: RemoteConfig{
			URL:       getEnv("SCHEDULE_DB_URL", ""),
			AccessKey: getEnv("SCHEDULE_DB_KEY", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Local: LocalConfig{
			CachePath: getEnv("LOCAL_CACHE_PATH", defaultCachePath()),
		},
		Realtime: RealtimeConfig{
			EventsPerSecond: getEnvAsInt("REALTIME_EVENTS_PER_SECOND", 10),
		},
		Reminders: ReminderConfig{
			Schedule: getEnv("REMINDER_CRON", "0 0 9 * * *"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Local.CachePath == "" {
		return fmt.Errorf("LOCAL_CACHE_PATH is required")
	}

	if c.Realtime.EventsPerSecond <= 0 {
		return fmt.Errorf("REALTIME_EVENTS_PER_SECOND must be positive")
	}

	return nil
}

// RemoteConfigured reports whether both remote settings are present.
func (c *Config) RemoteConfigured() bool {
	return c.Remote.URL != "" && c.Remote.AccessKey != ""
}

// Mode is "remote" or "local-only".
func (c *Config) Mode() string {
	if c.RemoteConfigured() {
		return "remote"
	}
	return "local-only"
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".game-schedule", "cache.db")
	}
	return filepath.Join(home, ".game-schedule", "cache.db")
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

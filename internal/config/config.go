package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	StoreDriver string `yaml:"store_driver"`
	DatabaseURI string `yaml:"database_uri"`
	SQLitePath  string `yaml:"sqlite_path"`

	TelegramToken        string `yaml:"telegram_token"`
	TelegramChatID       int64  `yaml:"telegram_chat_id"`
	NotificationsEnabled bool   `yaml:"notifications_enabled"`

	Timezone         string        `yaml:"timezone"`
	HTTPAddr         string        `yaml:"http_addr"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	LogLevel         string        `yaml:"log_level"`

	MQURL string `yaml:"mq_url"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

func defaults() Config {
	return Config{
		StoreDriver:          DriverSQLite,
		SQLitePath:           "data/pillgood.db",
		NotificationsEnabled: true,
		Timezone:             "Asia/Seoul",
		HTTPAddr:             ":8080",
		DispatchInterval:     30 * time.Second,
		LogLevel:             "info",
	}
}

// Load reads defaults, then the optional YAML file named by CONFIG_FILE, then
// environment variables (a .env file is loaded first when present).
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := overrideFromEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func overrideFromEnv(cfg *Config) error {
	cfg.StoreDriver = getEnvOrDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURI = getEnvOrDefault("DATABASE_URI", cfg.DatabaseURI)
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.TelegramToken = getEnvOrDefault("TELEGRAM_TOKEN", cfg.TelegramToken)
	cfg.Timezone = getEnvOrDefault("TIMEZONE", cfg.Timezone)
	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.MQURL = getEnvOrDefault("MQ_URL", cfg.MQURL)
	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisPassword)

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.TelegramChatID = id
	}
	if v := os.Getenv("NOTIFICATIONS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NOTIFICATIONS_ENABLED %q: %w", v, err)
		}
		cfg.NotificationsEnabled = enabled
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}
	if v := os.Getenv("DISPATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_INTERVAL %q: %w", v, err)
		}
		cfg.DispatchInterval = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURI == "" {
			return fmt.Errorf("DATABASE_URI is required for the %s store", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s store", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

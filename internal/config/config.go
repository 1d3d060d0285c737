package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL   = "https://api.dragonvpn.app/api/v1"
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 5 * time.Second
)

type Config struct {
	AppEnv         string
	APIBaseURL     string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	RateLimitRPS   float64

	// Raw Telegram WebApp init data, forwarded as X-Telegram-Init-Data.
	InitData    string
	BotToken    string
	ChatID      int64
	BotUsername string

	StorageDriver string
	RedisAddr     string
	RedisPassword string
	DBURL         string

	StatusAddr string
	// StatusToken protects the status server; empty leaves it open.
	StatusToken string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		APIBaseURL:    getEnv("API_BASE_URL", DefaultAPIBaseURL),
		InitData:      os.Getenv("TELEGRAM_INIT_DATA"),
		BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		BotUsername:   getEnv("BOT_USERNAME", "dragon_vpn_bot"),
		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DBURL:         os.Getenv("DB_URL"),
		StatusAddr:    getEnv("STATUS_ADDR", ":8090"),
		StatusToken:   os.Getenv("STATUS_TOKEN"),
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("API_TIMEOUT", DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}

	rps := getEnv("RATE_LIMIT_RPS", "10")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", rps, err)
	}

	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		if cfg.ChatID, err = strconv.ParseInt(chat, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chat, err)
		}
	}

	switch cfg.StorageDriver {
	case "memory", "redis":
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required for the postgres storage driver")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

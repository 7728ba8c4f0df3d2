// Package config holds the process configuration and the tunables of the
// chat core. Values are read from the environment (a .env file is loaded
// by main before Process is called).
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is populated from environment variables via envconfig.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"user"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"password"`
	DBName     string `envconfig:"DB_NAME" default:"supportchat"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// FallbackAdminID, when set, is assigned to rooms created while no
	// admin account is active. When empty, room creation fails with
	// ErrNoAdminAvailable instead.
	FallbackAdminID string `envconfig:"FALLBACK_ADMIN_ID"`

	// Optional operator alerting via Telegram. Disabled when the token
	// is empty.
	TelegramBotToken       string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramOperatorChatID int64  `envconfig:"TELEGRAM_OPERATOR_CHAT_ID"`

	// File link signing and the directory the download endpoint serves.
	FileBaseURL   string `envconfig:"FILE_BASE_URL" default:"http://localhost:8080/files"`
	FileURLSecret string `envconfig:"FILE_URL_SECRET" default:"dev-secret"`
	FileStoreDir  string `envconfig:"FILE_STORE_DIR" default:"./uploads"`
}

// Load populates a Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"imagegen-bot/internal/gemini"
	"imagegen-bot/internal/logger"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"development"`
	Logger   logger.Config
	Telegram TelegramConfig
	Gemini   gemini.Config
	HTTP     HTTPConfig
	Storage  StorageConfig
	RabbitMQ RabbitMQConfig

	// Каталог для временных файлов изображений
	TempDir      string        `env:"TEMP_DIR" env-default:"temp"`
	CleanupDelay time.Duration `env:"IMAGE_CLEANUP_DELAY" env-default:"30s"`

	TeamAttribution string `env:"TEAM_ATTRIBUTION" env-default:"Developed by The Firm AI Team"`
	TeamName        string `env:"TEAM_NAME" env-default:"The Firm AI Team"`
}

// TelegramConfig настройки подключения к Bot API.
type TelegramConfig struct {
	Token string `env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	// Пустое значение - стандартный endpoint tgbotapi
	APIEndpoint string `env:"TELEGRAM_API_ENDPOINT"`
	PollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT" env-default:"60"`
	Debug       bool   `env:"TELEGRAM_DEBUG" env-default:"false"`
}

// HTTPConfig настройки HTTP сервера статистики.
type HTTPConfig struct {
	Port               string        `env:"PORT" env-default:"5000"`
	ReadTimeout        time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout       time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout        time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	StaticDir          string        `env:"STATIC_DIR" env-default:"dist/public"`
}

// StorageConfig выбор и настройки хранилища.
type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" env-default:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int32  `env:"DB_MAX_CONNS" env-default:"10"`
}

// RabbitMQConfig конфигурация для публикации событий. Пустой URL отключает публикацию.
type RabbitMQConfig struct {
	URL         string `env:"RABBITMQ_URL"`
	EventsQueue string `env:"RABBITMQ_EVENTS_QUEUE" env-default:"image_generation_events"`
}

// Enabled сообщает, настроена ли публикация событий.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

// Load загружает конфигурацию из переменных окружения и .env файла.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет зависимости между параметрами.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StoragePostgres)
		}
		if c.Storage.MaxConns <= 0 {
			return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.Storage.MaxConns)
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q (expected %q or %q)", c.Storage.Driver, StorageMemory, StoragePostgres)
	}
	if c.Telegram.PollTimeout < 0 {
		return fmt.Errorf("TELEGRAM_POLL_TIMEOUT must not be negative")
	}
	if c.CleanupDelay < 0 {
		return fmt.Errorf("IMAGE_CLEANUP_DELAY must not be negative")
	}
	if c.TempDir == "" {
		return fmt.Errorf("TEMP_DIR must not be empty")
	}
	return nil
}

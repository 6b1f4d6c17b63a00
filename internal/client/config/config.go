package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config — конфигурация клиента. Приоритет: значения по умолчанию ←
// переменные окружения (CODETUTOR_*) ← флаги командной строки.
type Config struct {
	// ServerURL — адрес API сервера
	ServerURL string `env:"CODETUTOR_SERVER_URL"`
	// DBPath — путь к локальной базе (хранит только bearer токен)
	DBPath string `env:"CODETUTOR_DB_PATH"`
	// RequestTimeout — страховочный таймаут HTTP запросов
	RequestTimeout time.Duration `env:"CODETUTOR_REQUEST_TIMEOUT"`
	// DevMode — показывать fallback OTP из ответов сервера
	DevMode bool `env:"CODETUTOR_DEV_MODE"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		DBPath:         "codetutor-client.db",
		RequestTimeout: 30 * time.Second,
	}
}

// Load читает конфигурацию: defaults + переменные окружения
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// RegisterFlags привязывает поля конфигурации к флагам.
// Вызывается после Load: флаги перекрывают окружение.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ServerURL, "server", c.ServerURL, "Server URL")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Path to local database")
	fs.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "HTTP request timeout")
	fs.BoolVar(&c.DevMode, "dev", c.DevMode, "Show fallback verification codes (dev mode)")
}

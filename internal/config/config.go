package config

import (
	"fmt"
	"log"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config структура конфигурации
type Config struct {
	AppName          string        `env:"APP_NAME,default=Toyswap API"`
	AppEnv           string        `env:"APP_ENV,default=production"`
	Port             string        `env:"PORT,default=8080"`
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	JWTSecret        string        `env:"JWT_SECRET,required=true"`
	JWTTTL           time.Duration `env:"JWT_TTL,default=24h"`

	DatabaseConfig DatabaseConfig
	LedgerConfig   LedgerConfig
	RelayConfig    RelayConfig
	EventsConfig   EventsConfig
	ChatConfig     ChatConfig

	// Формируется из DatabaseConfig, если DATABASE_URL не задан
	DatabaseURL string `env:"DATABASE_URL"`
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `env:"PGHOST,default=localhost"`
	Port     string `env:"PGPORT,default=5432"`
	User     string `env:"PGUSER,default=toyswap_user"`
	Password string `env:"PGPASSWORD,default=toyswap_pass"`
	Name     string `env:"PGDATABASE,default=toyswap"`
	SSLMode  string `env:"PGSSLMODE,default=disable"`
	MaxConns int32  `env:"PG_MAX_CONNS,default=10"`
	MinConns int32  `env:"PG_MIN_CONNS,default=2"`
}

// LedgerConfig выбирает хранилище истории сообщений
type LedgerConfig struct {
	Backend   string `env:"LEDGER_BACKEND,default=postgres"` // postgres | badger
	BadgerDir string `env:"LEDGER_BADGER_DIR,default=./data/ledger"`
}

// RelayConfig содержит настройки Redis для рассылки событий комнат между инстансами
type RelayConfig struct {
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
	Channel       string `env:"RELAY_CHANNEL,default=toyswap:rooms"`
}

// EventsConfig содержит настройки RabbitMQ для доменных событий
type EventsConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Queue       string `env:"RABBITMQ_EVENTS_QUEUE,default=toyswap.transactions"`
}

// ChatConfig содержит параметры WebSocket-соединений
type ChatConfig struct {
	SendBufferSize int           `env:"WS_SEND_BUFFER,default=256"`
	PongWait       time.Duration `env:"WS_PONG_WAIT,default=60s"`
	MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE,default=65536"`
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.DatabaseConfig.URL()
	}

	if cfg.LedgerConfig.Backend != "postgres" && cfg.LedgerConfig.Backend != "badger" {
		return nil, fmt.Errorf("неизвестный LEDGER_BACKEND: %q", cfg.LedgerConfig.Backend)
	}

	return &cfg, nil
}

// URL формирует строку подключения к базе данных
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

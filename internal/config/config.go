package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Бэкенды хранилища документов.
const (
	BackendFirebase = "firebase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultAdminID — администратор по умолчанию, если ADMIN_ID не задан.
const DefaultAdminID int64 = 5024973191

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	BotToken string
	AdminID  int64
	// TelegramAPIEndpoint — шаблон URL Bot API ("https://api.telegram.org/bot%s/%s"); пустой — по умолчанию.
	TelegramAPIEndpoint string

	StoreBackend string

	Firebase struct {
		// DatabaseURL — URL Realtime Database (переменная DATABASE_URL).
		DatabaseURL string
		// Credentials — JSON сервисного аккаунта (переменная FIREBASE_CREDENTIALS).
		Credentials string
	}

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	KafkaBrokers     []string
	KafkaTopicTicket string
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:             getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:            firstEnv("APP_PORT", "HTTP_PORT", "PORT", "8080"),
		AppEnv:              getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		BotToken:            getEnv("BOT_TOKEN", ""),
		TelegramAPIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),
		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", BackendFirebase)),
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket:    getEnv("KAFKA_TOPIC_TICKET", ""),
	}

	adminID, err := strconv.ParseInt(getEnv("ADMIN_ID", strconv.FormatInt(DefaultAdminID, 10)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: ADMIN_ID must be numeric: %w", err)
	}
	cfg.AdminID = adminID

	cfg.Firebase.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.Firebase.Credentials = getEnv("FIREBASE_CREDENTIALS", "")

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "support_bot")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

// Validate проверяет настройки хранилища.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirebase:
		if c.Firebase.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the firebase store")
		}
		if c.Firebase.Credentials == "" {
			return errors.New("config: FIREBASE_CREDENTIALS is required for the firebase store")
		}
	case BackendPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	case BackendMemory:
		if c.AppEnv == "production" {
			return errors.New("config: memory store is not allowed in production")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

// ValidateBot проверяет настройки Telegram (нужны для api и webhook).
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return errors.New("config: BOT_TOKEN is required")
	}
	if c.AdminID == 0 {
		return errors.New("config: ADMIN_ID must be non-zero")
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

// PostgresURL — URL для миграций и создания базы.
func (c *Config) PostgresURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList разбивает "host1:9092,host2:9092" на слайс.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

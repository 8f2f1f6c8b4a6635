package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	PriceFeed PriceFeedConfig
	APIToken  string `env:"API_TOKEN" envDefault:""`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port string `env:"SERVER_PORT" envDefault:"5000"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host          string `env:"DB_HOST" envDefault:"localhost"`
	Port          string `env:"DB_PORT" envDefault:"5432"`
	User          string `env:"DB_USER" envDefault:"postgres"`
	Password      string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName        string `env:"DB_NAME" envDefault:"portfolio"`
	SSLMode       string `env:"DB_SSLMODE" envDefault:"disable"`
	MigrationsDir string `env:"DB_MIGRATIONS_DIR" envDefault:"db/migrations"`
}

// RedisConfig holds Redis configuration for the quote cache
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	QuoteTTL time.Duration `env:"REDIS_QUOTE_TTL" envDefault:"5m"`
}

// KafkaConfig holds Kafka configuration. Leaving Brokers empty
// disables event publishing.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"portfolio-events"`
}

// PriceFeedConfig holds price source configuration
type PriceFeedConfig struct {
	UseMockData bool          `env:"USE_MOCK_DATA" envDefault:"true"`
	QuoteAPIURL string        `env:"QUOTE_API_URL" envDefault:""`
	Timeout     time.Duration `env:"QUOTE_API_TIMEOUT" envDefault:"10s"`
	MaxRetries  int           `env:"QUOTE_API_MAX_RETRIES" envDefault:"3"`
}

// MustLoad reads configuration from the environment, loading .env first
// when present. It exits the process on a parse failure.
func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config error: %s", err)
	}
	return cfg
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

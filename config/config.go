package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config структура конфигурации приложения
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"jwt"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"log"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	ReleaseMode     bool   `mapstructure:"release_mode"`
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig конфигурация кеша
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"`
}

// KafkaConfig конфигурация публикации событий
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AuthConfig конфигурация JWT
type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	TokenTTL int    `mapstructure:"token_ttl"`
	Issuer   string `mapstructure:"issuer"`
}

// StoreConfig выбор хранилища подписки: "postgres" или "memory"
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SeedConfig учетная запись разработчика, создаваемая при старте
type SeedConfig struct {
	DeveloperUsername string `mapstructure:"developer_username"`
	DeveloperPassword string `mapstructure:"developer_password"`
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ReadTimeoutDuration таймаут чтения запроса
func (c ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// WriteTimeoutDuration таймаут записи ответа
func (c ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// IdleTimeoutDuration таймаут простоя keep-alive соединения
func (c ServerConfig) IdleTimeoutDuration() time.Duration {
	return 60 * time.Second
}

// ShutdownTimeoutDuration время на graceful shutdown
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// TokenLifetime возвращает время жизни токена
func (c *AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenTTL) * time.Minute
}

// CacheTTL возвращает TTL записи в Redis
func (c *RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Enabled сообщает, настроен ли Redis
func (c *RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// Enabled сообщает, настроены ли брокеры Kafka
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.shutdown_timeout", 30)
	v.SetDefault("server.release_mode", false)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "attendance")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 60)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "subscription.events")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.token_ttl", 720)
	v.SetDefault("jwt.issuer", "attendance-service")

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")

	v.SetDefault("seed.developer_username", "")
	v.SetDefault("seed.developer_password", "")
}

// Load загружает конфигурацию: .env (если есть), config.yaml (если есть), переменные окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// SERVER_PORT -> server.port, DB_HOST -> db.host и т.д.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	// KAFKA_BROKERS приходит строкой через запятую, возможно с пробелами
	cfg.Kafka.Brokers = splitList(strings.Join(cfg.Kafka.Brokers, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: JWT_TOKEN_TTL must be positive")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

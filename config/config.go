package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

// Errors
var (
	ErrInvalidStorage  = errors.New("invalid storage driver")
	ErrInvalidBroker   = errors.New("invalid broker kind")
	ErrInvalidGeocoder = errors.New("invalid geocoder provider")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrEmptySecret     = errors.New("jwt secret must not be empty")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Service  ServiceConfig
		Storage  StorageConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Broker   BrokerConfig
		RabbitMQ RabbitMQConfig
		Kafka    KafkaConfig
		Geocoder GeocoderConfig
		Dispatch DispatchConfig
		Auth     Auth
	}

	ServiceConfig struct {
		Name            string        `env:"SERVICE_NAME" default:"ride-dispatch"`
		Port            string        `env:"SERVICE_PORT" default:"3000"`
		LogLevel        string        `env:"SERVICE_LOG_LEVEL" default:"INFO"`
		ShutdownTimeout time.Duration `env:"SERVICE_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	StorageConfig struct {
		Driver types.StorageDriver `env:"STORAGE_DRIVER" default:"postgres"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"dispatch_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`         // максимум открытых соединений
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`          // минимум соединений в пуле
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"` // макс. "время жизни" соединения
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`  // макс. "время простоя" соединения
		AutoMigrate     bool          `env:"DATABASE_AUTOMIGRATE" default:"true"`
	}

	// RedisConfig backs the candidate locator and offer tracking. An empty address
	// switches both to in-process implementations.
	RedisConfig struct {
		Addr     string `env:"REDIS_ADDR" default:""`
		Password string `env:"REDIS_PASSWORD" default:""`
		DB       int    `env:"REDIS_DB" default:"0"`
		GeoKey   string `env:"REDIS_GEO_KEY" default:"dispatch:drivers"`
	}

	BrokerConfig struct {
		Kind types.BrokerKind `env:"BROKER_KIND" default:"none"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		Exchange string `env:"RABBITMQ_EXCHANGE" default:"ride_topic"`
	}

	KafkaConfig struct {
		Brokers []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
		Topic   string   `env:"KAFKA_TOPIC" default:"ride-status"`
	}

	GeocoderConfig struct {
		Provider         types.GeocoderProvider `env:"GEOCODER_PROVIDER" default:"none"`
		LocationIQAPIKey string                 `env:"GEOCODER_LOCATIONIQ_API_KEY"`
		GoogleAPIKey     string                 `env:"GEOCODER_GOOGLE_API_KEY"`
	}

	DispatchConfig struct {
		RadiusKm        float64       `env:"DISPATCH_RADIUS_KM" default:"4"`
		MaxCandidates   int           `env:"DISPATCH_MAX_CANDIDATES" default:"50"`
		NotifyTimeout   time.Duration `env:"DISPATCH_NOTIFY_TIMEOUT" default:"3s"`
		DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" default:"15s"`
		OfferTTL        time.Duration `env:"DISPATCH_OFFER_TTL" default:"10m"`
	}

	Auth struct {
		JWTSecret      string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
		AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" default:"24h"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case types.StoragePostgres, types.StorageMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStorage, c.Storage.Driver)
	}

	switch c.Broker.Kind {
	case types.BrokerRabbitMQ, types.BrokerKafka, types.BrokerNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBroker, c.Broker.Kind)
	}

	switch c.Geocoder.Provider {
	case types.GeocoderNone, types.GeocoderLocationIQ, types.GeocoderGoogle:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidGeocoder, c.Geocoder.Provider)
	}

	if !logger.ValidateLogLevel(c.Service.LogLevel) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Service.LogLevel)
	}

	if c.Auth.JWTSecret == "" {
		return ErrEmptySecret
	}

	return nil
}

package config

import (
	"context"
	"flag"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

const HelpMessage = `
ride-dispatch: ride dispatch and lifecycle coordinator

Usage:
  dispatch [--config-path <file>] [--help]

Options:
  --config-path   Path to the YAML config file (default: config.yaml)
  --help          Show this help message

Every YAML key is flattened to an environment variable (service.port -> SERVICE_PORT);
variables already set in the environment win over the file.

  SERVICE_PORT                 HTTP and websocket port (3000)
  SERVICE_LOG_LEVEL            DEBUG | INFO | WARN | ERROR
  STORAGE_DRIVER               postgres | memory
  DATABASE_*                   postgres connection
  REDIS_ADDR                   redis for the driver index; empty keeps it in process
  BROKER_KIND                  rabbitmq | kafka | none
  GEOCODER_PROVIDER            none | locationiq | google
  DISPATCH_RADIUS_KM           candidate search radius (4)
  AUTH_JWT_SECRET              HS256 secret shared with the token issuer
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

const masked = "********"

// PrintConfig logs the effective configuration with secrets masked.
func PrintConfig(ctx context.Context, cfg *Config, log logger.Logger) {
	log.Info(ctx, "configuration loaded",
		"service_name", cfg.Service.Name,
		"service_port", cfg.Service.Port,
		"log_level", cfg.Service.LogLevel,
		"storage_driver", cfg.Storage.Driver,
		"database_dsn", fmt.Sprintf("postgres://%s:%s@%s:%s/%s", cfg.Database.User, masked, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database),
		"redis_addr", cfg.Redis.Addr,
		"broker_kind", cfg.Broker.Kind,
		"rabbitmq_host", cfg.RabbitMQ.Host,
		"kafka_brokers", cfg.Kafka.Brokers,
		"kafka_topic", cfg.Kafka.Topic,
		"geocoder_provider", cfg.Geocoder.Provider,
		"dispatch_radius_km", cfg.Dispatch.RadiusKm,
		"dispatch_notify_timeout", cfg.Dispatch.NotifyTimeout.String(),
		"jwt_secret", masked,
	)
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/geocoder"
	kafkapub "github.com/Temutjin2k/ride-dispatch/internal/adapter/kafka"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	rabbitpub "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	redisidx "github.com/Temutjin2k/ride-dispatch/internal/adapter/redis"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/seed"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	"github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	"github.com/Temutjin2k/ride-dispatch/pkg/redis"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

type profileStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	LockRating(ctx context.Context, id uuid.UUID) error
	UpdateRating(ctx context.Context, id uuid.UUID, agg models.RatingAggregate) error
	SetPresence(ctx context.Context, id uuid.UUID, status types.DriverStatus) error
}

type storage struct {
	rides    ride.RideStore
	profiles profileStore
	tx       trm.TxManager
}

type driverIndex interface {
	dispatch.Locator
	driver.Locator
}

func (a *App) initStorage(ctx context.Context) (storage, error) {
	if a.cfg.Storage.Driver == types.StorageMemory {
		a.log.Warn(ctx, "using in-memory storage, rides are lost on restart")
		profiles := memory.NewProfileStore()
		// nothing else can create profiles in this mode
		if _, err := seed.Apply(ctx, profiles); err != nil {
			return storage{}, wrapInit("demo profiles", err)
		}
		return storage{rides: memory.NewRideStore(), profiles: profiles, tx: memory.NewTxManager()}, nil
	}

	db, err := postgres.New(ctx, a.cfg.Database, postgres.PoolOptions{
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: a.cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		a.log.Error(ctx, "failed to setup database", err)
		return storage{}, wrapInit("database", err)
	}
	a.onClose(func(context.Context) { db.Close() })
	a.probe("postgres", db.Pool.Ping)

	if a.cfg.Database.AutoMigrate {
		if err := repo.Migrate(ctx, db.Pool); err != nil {
			return storage{}, wrapInit("schema", err)
		}
	}

	tx := trm.New(db.Pool)
	return storage{
		rides:    repo.NewRideRepo(db.Pool, tx, a.cfg.Service.Name),
		profiles: repo.NewProfileRepo(db.Pool),
		tx:       tx,
	}, nil
}

// initIndex returns the driver index and offer tracker: redis when an address is
// configured, in-process otherwise.
func (a *App) initIndex(ctx context.Context) (driverIndex, dispatch.OfferTracker, error) {
	limit := a.cfg.Dispatch.MaxCandidates
	if a.cfg.Redis.Addr == "" {
		return memory.NewLocator(limit), memory.NewOfferTracker(), nil
	}

	client, err := redis.New(ctx, redis.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		a.log.Error(ctx, "failed to connect to redis", err)
		return nil, nil, wrapInit("redis", err)
	}
	a.onClose(func(ctx context.Context) {
		if err := client.Close(); err != nil {
			a.log.Warn(ctx, "failed to close redis client", "error", err.Error())
		}
	})

	a.probe("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })

	return redisidx.NewLocator(client, a.cfg.Redis.GeoKey, limit), redisidx.NewOfferTracker(client, a.cfg.Dispatch.OfferTTL), nil
}

func (a *App) initPublisher(ctx context.Context) (ride.EventPublisher, error) {
	service := a.cfg.Service.Name

	switch a.cfg.Broker.Kind {
	case types.BrokerRabbitMQ:
		client, err := rabbit.New(ctx, a.cfg.RabbitMQ.GetDSN(), a.log)
		if err != nil {
			a.log.Error(ctx, "failed to connect to rabbitmq", err)
			return nil, wrapInit("rabbitmq", err)
		}
		a.onClose(func(ctx context.Context) {
			if err := client.Close(ctx); err != nil {
				a.log.Warn(ctx, "failed to close rabbitmq", "error", err.Error())
			}
		})
		a.probe("rabbitmq", func(context.Context) error {
			if client.IsConnectionClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
		return rabbitpub.NewRideStatusPublisher(client, a.cfg.RabbitMQ.Exchange, service, a.log)

	case types.BrokerKafka:
		pub := kafkapub.NewRideStatusPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, service, a.log)
		a.onClose(func(ctx context.Context) {
			if err := pub.Close(); err != nil {
				a.log.Warn(ctx, "failed to close kafka writer", "error", err.Error())
			}
		})
		return pub, nil

	case types.BrokerNone:
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %q", types.ErrInvalidInput, a.cfg.Broker.Kind)
}

func (a *App) initGeocoder() (ride.Geocoder, error) {
	switch a.cfg.Geocoder.Provider {
	case types.GeocoderLocationIQ:
		return geocoder.NewLocationIQ(a.cfg.Geocoder.LocationIQAPIKey), nil
	case types.GeocoderGoogle:
		client, err := geocoder.NewGoogle(a.cfg.Geocoder.GoogleAPIKey)
		if err != nil {
			return nil, wrapInit("google geocoder", err)
		}
		return client, nil
	}
	return geocoder.Disabled{}, nil
}

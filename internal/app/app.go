package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	"github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/internal/service/rejoin"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

var ErrServiceNotInitialized = errors.New("service not initialized")

// App owns every long-lived component and shuts them down in reverse order.
type App struct {
	httpServer *server.API
	hub        *ws.ConnectionHub
	engine     *dispatch.Engine
	notifier   *notify.Service

	// closers release infrastructure clients, run last-in first-out
	closers []func(ctx context.Context)
	probes  map[string]handler.Probe

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	if err := a.init(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "app_init")
	service := a.cfg.Service.Name

	store, err := a.initStorage(ctx)
	if err != nil {
		return err
	}

	locator, tracker, err := a.initIndex(ctx)
	if err != nil {
		return err
	}

	publisher, err := a.initPublisher(ctx)
	if err != nil {
		return err
	}

	geocoder, err := a.initGeocoder()
	if err != nil {
		return err
	}

	a.hub = ws.NewConnHub(a.log.With("component", "ws_hub"), func(n int) {
		metrics.WebSocketConnectionsGauge.WithLabelValues(service).Set(float64(n))
	})
	a.notifier = notify.New(a.hub, a.cfg.Dispatch.NotifyTimeout, service, a.log.With("component", "notify"))
	a.engine = dispatch.New(store.rides, locator, a.hub, a.notifier, tracker, dispatch.Config{
		RadiusKm: a.cfg.Dispatch.RadiusKm,
		Timeout:  a.cfg.Dispatch.DispatchTimeout,
		Service:  service,
	}, a.log.With("component", "dispatch"))

	rides := ride.NewRideService(store.rides, store.profiles, store.tx, a.engine, a.notifier, publisher, geocoder, ridecalc.New(), service, a.log.With("component", "ride"))
	drivers := driver.New(store.profiles, locator, store.rides, a.notifier, geocoder, service, a.log.With("component", "driver"))
	rejoiner := rejoin.New(store.rides, store.profiles, a.hub, a.cfg.Dispatch.NotifyTimeout, a.log.With("component", "rejoin"))
	tokens := auth.NewTokenService(a.cfg.Auth.JWTSecret, a.cfg.Auth.AccessTokenTTL, a.log)

	a.httpServer, err = server.New(a.cfg, server.Services{
		Rides:   rides,
		Drivers: drivers,
		Rejoin:  rejoiner,
		Hub:     a.hub,
		Tokens:  tokens,
		Probes:  a.probes,
	}, a.log)
	if err != nil {
		a.log.Error(ctx, "failed to setup http server", err)
		return err
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	if a.httpServer == nil {
		return ErrServiceNotInitialized
	}

	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service started", "port", a.cfg.Service.Port)

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

// close stops intake first, then drains in-flight pushes before the clients they
// depend on go away.
func (a *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Service.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.engine != nil {
		a.engine.Wait()
	}
	if a.notifier != nil {
		a.notifier.Wait()
	}
	if a.hub != nil {
		a.hub.Close()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

func (a *App) onClose(fn func(ctx context.Context)) {
	a.closers = append(a.closers, fn)
}

func (a *App) probe(name string, check handler.Probe) {
	if a.probes == nil {
		a.probes = make(map[string]handler.Probe)
	}
	a.probes[name] = check
}

func wrapInit(what string, err error) error {
	return fmt.Errorf("failed to init %s: %w", what, err)
}

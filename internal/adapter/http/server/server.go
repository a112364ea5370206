package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	ride   *handler.Ride
	driver *handler.Driver
	ws     *handler.WS
	health *handler.Health
}

// Services groups what the HTTP layer calls into.
type Services struct {
	Rides   handler.RideService
	Drivers handler.DriverService
	Rejoin  handler.Rejoiner
	Hub     interface {
		handler.ConnRegistry
		handler.ConnCounter
	}
	Tokens middleware.TokenValidator
	// Probes are reported by /health, keyed by dependency name.
	Probes map[string]handler.Probe
}

func New(cfg config.Config, svc Services, logger logger.Logger) (*API, error) {
	if svc.Tokens == nil {
		return nil, errors.New("token validator is required")
	}
	if svc.Rides == nil || svc.Drivers == nil || svc.Rejoin == nil || svc.Hub == nil {
		return nil, errors.New("ride, driver, rejoin services and connection hub are required")
	}

	routes := &handlers{
		ride:   handler.NewRide(svc.Rides, logger),
		driver: handler.NewDriver(svc.Drivers, logger),
		ws:     handler.NewWS(svc.Hub, svc.Rejoin, svc.Drivers, logger),
		health: handler.NewHealth(cfg.Service.Name, svc.Hub, svc.Probes, logger),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(svc.Tokens, logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Service.Port),
		cfg:    cfg,
		log:    logger,
	}

	setupRoutes(api.mux, api.routes, api.m)

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	return a.m.Recover(
		a.m.RequestID(
			a.m.Metrics(a.cfg.Service.Name)(
				a.m.Logging(
					a.m.Auth(a.mux),
				),
			),
		),
	)
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

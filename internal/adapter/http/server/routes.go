package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// SwaggerInstance is the swag instance the API docs are registered under.
const SwaggerInstance = "dispatch"

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux)
	setupMetricsRoute(mux)

	setupRideRoutes(mux, routes, m)
	setupDriverRoutes(mux, routes, m)

	mux.Handle("GET /ws", m.RequireRoles(routes.ws.Connect)) // Live channel for both roles
}

func setupRideRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides", m.RequireRoles(routes.ride.CreateRide, types.RoleRider))
	mux.Handle("GET /rides/active", m.RequireRoles(routes.ride.GetActiveRide))
	mux.Handle("GET /rides/history", m.RequireRoles(routes.ride.RideHistory))
	mux.Handle("GET /rides/{ride_id}", m.RequireRoles(routes.ride.GetRide))

	mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(routes.ride.AcceptRide, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/start", m.RequireRoles(routes.ride.StartRide, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/complete", m.RequireRoles(routes.ride.CompleteRide, types.RoleDriver))

	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(routes.ride.CancelRide))
	mux.Handle("POST /rides/{ride_id}/rate", m.RequireRoles(routes.ride.RateRide))
	mux.Handle("POST /rides/{ride_id}/messages", m.RequireRoles(routes.ride.PostMessage))
}

func setupDriverRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /drivers/online", m.RequireRoles(routes.driver.GoOnline, types.RoleDriver))
	mux.Handle("POST /drivers/offline", m.RequireRoles(routes.driver.GoOffline, types.RoleDriver))
	mux.Handle("POST /drivers/location", m.RequireRoles(routes.driver.UpdateLocation, types.RoleDriver))
}

// setupSwaggerRoutes configures Swagger UI endpoints
func setupSwaggerRoutes(mux *http.ServeMux) {
	swaggerURL := httpSwagger.InstanceName(SwaggerInstance)
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Ride lifecycle
	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_transitions_total",
			Help: "Ride status transitions that reached the store",
		},
		[]string{"service", "from", "to"},
	)

	RideConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_conflicts_total",
			Help: "Conditional updates that lost against a concurrent transition",
		},
		[]string{"service", "operation"},
	)

	OTPFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_otp_failures_total",
			Help: "Rejected start attempts by reason",
		},
		[]string{"service", "reason"},
	)

	// Dispatch and push delivery
	DispatchCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_candidates",
			Help:    "Number of drivers offered a ride per dispatch",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"service", "vehicle_class"},
	)

	DispatchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_errors_total",
			Help: "Dispatch runs that failed to locate candidates",
		},
		[]string{"service"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Push deliveries by event and outcome",
		},
		[]string{"service", "event", "outcome"},
	)

	DriversOnlineGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drivers_online_total",
			Help: "Current number of online drivers",
		},
		[]string{"service"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	// Storage and broker
	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	BrokerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Ride status events published to the broker",
		},
		[]string{"service", "broker", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(service, operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(service, operation, statusOf(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func RecordTransition(service, from, to string) {
	RideTransitionsTotal.WithLabelValues(service, from, to).Inc()
}

func RecordConflict(service, operation string) {
	RideConflictsTotal.WithLabelValues(service, operation).Inc()
}

func RecordOTPFailure(service, reason string) {
	OTPFailuresTotal.WithLabelValues(service, reason).Inc()
}

func RecordDispatch(service, vehicleClass string, offered int) {
	DispatchCandidates.WithLabelValues(service, vehicleClass).Observe(float64(offered))
}

func RecordDispatchError(service string) {
	DispatchErrorsTotal.WithLabelValues(service).Inc()
}

func RecordNotification(service, event, outcome string) {
	NotificationsTotal.WithLabelValues(service, event, outcome).Inc()
}

// RecordPublish records broker publish metrics
func RecordPublish(service, broker string, err error) {
	BrokerMessagesPublished.WithLabelValues(service, broker, statusOf(err)).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

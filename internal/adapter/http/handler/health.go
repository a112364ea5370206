package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const probeTimeout = 2 * time.Second

// ConnCounter reports the number of live websocket channels.
type ConnCounter interface {
	Len() int
}

// Probe checks one dependency, e.g. a postgres or redis ping.
type Probe func(ctx context.Context) error

type Health struct {
	serviceName string
	conns       ConnCounter
	probes      map[string]Probe
	log         logger.Logger
}

func NewHealth(serviceName string, conns ConnCounter, probes map[string]Probe, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		conns:       conns,
		probes:      probes,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Reports dependency status and the number of connected websocket clients. Answers 503 when a dependency is down.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	status, code := "available", http.StatusOK
	deps := make(map[string]string, len(a.probes))
	for _, name := range a.probeNames() {
		if err := a.probe(ctx, name); err != nil {
			a.log.Warn(ctx, "dependency unhealthy", "dependency", name, "error", err.Error())
			deps[name] = "down"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	response := envelope{
		"status": status,
		"system_info": map[string]any{
			"service-name":   a.serviceName,
			"ws-connections": a.conns.Len(),
			"dependencies":   deps,
		},
	}

	if err := writeJSON(w, code, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
	}
}

func (a *Health) probe(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return a.probes[name](ctx)
}

func (a *Health) probeNames() []string {
	names := make([]string, 0, len(a.probes))
	for name := range a.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package health tracks dependency checks and serves them over gRPC and HTTP.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"marketplace-chat/internal/observability"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

const checkTimeout = 3 * time.Second

// Monitor runs checks and mirrors the result into a gRPC health server.
type Monitor struct {
	service string
	grpc    *grpchealth.Server
	logger  *slog.Logger

	mu      sync.RWMutex
	checks  map[string]Check
	results map[string]error
}

func NewMonitor(service string, logger *slog.Logger) *Monitor {
	return &Monitor{
		service: service,
		grpc:    grpchealth.NewServer(),
		logger:  logger,
		checks:  make(map[string]Check),
		results: make(map[string]error),
	}
}

// Add registers a named check.
func (m *Monitor) Add(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// CheckNow runs every check once and returns whether all passed.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	results := make(map[string]error, len(checks))
	healthy := true
	for name, check := range checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			healthy = false
			m.logger.Warn("health check failed", "check", name, "error", err)
		}
		results[name] = err
	}

	m.mu.Lock()
	m.results = results
	m.mu.Unlock()

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.grpc.SetServingStatus("", status)
	m.grpc.SetServingStatus(m.service, status)
	return healthy
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.CheckNow(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// Shutdown marks the service as not serving so load balancers drain it.
func (m *Monitor) Shutdown() {
	m.grpc.Shutdown()
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler serves the last check results as JSON; 503 when any failed.
func (m *Monitor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		results := make([]checkResult, 0, len(m.results))
		healthy := true
		for name, err := range m.results {
			r := checkResult{Name: name, Status: "ok"}
			if err != nil {
				healthy = false
				r.Status, r.Error = "failing", err.Error()
			}
			results = append(results, r)
		}
		m.mu.RUnlock()
		sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

		status, code := "ok", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "checks": results})
	}
}

// NewGRPCServer builds a traced, metered gRPC server exposing the health service.
func NewGRPCServer(m *Monitor) *grpc.Server {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthpb.RegisterHealthServer(server, m.grpc)
	return server
}

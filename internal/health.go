package internal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultHealthTimeout = 5 * time.Second

	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// CheckFunc is a readiness probe. It matches the healthcheck closures in
// pkg/db and pkg/redis.
type CheckFunc func(ctx context.Context) error

type healthChecks map[string]CheckFunc

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        healthChecks
	livenessPath  string
	readinessPath string
	timeout       time.Duration
}

func newHealthConfig() *healthConfig {
	return &healthConfig{
		checks:        make(healthChecks),
		livenessPath:  defaultLivenessPath,
		readinessPath: defaultReadinessPath,
		timeout:       defaultHealthTimeout,
	}
}

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during the readiness probe.
//
// Example:
//
//	expanse.WithReadinessCheck("db", db.Healthcheck(pool))
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if name != "" && fn != nil {
			c.checks[name] = fn
		}
	}
}

// WithHealthTimeout bounds the duration of all readiness checks.
func WithHealthTimeout(d time.Duration) HealthOption {
	return func(c *healthConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// HealthReport is the readiness response body.
type HealthReport struct {
	Checks map[string]HealthCheck `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

// HealthCheck is the outcome of one readiness check.
type HealthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// routes registers the endpoints as ordinary routes, so they pass through
// global middleware like everything else.
func (h *healthConfig) routes(r Router) {
	r.Group("health", "", func(r Router) {
		r.GET(h.livenessPath, h.liveness, Name("live"))
		r.GET(h.readinessPath, h.readiness, Name("ready"))
	})
}

func (h *healthConfig) liveness(c Context) (*Response, error) {
	return healthResponse(c, http.StatusOK, &HealthReport{Status: statusHealthy}), nil
}

func (h *healthConfig) readiness(c Context) (*Response, error) {
	report := runChecks(c.Context(), h.checks, h.timeout, c.Logger())
	status := http.StatusOK
	if report.Status == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return healthResponse(c, status, report), nil
}

func healthResponse(c Context, status int, report *HealthReport) *Response {
	if c.Query("format") == "json" || c.Accepts("text/plain", "application/json") == "application/json" {
		return JSON(status, report)
	}
	if status == http.StatusOK {
		return Text(status, "OK")
	}
	return Text(status, "Service Unavailable")
}

// runChecks executes all checks in parallel and aggregates the result.
func runChecks(ctx context.Context, checks healthChecks, timeout time.Duration, logger *slog.Logger) *HealthReport {
	if len(checks) == 0 {
		return &HealthReport{Status: statusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[string]HealthCheck, len(checks))
		failed  bool
	)
	for name, check := range checks {
		g.Go(func() error {
			result := HealthCheck{Status: statusHealthy}
			if err := check(ctx); err != nil {
				result = HealthCheck{Status: statusUnhealthy, Error: err.Error()}
				logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			results[name] = result
			failed = failed || result.Status == statusUnhealthy
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := statusHealthy
	if failed {
		status = statusUnhealthy
	}
	return &HealthReport{Status: status, Checks: results}
}

package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/farmer-dashboard/internal/observability"
	apperrors "github.com/spec-kit/farmer-dashboard/pkg/util/errorutil"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthOptions configures the probe endpoints.
type HealthOptions struct {
	Service      string
	Version      string
	Dependencies map[string]Pinger
	Metrics      *observability.Metrics
}

// HealthHandler serves liveness, readiness and the metrics snapshot.
type HealthHandler struct {
	opts HealthOptions
}

func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.opts.Service,
		"version": h.opts.Version,
	})
}

// Ready pings every dependency concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		status = make(map[string]string, len(h.opts.Dependencies))
		ready  = true
	)
	for name, dep := range h.opts.Dependencies {
		wg.Add(1)
		go func(name string, dep Pinger) {
			defer wg.Done()
			result := "ok"
			if err := dep.Ping(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			status[name] = result
			if result != "ok" {
				ready = false
			}
		}(name, dep)
	}
	wg.Wait()

	if !ready {
		details := make(map[string]any, len(status))
		for k, v := range status {
			details[k] = v
		}
		return apperrors.NewDomainError(apperrors.CodeDependencyNotReady,
			"one or more dependencies unavailable", fiber.StatusServiceUnavailable, details)
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": status,
	})
}

// Metrics returns the in-process counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.opts.Metrics.Snapshot())
}

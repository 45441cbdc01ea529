package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Pinger is anything the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Check GET /health. Dependencies are pinged concurrently.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	statuses := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		i, p := i, h.checks[name]
		g.Go(func() error {
			statuses[i] = p.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	healthy := true
	for i, name := range names {
		if statuses[i] != nil {
			healthy = false
			_ = c.Error(statuses[i]).SetMeta(name)
			results[name] = "down: " + statuses[i].Error()
			continue
		}
		results[name] = "up"
	}

	code, status := http.StatusOK, "ok"
	if !healthy {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(code, gin.H{"status": status, "checks": results})
}

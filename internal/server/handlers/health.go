package handlers

import (
	"context"
	"net/http"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/courtsync/internal/server/response"
)

// Health statuses.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Health is the body returned by the health endpoints.
type Health struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth is the health of one upstream.
type ComponentHealth struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// HandlePing handles GET /health/ping.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} Health
// @Router /health/ping [get].
func (h *Handlers) HandlePing(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, Health{Status: StatusUp})
}

// HandleHealth handles GET /health. Every upstream is pinged concurrently;
// any failure reports the service as down.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} Health
// @Failure 503 {object} Health
// @Router /health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.check(r.Context())
	status := http.StatusOK
	if health.Status != StatusUp {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, health)
}

func (h *Handlers) check(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, h.healthTimeout)
	defer cancel()

	var mu gosync.Mutex
	health := Health{Status: StatusUp, Components: make(map[string]ComponentHealth, len(h.components))}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range h.components {
		g.Go(func() error {
			result := ComponentHealth{Status: StatusUp}
			if err := c.Pinger.Ping(gctx); err != nil {
				result = ComponentHealth{Status: StatusDown, Details: map[string]string{"error": err.Error()}}
				h.logger.Warn().Err(err).Str("component", c.Name).Msg("Health check failed")
			}
			mu.Lock()
			defer mu.Unlock()
			health.Components[c.Name] = result
			if result.Status != StatusUp {
				health.Status = StatusDown
			}
			return nil
		})
	}
	_ = g.Wait()
	return health
}

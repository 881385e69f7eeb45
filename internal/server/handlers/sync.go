package handlers

import (
	"net/http"

	"github.com/agentstation/courtsync/internal/server/response"
	"github.com/agentstation/courtsync/pkg/logging"
)

// TriggerREST labels sync duration metrics for passes started over HTTP.
const TriggerREST = "rest"

// HandleSync handles PUT /sync.
// @Summary Run a full sync
// @Description Reconciles every court in the register with the prison system
// @Tags sync
// @Produce json
// @Success 200 {object} sync.Statistics
// @Failure 401 {object} response.Response{error=response.Error}
// @Failure 403 {object} response.Response{error=response.Error}
// @Failure 502 {object} response.Response{error=response.Error}
// @Router /sync [put].
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithTrigger(r.Context(), TriggerREST)
	logger := logging.Ctx(ctx)
	logger.Info().Msg("Full sync requested")

	start := h.now()
	stats, err := h.syncer.FullSync(ctx)
	h.metrics.ObserveSync(TriggerREST, h.now().Sub(start), stats)
	if err != nil {
		logger.Error().Err(err).Msg("Full sync failed")
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, stats)
}

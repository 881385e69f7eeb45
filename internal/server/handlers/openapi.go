package handlers

import (
	"net/http"

	"github.com/agentstation/courtsync/internal/embedded/openapi"
	"github.com/agentstation/courtsync/internal/server/response"
)

// HandleOpenAPIJSON serves the embedded OpenAPI specification in JSON format.
// @Summary Get OpenAPI specification (JSON)
// @Tags meta
// @Produce json
// @Success 200 {object} object "OpenAPI specification"
// @Router /openapi.json [get].
func (h *Handlers) HandleOpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	spec, err := openapi.SpecJSON()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to convert OpenAPI specification")
		response.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(spec)
}

// HandleOpenAPIYAML serves the embedded OpenAPI specification in YAML format.
// @Summary Get OpenAPI specification (YAML)
// @Tags meta
// @Produce application/x-yaml
// @Success 200 {string} string "OpenAPI specification"
// @Router /openapi.yaml [get].
func (h *Handlers) HandleOpenAPIYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(openapi.SpecYAML)
}

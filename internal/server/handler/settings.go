package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/halcyonlabs/swapdesk/internal/agent"
	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// SettingsHandler serves the agent's trading settings.
type SettingsHandler struct {
	agent  *agent.Agent
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(a *agent.Agent, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{agent: a, logger: logger}
}

// GetSettings returns the current trading settings.
// POST /get_settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": h.agent.Settings(),
	})
}

// SetSettings replaces the trading settings after validation.
// POST /set_settings
func (h *SettingsHandler) SetSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.TradingSettings
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.agent.UpdateSettings(req); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update settings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": h.agent.Settings(),
	})
}

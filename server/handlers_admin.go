package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/acnlive/livebot/backend/telemetry"
)

// HandleKnowledgeReload re-reads the knowledge file from disk so entries can
// be edited without restarting the bot. POST only.
func (h *Handlers) HandleKnowledgeReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.deps.Knowledge.Reload()
	n := h.deps.Knowledge.Len()
	telemetry.SetKnowledgeSize(n)
	telemetry.LoggerWithCorr(r.Context()).Info("knowledge reloaded", slog.Int("entries", n))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "entries": n}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

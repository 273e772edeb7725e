package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks:
// the AI provider is configured (when enabled) and, when a YouTube video is
// configured, a stored OAuth token exists.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"ai_provider", func() error {
			if !h.deps.Cfg.AIEnabled {
				return nil // AI disabled on purpose is still ready
			}
			return h.deps.Cfg.ValidateAIReady()
		}},
		{"credential_pool", func() error {
			if h.deps.Pool == nil {
				return nil
			}
			if h.deps.Pool.Usable() == 0 {
				return fmt.Errorf("no usable credentials")
			}
			return nil
		}},
		{"youtube_token", func() error {
			if h.deps.YouTube == nil || h.deps.Cfg.YTVideoID == "" {
				return nil
			}
			if !h.deps.YouTube.HasToken(r.Context()) {
				return fmt.Errorf("no youtube token stored; complete /auth/youtube/start")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			// Set headers before writing status code
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/acnlive/livebot/backend/ai"
)

type statusResponse struct {
	Status         string               `json:"status"`
	UptimeSeconds  int64                `json:"uptime_seconds"`
	AIEnabled      bool                 `json:"ai_enabled"`
	AIProvider     string               `json:"ai_provider"`
	Credentials    []ai.CredentialStats `json:"credentials,omitempty"`
	UsableCreds    int                  `json:"usable_credentials,omitempty"`
	KnowledgeCount int                  `json:"knowledge_entries"`
	YouTubeVideo   string               `json:"youtube_video,omitempty"`
	TwitchChannel  string               `json:"twitch_channel,omitempty"`
	Twitch         *twitchStatus        `json:"twitch,omitempty"`
}

// twitchStatus describes the configured Twitch channel's live state.
type twitchStatus struct {
	Live        bool   `json:"live"`
	Title       string `json:"title,omitempty"`
	GameName    string `json:"game_name,omitempty"`
	ViewerCount int    `json:"viewer_count,omitempty"`
}

// HandleStatus reports runtime state: uptime, the active AI provider and its
// credential pool counters, the knowledge base size, and the Twitch channel's
// live state when a Helix client is configured.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:         "ok",
		UptimeSeconds:  int64(time.Since(h.deps.StartedAt).Seconds()),
		AIEnabled:      h.deps.Cfg.AIEnabled,
		AIProvider:     h.deps.Cfg.AIProvider,
		KnowledgeCount: h.deps.Knowledge.Len(),
		YouTubeVideo:   h.deps.Cfg.YTVideoID,
		TwitchChannel:  h.deps.Cfg.TwitchChannel,
	}
	if h.deps.Pool != nil {
		resp.Credentials = h.deps.Pool.Stats()
		resp.UsableCreds = h.deps.Pool.Usable()
	}
	resp.Twitch = h.twitchLiveStatus(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// twitchLiveStatus looks up the configured channel's stream via Helix. Lookup
// failures degrade to a nil block; status must stay serviceable when Helix is
// unreachable.
func (h *Handlers) twitchLiveStatus(ctx context.Context) *twitchStatus {
	if h.deps.Twitch == nil || h.deps.Cfg.TwitchChannel == "" {
		return nil
	}
	id, err := h.broadcasterID(ctx)
	if err != nil {
		slog.Warn("twitch broadcaster lookup failed", slog.Any("err", err))
		return nil
	}
	stream, err := h.deps.Twitch.GetStream(ctx, id)
	if err != nil {
		slog.Warn("twitch stream lookup failed", slog.Any("err", err))
		return nil
	}
	if stream == nil {
		return &twitchStatus{Live: false}
	}
	return &twitchStatus{
		Live:        true,
		Title:       stream.Title,
		GameName:    stream.GameName,
		ViewerCount: stream.ViewerCount,
	}
}

// broadcasterID resolves and caches the channel login's user id.
func (h *Handlers) broadcasterID(ctx context.Context) (string, error) {
	h.twitchMu.Lock()
	defer h.twitchMu.Unlock()
	if h.twitchID != "" {
		return h.twitchID, nil
	}
	id, err := h.deps.Twitch.GetUserID(ctx, h.deps.Cfg.TwitchChannel)
	if err != nil {
		return "", err
	}
	h.twitchID = id
	return id, nil
}

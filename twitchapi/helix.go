// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for user id resolution, live stream checks and chat moderation, using an app
// access token (or a user token where the endpoint requires one).
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HelixClient provides the Helix calls the chat runner needs. Moderation
// endpoints require a user token with moderator scopes; UserTokenFunc supplies
// it. Read-only endpoints fall back to the app token.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
	UserTokenFunc  func(ctx context.Context) (string, error)
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) userToken(ctx context.Context) (string, error) {
	if hc.UserTokenFunc != nil {
		return hc.UserTokenFunc(ctx)
	}
	return hc.AppTokenSource.Get(ctx)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return "", err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/users", nil)
	q := req.URL.Query()
	q.Set("login", login)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// StreamInfo describes a live stream as reported by Helix.
type StreamInfo struct {
	Title       string
	GameName    string
	ViewerCount int
	StartedAt   string
}

// GetStream returns the live stream for a user, or nil when offline.
func (hc *HelixClient) GetStream(ctx context.Context, userID string) (*StreamInfo, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/streams", nil)
	q := req.URL.Query()
	q.Set("user_id", userID)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	var body struct {
		Data []struct {
			Title       string `json:"title"`
			GameName    string `json:"game_name"`
			ViewerCount int    `json:"viewer_count"`
			StartedAt   string `json:"started_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	d := body.Data[0]
	return &StreamInfo{Title: d.Title, GameName: d.GameName, ViewerCount: d.ViewerCount, StartedAt: d.StartedAt}, nil
}

// TimeoutUser issues a temporary ban via the Helix moderation API. Requires a
// user token for moderatorID with the moderator:manage:banned_users scope.
func (hc *HelixClient) TimeoutUser(ctx context.Context, broadcasterID, moderatorID, userID string, duration time.Duration, reason string) error {
	if broadcasterID == "" || moderatorID == "" || userID == "" {
		return fmt.Errorf("broadcasterID, moderatorID and userID required")
	}
	tok, err := hc.userToken(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"data": map[string]any{
			"user_id":  userID,
			"duration": int(duration.Seconds()),
			"reason":   reason,
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitch.tv/helix/moderation/bans", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("broadcaster_id", broadcasterID)
	q.Set("moderator_id", moderatorID)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitch timeout failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

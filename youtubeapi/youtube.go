// Package youtubeapi wraps Google OAuth2 client config and the YouTube Data API
// for live chat: resolving the active live chat of a video, polling messages,
// posting replies, and issuing temporary bans. Tokens are persisted via the
// provided TokenStore interface so they can be refreshed and reused by workers.
package youtubeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/acnlive/livebot/backend/config"
)

const provider = "youtube"

type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, raw string) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, raw string, err error)
}

type Service struct {
	cfg   *config.Config
	store TokenStore
	oauth *oauth2.Config
}

func New(cfg *config.Config, ts TokenStore) *Service {
	scopes := []string{"https://www.googleapis.com/auth/youtube.force-ssl"}
	if cfg.YTScopes != "" {
		// allow comma or space separated
		s := strings.ReplaceAll(cfg.YTScopes, ",", " ")
		fields := strings.Fields(s)
		if len(fields) > 0 {
			scopes = fields
		}
	}
	oauth := &oauth2.Config{
		ClientID:     cfg.YTClientID,
		ClientSecret: cfg.YTClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.YTRedirectURI,
		Scopes:       scopes,
	}
	return &Service{cfg: cfg, store: ts, oauth: oauth}
}

func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	rawBytes, _ := json.Marshal(tok)
	if err := s.store.UpsertOAuthToken(ctx, provider, tok.AccessToken, tok.RefreshToken, tok.Expiry, string(rawBytes)); err != nil {
		return nil, fmt.Errorf("persist youtube token: %w", err)
	}
	return tok, nil
}

// HasToken reports whether a usable token is stored, without refreshing it.
func (s *Service) HasToken(ctx context.Context) bool {
	access, _, _, _, err := s.store.GetOAuthToken(ctx, provider)
	return err == nil && access != ""
}

func (s *Service) refreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	access, refresh, expiry, raw, err := s.store.GetOAuthToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, errors.New("no youtube token stored")
	}
	var tok oauth2.Token
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &tok)
	}
	if tok.AccessToken == "" {
		tok.AccessToken = access
	}
	tok.RefreshToken = refresh
	tok.Expiry = expiry
	if time.Until(tok.Expiry) > 2*time.Minute {
		return &tok, nil
	}
	ts := s.oauth.TokenSource(ctx, &tok)
	newTok, err := ts.Token()
	if err != nil {
		return &tok, err
	}
	rawBytes, _ := json.Marshal(newTok)
	if err := s.store.UpsertOAuthToken(ctx, provider, newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, string(rawBytes)); err != nil {
		// The refreshed token is still usable this cycle; the next refresh
		// will retry persistence.
		slog.Warn("persist refreshed youtube token failed", slog.Any("err", err))
	}
	return newTok, nil
}

func (s *Service) Client(ctx context.Context) (*yt.Service, error) {
	tok, err := s.refreshIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	client := s.oauth.Client(ctx, tok)
	return yt.New(client)
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/live/|youtu\.be/|/embed/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`),
}

// ResolveVideoID extracts an 11-character video id from a watch/live/short URL,
// or returns the input unchanged when it is already a bare id.
func ResolveVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("cannot extract video id from %q", input)
}

// LiveChatID looks up the active live chat attached to videoID. Returns an
// error when the video is not currently live.
func LiveChatID(ctx context.Context, svc *yt.Service, videoID string) (string, error) {
	if svc == nil {
		return "", fmt.Errorf("nil youtube service")
	}
	resp, err := svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("video %s not found", videoID)
	}
	details := resp.Items[0].LiveStreamingDetails
	if details == nil || details.ActiveLiveChatId == "" {
		return "", fmt.Errorf("video %s has no active live chat (not live?)", videoID)
	}
	return details.ActiveLiveChatId, nil
}

// ChatPage is one page of live chat messages plus the polling hints returned
// by the API.
type ChatPage struct {
	Messages      []*yt.LiveChatMessage
	NextPageToken string
	PollAfter     time.Duration
}

// ListMessages fetches one page of live chat messages. pageToken is empty on
// the first call; pass the returned NextPageToken afterwards.
func ListMessages(ctx context.Context, svc *yt.Service, liveChatID, pageToken string) (*ChatPage, error) {
	if svc == nil {
		return nil, fmt.Errorf("nil youtube service")
	}
	call := svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("livechatmessages.list: %w", err)
	}
	return &ChatPage{
		Messages:      resp.Items,
		NextPageToken: resp.NextPageToken,
		PollAfter:     time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
	}, nil
}

// SendMessage posts a text message to the live chat.
func SendMessage(ctx context.Context, svc *yt.Service, liveChatID, text string) error {
	if svc == nil {
		return fmt.Errorf("nil youtube service")
	}
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: liveChatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	if _, err := svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("livechatmessages.insert: %w", err)
	}
	return nil
}

// TimeoutUser issues a temporary ban for the given channel in the live chat.
func TimeoutUser(ctx context.Context, svc *yt.Service, liveChatID, channelID string, duration time.Duration) error {
	if svc == nil {
		return fmt.Errorf("nil youtube service")
	}
	ban := &yt.LiveChatBan{
		Snippet: &yt.LiveChatBanSnippet{
			LiveChatId:         liveChatID,
			Type:               "temporary",
			BanDurationSeconds: uint64(duration.Seconds()),
			BannedUserDetails: &yt.ChannelProfileDetails{
				ChannelId: channelID,
			},
		},
	}
	if _, err := svc.LiveChatBans.Insert([]string{"snippet"}, ban).Context(ctx).Do(); err != nil {
		return fmt.Errorf("livechatbans.insert: %w", err)
	}
	return nil
}

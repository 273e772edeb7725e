package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	yt "google.golang.org/api/youtube/v3"

	"github.com/acnlive/livebot/backend/config"
	"github.com/acnlive/livebot/backend/moderation"
	"github.com/acnlive/livebot/backend/youtubeapi"
)

const (
	ytDefaultPoll  = 5 * time.Second
	ytErrorBackoff = 15 * time.Second
	ytSeenCapacity = 2000
)

// ytConn adapts a YouTube live chat to the Conn interface.
type ytConn struct {
	svc        *yt.Service
	liveChatID string
}

func (c *ytConn) Send(ctx context.Context, text string) error {
	return youtubeapi.SendMessage(ctx, c.svc, c.liveChatID, text)
}

func (c *ytConn) Timeout(ctx context.Context, author moderation.Author, duration time.Duration) error {
	return youtubeapi.TimeoutUser(ctx, c.svc, c.liveChatID, author.ID, duration)
}

// seenSet remembers recently processed message ids with a bounded FIFO so a
// long stream cannot grow memory without limit.
type seenSet struct {
	ids   map[string]struct{}
	order []string
	cap   int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{ids: make(map[string]struct{}), cap: capacity}
}

// Add records id and reports whether it was already present.
func (s *seenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return true
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	return false
}

// RunYouTube polls the live chat of the configured video until the stream ends
// or ctx is cancelled. The first page is consumed without processing so the
// bot does not replay backlog from before it joined.
func RunYouTube(ctx context.Context, cfg *config.Config, svc *youtubeapi.Service, proc *Processor) error {
	videoID, err := youtubeapi.ResolveVideoID(cfg.YTVideoID)
	if err != nil {
		return err
	}

	client, err := svc.Client(ctx)
	if err != nil {
		return err
	}
	liveChatID, err := youtubeapi.LiveChatID(ctx, client, videoID)
	if err != nil {
		return err
	}
	slog.Info("youtube chat runner started",
		slog.String("video_id", videoID), slog.String("live_chat_id", liveChatID))

	conn := &ytConn{svc: client, liveChatID: liveChatID}
	seen := newSeenSet(ytSeenCapacity)
	pageToken := ""
	firstPage := true

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Refresh the authorized client each page; the token may have rotated.
		client, err = svc.Client(ctx)
		if err != nil {
			slog.Warn("youtube client refresh failed", slog.Any("err", err))
			if !sleepCtx(ctx, ytErrorBackoff) {
				return ctx.Err()
			}
			continue
		}
		conn.svc = client

		page, err := youtubeapi.ListMessages(ctx, client, liveChatID, pageToken)
		if err != nil {
			if isChatEnded(err) {
				slog.Info("youtube live chat ended")
				return nil
			}
			slog.Warn("youtube chat poll failed", slog.Any("err", err))
			if !sleepCtx(ctx, ytErrorBackoff) {
				return ctx.Err()
			}
			continue
		}
		pageToken = page.NextPageToken

		for _, msg := range page.Messages {
			if msg.Id == "" || seen.Add(msg.Id) {
				continue
			}
			if firstPage {
				continue
			}
			author, text, ok := fromLiveChatMessage(msg, cfg.BotChannelID)
			if !ok {
				continue
			}
			proc.Process(ctx, author, text, conn)
		}
		firstPage = false

		wait := page.PollAfter
		if wait <= 0 {
			wait = ytDefaultPoll
		}
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
}

// fromLiveChatMessage converts an API message into the pipeline's author and
// text. Returns ok=false for non-text events and for the bot's own messages.
func fromLiveChatMessage(msg *yt.LiveChatMessage, botChannelID string) (moderation.Author, string, bool) {
	if msg.Snippet == nil || msg.AuthorDetails == nil {
		return moderation.Author{}, "", false
	}
	if msg.Snippet.DisplayMessage == "" {
		return moderation.Author{}, "", false
	}
	if botChannelID != "" && msg.AuthorDetails.ChannelId == botChannelID {
		return moderation.Author{}, "", false
	}
	author := moderation.Author{
		ID:          msg.AuthorDetails.ChannelId,
		Name:        msg.AuthorDetails.DisplayName,
		IsOwner:     msg.AuthorDetails.IsChatOwner,
		IsModerator: msg.AuthorDetails.IsChatModerator,
		IsSponsor:   msg.AuthorDetails.IsChatSponsor,
	}
	return author, msg.Snippet.DisplayMessage, true
}

func isChatEnded(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "livechatended") ||
		strings.Contains(s, "chat is no longer live") ||
		strings.Contains(s, "livechatnotfound")
}

// sleepCtx waits d or until ctx is done. Returns false when the context ended.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

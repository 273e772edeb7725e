package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/acnlive/livebot/backend/config"
	"github.com/acnlive/livebot/backend/moderation"
	"github.com/acnlive/livebot/backend/twitchapi"
)

// ircClient is the subset of the IRC client the runner drives. Narrowed to an
// interface so connection lifecycle can be tested without a live server.
type ircClient interface {
	Join(channels ...string)
	Say(channel, text string)
	OnPrivateMessage(callback func(message twitch.PrivateMessage))
	Connect() error
	Disconnect() error
}

// twitchConn adapts a Twitch IRC connection plus the Helix moderation API to
// the Conn interface.
type twitchConn struct {
	client        ircClient
	channel       string
	helix         *twitchapi.HelixClient
	broadcasterID string
	moderatorID   string
}

func (c *twitchConn) Send(_ context.Context, text string) error {
	c.client.Say(c.channel, text)
	return nil
}

func (c *twitchConn) Timeout(ctx context.Context, author moderation.Author, duration time.Duration) error {
	if c.helix == nil || c.broadcasterID == "" {
		slog.Warn("twitch timeout skipped, helix moderation not configured",
			slog.String("user", author.Name))
		return nil
	}
	return c.helix.TimeoutUser(ctx, c.broadcasterID, c.moderatorID, author.ID, duration, "spam")
}

// RunTwitch connects to Twitch IRC for the configured channel and feeds every
// message through the pipeline. Blocks until ctx is cancelled or the
// connection drops.
func RunTwitch(ctx context.Context, cfg *config.Config, proc *Processor) error {
	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)

	conn := &twitchConn{client: client, channel: cfg.TwitchChannel}
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
		helix := &twitchapi.HelixClient{AppTokenSource: ts, ClientID: cfg.TwitchClientID}
		if id, err := helix.GetUserID(ctx, cfg.TwitchChannel); err == nil {
			conn.helix = helix
			conn.broadcasterID = id
		} else {
			slog.Warn("twitch broadcaster lookup failed, timeouts disabled", slog.Any("err", err))
		}
		if id, err := helix.GetUserID(ctx, cfg.TwitchBotUsername); err == nil {
			conn.moderatorID = id
		}
	}

	return runTwitch(ctx, cfg, proc, client, conn)
}

// runTwitch drives the IRC connection lifecycle. The watcher goroutine
// disconnects on ctx cancellation and always terminates before this function
// returns, so an early Connect failure cannot leak it.
func runTwitch(ctx context.Context, cfg *config.Config, proc *Processor, client ircClient, conn *twitchConn) error {
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if strings.EqualFold(msg.User.Name, cfg.TwitchBotUsername) {
			return
		}
		author := fromPrivateMessage(msg)
		proc.Process(ctx, author, msg.Message, conn)
	})

	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			if err := client.Disconnect(); err != nil {
				slog.Warn("twitch disconnect", slog.Any("err", err))
			}
		case <-stop:
		}
	}()

	client.Join(cfg.TwitchChannel)
	slog.Info("twitch chat runner started", slog.String("channel", cfg.TwitchChannel))
	err := client.Connect()
	close(stop)
	<-watcherDone
	if err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func fromPrivateMessage(msg twitch.PrivateMessage) moderation.Author {
	_, broadcaster := msg.User.Badges["broadcaster"]
	_, mod := msg.User.Badges["moderator"]
	_, sub := msg.User.Badges["subscriber"]
	return moderation.Author{
		ID:          msg.User.ID,
		Name:        msg.User.DisplayName,
		IsOwner:     broadcaster,
		IsModerator: mod,
		IsSponsor:   sub,
	}
}

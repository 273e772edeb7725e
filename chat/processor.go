package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/acnlive/livebot/backend/commands"
	"github.com/acnlive/livebot/backend/moderation"
	"github.com/acnlive/livebot/backend/telemetry"
)

// Conn abstracts the platform connection for one live chat: sending messages
// and issuing timeouts. Implemented by the YouTube and Twitch runners.
type Conn interface {
	commands.Sender
	Timeout(ctx context.Context, author moderation.Author, duration time.Duration) error
}

// Processor is the shared per-message pipeline: moderation first, then
// command routing. One instance serves all runners.
type Processor struct {
	mod  *moderation.Engine
	cmds *commands.Handler
}

func NewProcessor(mod *moderation.Engine, cmds *commands.Handler) *Processor {
	return &Processor{mod: mod, cmds: cmds}
}

// Process applies moderation and command handling to one message. Each message
// gets its own correlation id so log lines across the pipeline can be tied
// together.
func (p *Processor) Process(ctx context.Context, author moderation.Author, text string, conn Conn) {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	telemetry.IncChatSeen()

	verdict := p.mod.Check(author, text)
	if !verdict.Allowed {
		if err := conn.Timeout(ctx, author, verdict.Timeout); err != nil {
			telemetry.LoggerWithCorr(ctx).Error("timeout failed",
				slog.String("user", author.Name), slog.Any("err", err))
		}
		if verdict.Notice != "" {
			if err := conn.Send(ctx, verdict.Notice); err != nil {
				telemetry.LoggerWithCorr(ctx).Error("send moderation notice failed", slog.Any("err", err))
			} else {
				telemetry.IncChatSent()
			}
		}
		return
	}

	p.cmds.Handle(ctx, author, text, conn)
}

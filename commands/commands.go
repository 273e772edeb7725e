// Package commands routes recognized chat commands (!ask, !say, !hello, ...)
// to their handlers. It enforces per-user cooldowns and permission tiers and
// talks to the platform only through the Sender interface, so the same router
// serves the YouTube and Twitch runners.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/acnlive/livebot/backend/ai"
	"github.com/acnlive/livebot/backend/config"
	"github.com/acnlive/livebot/backend/moderation"
	"github.com/acnlive/livebot/backend/telemetry"
)

// Sender delivers a message to the chat platform.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Handler routes commands. One instance per bot process, shared by all chat
// runners; the lock covers the cooldown map and the rng. Cooldown entries are
// never pruned; growth is bounded by distinct (participant, command) pairs
// over the process lifetime.
type Handler struct {
	cfg       *config.Config
	responder ai.Responder // nil when AI is disabled

	mu        sync.Mutex
	cooldowns map[string]time.Time
	now       func() time.Time
	rng       *rand.Rand
}

func NewHandler(cfg *config.Config, responder ai.Responder) *Handler {
	return &Handler{
		cfg:       cfg,
		responder: responder,
		cooldowns: map[string]time.Time{},
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handle dispatches message if it is a recognized command. Returns true when
// the message was consumed as a command.
func (h *Handler) Handle(ctx context.Context, author moderation.Author, message string, send Sender) bool {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(message)), " ", 2)
	command := parts[0]
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	switch command {
	case "!ask":
		h.cmdAsk(ctx, author, args, send)
	case "!say", "-say":
		h.cmdSay(ctx, author, args, send)
	case "!hello", "-hello":
		h.cmdHello(ctx, author, send)
	case "!joke":
		h.cmdJoke(ctx, author, send)
	case "!bye":
		h.cmdBye(ctx, author, send)
	case "!so":
		h.cmdShoutout(ctx, author, send)
	case "!time":
		h.cmdTime(ctx, author, send)
	case "!discord":
		h.cmdDiscord(ctx, author, send)
	case "!acn":
		h.cmdChannel(ctx, author, send)
	case "!help":
		h.cmdHelp(ctx, author, send)
	default:
		return false
	}
	return true
}

// hasPermission evaluates a tier ("all" | "sponsor" | "mod" | "off") against
// the author's role flags.
func hasPermission(author moderation.Author, tier string) bool {
	switch tier {
	case "off":
		return false
	case "all":
		return true
	case "mod":
		return author.IsModerator || author.IsOwner
	case "sponsor":
		return author.IsSponsor || author.IsModerator || author.IsOwner
	}
	return false
}

// onCooldown checks and arms the per-(participant, command) cooldown. A
// missing entry means not on cooldown. When the participant is still cooling
// down, a wait notice is sent and true is returned.
func (h *Handler) onCooldown(ctx context.Context, author moderation.Author, command string, send Sender) bool {
	if h.cfg.SayDelay == 0 {
		return false
	}
	key := author.ID + "_" + command

	h.mu.Lock()
	last, found := h.cooldowns[key]
	elapsed := h.now().Sub(last)
	if found && elapsed < h.cfg.SayDelay {
		h.mu.Unlock()
		remaining := int((h.cfg.SayDelay - elapsed).Seconds())
		h.send(ctx, send, fmt.Sprintf("%s Vui lòng đợi %d giây trước khi dùng lệnh này lại.", author.Name, remaining))
		return true
	}
	h.cooldowns[key] = h.now()
	h.mu.Unlock()
	return false
}

// pick returns a random element; the lock guards the rng shared across runners.
func (h *Handler) pick(list []string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return list[h.rng.Intn(len(list))]
}

func (h *Handler) cmdAsk(ctx context.Context, author moderation.Author, query string, send Sender) {
	if query == "" {
		h.send(ctx, send, fmt.Sprintf("%s Vui lòng nhập câu hỏi. Cách dùng: !ask <câu hỏi>", author.Name))
		return
	}
	if h.responder == nil {
		h.send(ctx, send, fmt.Sprintf("%s Tính năng AI chưa khả dụng.", author.Name))
		return
	}
	if h.onCooldown(ctx, author, "ai_ask", send) {
		return
	}

	slog.Info("ai query", slog.String("user", author.Name), slog.String("query", query))
	reply := h.responder.Answer(ctx, query, author.Name)
	if reply == "" {
		// Duplicate in-flight query was dropped.
		return
	}
	h.send(ctx, send, reply)
}

func (h *Handler) cmdSay(ctx context.Context, author moderation.Author, text string, send Sender) {
	if !hasPermission(author, h.cfg.PermSay) {
		h.send(ctx, send, fmt.Sprintf("%s Bạn không có quyền sử dụng lệnh này.", author.Name))
		return
	}
	if h.onCooldown(ctx, author, "say", send) {
		return
	}
	if text == "" {
		h.send(ctx, send, fmt.Sprintf("%s Vui lòng nhập nội dung. Cách dùng: !say <tin nhắn>", author.Name))
		return
	}
	h.send(ctx, send, fmt.Sprintf("🔊 %s nói: %s", author.Name, text))
}

var greetings = []string{
	"Chào mừng đến với stream! 👋",
	"Xin chào! Hy vọng bạn đang vui vẻ! 😊",
	"Chào bạn! Rất vui được gặp bạn! 🎉",
	"Chào mừng! Hôm nay của bạn thế nào? ☀️",
	"Xin chào! Cảm ơn bạn đã tham gia! 💙",
}

func (h *Handler) cmdHello(ctx context.Context, author moderation.Author, send Sender) {
	if !hasPermission(author, h.cfg.PermWelcome) {
		return
	}
	h.send(ctx, send, fmt.Sprintf("%s %s", author.Name, h.pick(greetings)))
}

var jokes = []string{
	"Tại sao lập trình viên thích đi ra ngoài vào ban đêm? Vì ban ngày có quá nhiều bug! 🐛",
	"Có 10 loại người trên thế giới: Người hiểu hệ nhị phân và người không hiểu! 😄",
	"Tại sao Java developer đeo kính? Vì họ không thấy C# được! 👓",
	"Làm sao để giết một lập trình viên? Thay đổi requirement liên tục! 😅",
	"Bug đâu phải là lỗi, đó là tính năng chưa được ghi chép! 📝",
}

func (h *Handler) cmdJoke(ctx context.Context, author moderation.Author, send Sender) {
	if !hasPermission(author, h.cfg.PermJokes) {
		h.send(ctx, send, fmt.Sprintf("%s Bạn không có quyền sử dụng lệnh này.", author.Name))
		return
	}
	h.send(ctx, send, fmt.Sprintf("%s %s", author.Name, h.pick(jokes)))
}

var farewells = []string{
	"Tạm biệt! Chúc bạn một ngày tốt lành! 👋",
	"Hẹn gặp lại! Giữ gìn sức khỏe nhé! 💙",
	"Bye bye! Cảm ơn bạn đã xem! 🌟",
	"Gặp lại sau nhé! Luôn tuyệt vời nha! ✨",
	"Tạm biệt! Quay lại sớm nhé! 🎊",
}

func (h *Handler) cmdBye(ctx context.Context, author moderation.Author, send Sender) {
	h.send(ctx, send, fmt.Sprintf("%s %s", author.Name, h.pick(farewells)))
}

func (h *Handler) cmdShoutout(ctx context.Context, author moderation.Author, send Sender) {
	if author.IsSponsor || author.IsOwner || author.IsModerator {
		h.send(ctx, send, fmt.Sprintf("🎉 Shoutout cho %s! Cảm ơn bạn đã ủng hộ! 💙", author.Name))
		return
	}
	h.send(ctx, send, fmt.Sprintf("%s Shoutout cho bạn! 👋", author.Name))
}

func (h *Handler) cmdTime(ctx context.Context, author moderation.Author, send Sender) {
	now := h.now()
	h.send(ctx, send, fmt.Sprintf("%s Bây giờ là: %s ngày %s", author.Name, now.Format("15:04:05"), now.Format("02/01/2006")))
}

func (h *Handler) cmdDiscord(ctx context.Context, author moderation.Author, send Sender) {
	if !hasPermission(author, h.cfg.PermDiscord) {
		return
	}
	if h.cfg.DiscordLink == "" {
		return
	}
	h.send(ctx, send, fmt.Sprintf("🎮 %s Discord server: %s - Vào chơi cùng ae nhé!", author.Name, h.cfg.DiscordLink))
}

func (h *Handler) cmdChannel(ctx context.Context, author moderation.Author, send Sender) {
	if !hasPermission(author, h.cfg.PermChannel) {
		return
	}
	h.send(ctx, send, fmt.Sprintf("📺 %s %s Đăng ký & bật chuông nhé! 🔔", author.Name, h.cfg.ChannelInfo))
}

func (h *Handler) cmdHelp(ctx context.Context, author moderation.Author, send Sender) {
	help := "Lệnh: !say <text>, !hello, !joke, !bye, !so, !ask <câu hỏi>, !time, !discord, !acn, !help"
	if h.responder != nil {
		help += " | 🤖 AI đang bật!"
	}
	h.send(ctx, send, fmt.Sprintf("%s %s", author.Name, help))
}

func (h *Handler) send(ctx context.Context, send Sender, text string) {
	if err := send.Send(ctx, text); err != nil {
		telemetry.LoggerWithCorr(ctx).Error("send chat message failed", slog.Any("err", err))
		return
	}
	telemetry.IncChatSent()
}

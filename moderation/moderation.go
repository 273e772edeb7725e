// Package moderation implements the spam checks run against every incoming
// chat message: emoji density, repeated tokens within a message, and repeated
// whole messages per participant. The engine only decides; issuing the actual
// platform timeout is the caller's job, keeping this package platform-agnostic.
package moderation

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/gomoji"

	"github.com/acnlive/livebot/backend/telemetry"
)

// Deny reasons.
const (
	ReasonEmojiSpam   = "emoji_spam"
	ReasonWordSpam    = "word_spam"
	ReasonMessageSpam = "message_spam"
)

// windowSize bounds the per-participant rolling message history.
const windowSize = 5

// repeatRun is how many identical trailing messages trigger a deny.
const repeatRun = 3

// Author describes the message sender as reported by the chat platform.
type Author struct {
	ID          string
	Name        string
	IsOwner     bool
	IsModerator bool
	IsSponsor   bool
}

// Verdict is the engine's decision for one message. When Allowed is false,
// Timeout carries the duration for the platform timeout call and Notice the
// chat message explaining it.
type Verdict struct {
	Allowed bool
	Reason  string
	Timeout time.Duration
	Notice  string
}

var allow = Verdict{Allowed: true}

// Engine holds the limits and the per-participant rolling windows. One engine
// instance is shared by all chat runners, hence the lock around the windows.
type Engine struct {
	emojiLimit    int
	wordLimit     int
	timeoutNormal time.Duration
	timeoutMod    time.Duration

	mu      sync.Mutex
	windows map[string][]string
}

// NewEngine builds an engine with the configured limits.
func NewEngine(emojiLimit, wordLimit int, timeoutNormal, timeoutMod time.Duration) *Engine {
	return &Engine{
		emojiLimit:    emojiLimit,
		wordLimit:     wordLimit,
		timeoutNormal: timeoutNormal,
		timeoutMod:    timeoutMod,
		windows:       map[string][]string{},
	}
}

// Check runs the spam checks in fixed order, short-circuiting on the first
// violation. The channel owner always passes.
func (e *Engine) Check(author Author, message string) Verdict {
	if author.IsOwner {
		return allow
	}

	if v, violated := e.checkEmoji(author, message); violated {
		return v
	}
	if v, violated := e.checkRepeatedWords(author, message); violated {
		return v
	}
	if v, violated := e.checkRepeatedMessages(author, message); violated {
		return v
	}
	return allow
}

// checkEmoji denies when the message carries more emoji glyphs than allowed.
func (e *Engine) checkEmoji(author Author, message string) (Verdict, bool) {
	count := countEmoji(message)
	if count > e.emojiLimit {
		return e.deny(author, ReasonEmojiSpam,
			fmt.Sprintf("Vui lòng không spam emoji (giới hạn: %d)", e.emojiLimit)), true
	}
	return allow, false
}

// countEmoji counts emoji occurrences. gomoji.FindAll reports which emojis
// appear; each distinct glyph is then counted longest first and consumed from
// the message, so a base emoji embedded in a longer variant (skin tones, ZWJ
// sequences) is not counted twice.
func countEmoji(message string) int {
	seen := map[string]struct{}{}
	glyphs := []string{}
	for _, em := range gomoji.FindAll(message) {
		if _, dup := seen[em.Character]; dup {
			continue
		}
		seen[em.Character] = struct{}{}
		glyphs = append(glyphs, em.Character)
	}
	sort.Slice(glyphs, func(i, j int) bool { return len(glyphs[i]) > len(glyphs[j]) })

	total := 0
	rest := message
	for _, g := range glyphs {
		if n := strings.Count(rest, g); n > 0 {
			total += n
			rest = strings.ReplaceAll(rest, g, "")
		}
	}
	return total
}

// checkRepeatedWords denies when any single token repeats more than the word
// limit within one message. Tokens of length <= 2 and emoji shortcodes
// (":"-prefixed) are ignored.
func (e *Engine) checkRepeatedWords(author Author, message string) (Verdict, bool) {
	counts := map[string]int{}
	for _, word := range strings.Fields(strings.ToLower(message)) {
		if len([]rune(word)) <= 2 || strings.HasPrefix(word, ":") {
			continue
		}
		counts[word]++
		if counts[word] > e.wordLimit {
			return e.deny(author, ReasonWordSpam, "Vui lòng không spam cùng một từ"), true
		}
	}
	return allow, false
}

// checkRepeatedMessages appends to the participant's rolling window and denies
// when the last three entries are identical. The window is cleared on a
// violation so the very next message cannot re-trigger it.
func (e *Engine) checkRepeatedMessages(author Author, message string) (Verdict, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	win := append(e.windows[author.ID], strings.ToLower(message))
	if len(win) > windowSize {
		win = win[len(win)-windowSize:]
	}
	e.windows[author.ID] = win

	if len(win) >= repeatRun {
		last := win[len(win)-1]
		if win[len(win)-2] == last && win[len(win)-3] == last {
			delete(e.windows, author.ID)
			return e.deny(author, ReasonMessageSpam, "Vui lòng không spam cùng một tin nhắn"), true
		}
	}
	return allow, false
}

// WindowLen reports the current rolling-window length for a participant.
func (e *Engine) WindowLen(participantID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.windows[participantID])
}

func (e *Engine) deny(author Author, reason, explanation string) Verdict {
	d := e.timeoutFor(author)

	tier := ""
	if author.IsModerator {
		tier = " (Moderator)"
	}
	notice := fmt.Sprintf("@%s%s %s. [Timeout: %s]", author.Name, tier, explanation, humanDuration(d))

	slog.Warn("moderation timeout",
		slog.String("user", author.Name),
		slog.String("user_id", author.ID),
		slog.String("reason", reason),
		slog.Duration("duration", d))
	telemetry.IncModerationTimeout(reason)

	return Verdict{Reason: reason, Timeout: d, Notice: notice}
}

// timeoutFor picks the moderator tier when the author is a moderator, else
// the normal tier.
func (e *Engine) timeoutFor(author Author) time.Duration {
	if author.IsModerator {
		return e.timeoutMod
	}
	return e.timeoutNormal
}

// humanDuration renders a timeout for the chat notice: "m phút s giây", or
// seconds only when under a minute.
func humanDuration(d time.Duration) string {
	total := int(d.Seconds())
	minutes := total / 60
	seconds := total % 60
	if minutes > 0 {
		return fmt.Sprintf("%d phút %d giây", minutes, seconds)
	}
	return fmt.Sprintf("%d giây", seconds)
}

package moderation

import (
	"strings"
	"testing"
	"time"
)

func newTestEngine() *Engine {
	return NewEngine(5, 3, 300*time.Second, 60*time.Second)
}

func TestOwnerBypass(t *testing.T) {
	e := newTestEngine()
	owner := Author{ID: "o1", Name: "acn", IsOwner: true}
	spam := strings.Repeat("😂", 20)
	if v := e.Check(owner, spam); !v.Allowed {
		t.Errorf("owner denied: %+v", v)
	}
}

func TestEmojiLimit(t *testing.T) {
	e := newTestEngine()
	author := Author{ID: "u1", Name: "viewer"}

	// Exactly at the limit is allowed.
	if v := e.Check(author, "chào 😀😀😀😀😀"); !v.Allowed {
		t.Errorf("5 emojis denied: %+v", v)
	}
	// One over the limit is denied.
	v := e.Check(author, "chào 😀😀😀😀😀😀")
	if v.Allowed {
		t.Fatal("6 emojis allowed")
	}
	if v.Reason != ReasonEmojiSpam {
		t.Errorf("reason = %q, want %q", v.Reason, ReasonEmojiSpam)
	}
	if v.Timeout != 300*time.Second {
		t.Errorf("timeout = %v, want 300s", v.Timeout)
	}
}

func TestEmojiMixedGlyphs(t *testing.T) {
	e := newTestEngine()
	author := Author{ID: "u1", Name: "viewer"}
	v := e.Check(author, "🔥🔥🔥😂😂😂")
	if v.Allowed {
		t.Error("6 mixed emojis allowed, want deny")
	}
}

func TestEmojiSkinToneVariantCountedOnce(t *testing.T) {
	// The base glyph is a substring of the skin-tone variant; a variant plus a
	// base must count as two emojis, not three.
	if got := countEmoji("👍🏽👍"); got != 2 {
		t.Errorf("countEmoji = %d, want 2", got)
	}
	if got := countEmoji("👍🏽👍🏽👍🏽"); got != 3 {
		t.Errorf("countEmoji(variants) = %d, want 3", got)
	}
}

func TestRepeatedWords(t *testing.T) {
	e := newTestEngine()
	author := Author{ID: "u2", Name: "viewer"}

	// Three repeats of a token is the limit; allowed.
	if v := e.Check(author, "gold gold gold"); !v.Allowed {
		t.Errorf("3 repeats denied: %+v", v)
	}
	// Four repeats exceeds it.
	v := e.Check(author, "xin gold gold gold gold")
	if v.Allowed {
		t.Fatal("4 repeats allowed")
	}
	if v.Reason != ReasonWordSpam {
		t.Errorf("reason = %q, want %q", v.Reason, ReasonWordSpam)
	}
}

func TestRepeatedWordsIgnoresShortAndShortcodes(t *testing.T) {
	e := newTestEngine()
	author := Author{ID: "u3", Name: "viewer"}

	// Short tokens and emoji shortcodes never count.
	if v := e.Check(author, "ha ha ha ha ha :fire: :fire: :fire: :fire:"); !v.Allowed {
		t.Errorf("short/shortcode tokens denied: %+v", v)
	}
}

func TestRepeatedMessages(t *testing.T) {
	e := newTestEngine()
	author := Author{ID: "u4", Name: "viewer"}

	if v := e.Check(author, "hello stream"); !v.Allowed {
		t.Fatalf("first message denied: %+v", v)
	}
	if v := e.Check(author, "HELLO stream"); !v.Allowed {
		t.Fatalf("second message denied: %+v", v)
	}
	// Third identical (case-insensitive) message fires.
	v := e.Check(author, "hello STREAM")
	if v.Allowed {
		t.Fatal("third identical message allowed")
	}
	if v.Reason != ReasonMessageSpam {
		t.Errorf("reason = %q, want %q", v.Reason, ReasonMessageSpam)
	}
	// Window cleared: the next identical message starts a fresh run.
	if e.WindowLen(author.ID) != 0 {
		t.Errorf("window len = %d after violation, want 0", e.WindowLen(author.ID))
	}
	if v := e.Check(author, "hello stream"); !v.Allowed {
		t.Errorf("message right after violation denied: %+v", v)
	}
}

func TestRepeatedMessagesWindowBounded(t *testing.T) {
	e := newTestEngine()
	author := Author{ID: "u5", Name: "viewer"}
	for i, msg := range []string{"a1 b1", "a2 b2", "a3 b3", "a4 b4", "a5 b5", "a6 b6", "a7 b7"} {
		if v := e.Check(author, msg); !v.Allowed {
			t.Fatalf("message %d denied: %+v", i, v)
		}
	}
	if e.WindowLen(author.ID) != 5 {
		t.Errorf("window len = %d, want capped at 5", e.WindowLen(author.ID))
	}
}

func TestModeratorTimeoutTier(t *testing.T) {
	e := newTestEngine()
	mod := Author{ID: "m1", Name: "helper", IsModerator: true}
	v := e.Check(mod, strings.Repeat("😀", 6))
	if v.Allowed {
		t.Fatal("moderator emoji spam allowed")
	}
	if v.Timeout != 60*time.Second {
		t.Errorf("moderator timeout = %v, want 60s", v.Timeout)
	}
	if !strings.Contains(v.Notice, "(Moderator)") {
		t.Errorf("notice missing moderator tier tag: %q", v.Notice)
	}
}

func TestNoticeDurationFormat(t *testing.T) {
	e := NewEngine(5, 3, 300*time.Second, 45*time.Second)

	v := e.Check(Author{ID: "n1", Name: "viewer"}, strings.Repeat("😀", 6))
	if !strings.Contains(v.Notice, "5 phút 0 giây") {
		t.Errorf("notice = %q, want minutes+seconds rendering", v.Notice)
	}

	v = e.Check(Author{ID: "n2", Name: "helper", IsModerator: true}, strings.Repeat("😀", 6))
	if !strings.Contains(v.Notice, "45 giây") || strings.Contains(v.Notice, "phút") {
		t.Errorf("notice = %q, want seconds-only rendering", v.Notice)
	}
}

func TestCheckOrderEmojiBeforeWords(t *testing.T) {
	e := newTestEngine()
	// Message violates both emoji and word limits; emoji check runs first.
	msg := strings.Repeat("😀", 6) + " spam spam spam spam"
	v := e.Check(Author{ID: "u6", Name: "viewer"}, msg)
	if v.Allowed {
		t.Fatal("expected deny")
	}
	if v.Reason != ReasonEmojiSpam {
		t.Errorf("reason = %q, want emoji check to fire first", v.Reason)
	}
}

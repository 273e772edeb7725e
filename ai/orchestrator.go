package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/acnlive/livebot/backend/telemetry"
)

// Display constraints for chat replies. The platform caps visible messages at
// roughly 200 characters; longer replies are cut to 197 plus an ellipsis.
const (
	maxReplyRunes       = 200
	truncatedReplyRunes = 197
	contextMaxRunes     = 300
	maxAttemptsCap      = 3
)

// defaultFallbacks are the apology messages returned when every attempt is
// exhausted. The user never sees a raw provider error.
var defaultFallbacks = []string{
	"Úi zời oi bot đang bị limit rồi, anh em chờ tí nha! 🙏",
	"Ôi không, bot bị quá tải rồi! Anh em đợi tí nha! ⏳",
	"Huhu, bot mệt quá không trả lời được! Anh em thông cảm nha! 😢",
}

// ollamaFallback is the single fixed apology for the local-backend strategy.
const ollamaFallback = "Lỗi rồi, không kết nối được với AI local (Ollama). Bạn chắc là đã bật Ollama lên chưa?"

// ContextSource supplies grounding text for a query; satisfied by
// knowledge.Retriever.
type ContextSource interface {
	Context(query string, maxLen, minScore int) (string, bool)
}

// Generator is the backend invocation boundary.
type Generator interface {
	Generate(ctx context.Context, credential, prompt string) Outcome
}

// Responder is the single capability callers depend on, regardless of which
// backend strategy is active.
type Responder interface {
	Answer(ctx context.Context, query, userName string) string
}

// Orchestrator answers audience queries: it grounds the prompt with retrieved
// knowledge, rotates credentials across attempts, and post-processes replies
// for chat display. Answer never fails outward. Safe for concurrent use by
// multiple runners.
type Orchestrator struct {
	retriever ContextSource
	generator Generator
	pool      *CredentialPool // nil for the single-backend strategy
	persona   string
	fallbacks []string
	minScore  int

	mu       sync.Mutex
	inflight map[string]struct{}
	rng      *rand.Rand
}

// NewGeminiOrchestrator wires the multi-credential rotating strategy.
func NewGeminiOrchestrator(retriever ContextSource, generator Generator, pool *CredentialPool, persona string) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		pool:      pool,
		persona:   persona,
		fallbacks: defaultFallbacks,
		minScore:  10,
		inflight:  map[string]struct{}{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewOllamaOrchestrator wires the single local-backend strategy: one attempt,
// no pool, one fixed apology. Prompting and post-processing are identical to
// the rotating strategy.
func NewOllamaOrchestrator(retriever ContextSource, generator Generator, persona string) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		persona:   persona,
		fallbacks: []string{ollamaFallback},
		minScore:  10,
		inflight:  map[string]struct{}{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Answer produces displayable text for the query, always. Identical queries
// from the same participant that are still in flight are dropped (empty
// string) so a slow backend cannot produce duplicate replies.
func (o *Orchestrator) Answer(ctx context.Context, query, userName string) string {
	key := userName + "\x00" + query
	o.mu.Lock()
	if _, busy := o.inflight[key]; busy {
		o.mu.Unlock()
		slog.Debug("duplicate in-flight query dropped", slog.String("user", userName))
		return ""
	}
	o.inflight[key] = struct{}{}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()
	}()

	ctx, span := telemetry.StartSpan(ctx, "ai", "ai.answer",
		attribute.Int("query_len", len(query)))
	defer span.End()

	start := time.Now()
	telemetry.IncAIRequests()

	grounding, grounded := o.retriever.Context(query, contextMaxRunes, o.minScore)
	if grounded {
		telemetry.IncRetrievalHit()
		slog.Info("retrieval context found", slog.String("query", truncateLog(query)))
	} else {
		telemetry.IncRetrievalMiss()
		slog.Debug("no retrieval context", slog.String("query", truncateLog(query)))
	}

	prompt := o.buildPrompt(query, userName, grounding)

	attempts := 1
	if o.pool != nil {
		attempts = o.pool.Size()
		if attempts > maxAttemptsCap {
			attempts = maxAttemptsCap
		}
	}

	for attempt := 0; attempt < attempts; attempt++ {
		cred := ""
		if o.pool != nil {
			selected, okSel := o.pool.Select()
			if !okSel {
				slog.Error("credential pool empty, aborting")
				break
			}
			cred = selected
		}

		outcome := o.generator.Generate(ctx, cred, prompt)
		switch outcome.Kind {
		case OutcomeOK:
			if o.pool != nil {
				o.pool.ReportSuccess(cred)
			}
			reply := postprocess(outcome.Text, userName)
			telemetry.ObserveAnswerDuration(time.Since(start))
			slog.Info("ai reply", slog.String("query", truncateLog(query)), slog.String("reply", truncateLog(reply)))
			telemetry.SetSpanSuccess(span)
			return reply

		case OutcomeEmpty:
			// Degenerate response: retry without charging the credential.
			slog.Warn("empty provider response, retrying", slog.Int("attempt", attempt+1))
			continue

		case OutcomeRateLimited:
			if o.pool != nil {
				o.pool.ReportFailure(cred)
			}
			telemetry.IncAIFailures("rate_limited")
			slog.Warn("provider rate limited, rotating credential", slog.Int("attempt", attempt+1), slog.Any("err", outcome.Err))
			continue

		default:
			if o.pool != nil {
				o.pool.ReportFailure(cred)
			}
			telemetry.IncAIFailures("error")
			slog.Warn("provider error", slog.Int("attempt", attempt+1), slog.Any("err", outcome.Err))
			continue
		}
	}

	telemetry.IncAIFallbacks()
	telemetry.RecordError(span, fmt.Errorf("all attempts exhausted"))
	o.mu.Lock()
	fallback := o.fallbacks[o.rng.Intn(len(o.fallbacks))]
	o.mu.Unlock()
	return fallback
}

// buildPrompt assembles persona + optional grounding + query. With grounding
// present the model is instructed it must answer only from the supplied
// context and must not fabricate.
func (o *Orchestrator) buildPrompt(query, userName, grounding string) string {
	if grounding != "" {
		return fmt.Sprintf(`%s

⚠️ CONTEXT - THÔNG TIN CHÍNH THỨC (BẮT BUỘC PHẢI SỬ DỤNG):
%s

User %s: %s

Bot (BẮT BUỘC trả lời dựa 100%% vào CONTEXT trên, không được tự sáng tác):`, o.persona, grounding, userName, query)
	}
	return fmt.Sprintf("%s\n\nUser %s: %s\n\nBot:", o.persona, userName, query)
}

// postprocess trims, prefixes the participant mention, and enforces the chat
// display cap.
func postprocess(text, userName string) string {
	reply := strings.TrimSpace(text)
	if userName != "" {
		reply = "@" + userName + " " + reply
	}
	if runes := []rune(reply); len(runes) > maxReplyRunes {
		reply = string(runes[:truncatedReplyRunes]) + "..."
	}
	return reply
}

func truncateLog(s string) string {
	if runes := []rune(s); len(runes) > 60 {
		return string(runes[:60]) + "..."
	}
	return s
}

// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup,
// and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	aiRequests      prometheus.Counter
	aiFallbacks     prometheus.Counter
	aiFailures      *prometheus.CounterVec // by kind: rate_limited | error
	retrievalHits   prometheus.Counter
	retrievalMisses prometheus.Counter
	chatSeen        prometheus.Counter
	chatSent        prometheus.Counter
	modTimeouts     *prometheus.CounterVec // by reason: emoji_spam | word_spam | message_spam

	// Histograms (seconds)
	answerDuration prometheus.Observer

	// Gauges
	poolUsableGauge    prometheus.Gauge
	knowledgeSizeGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		aiRequests = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ai_requests_total", Help: "AI answer requests received"})
		aiFallbacks = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ai_fallbacks_total", Help: "AI answers served from the fallback set"})
		aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_ai_failures_total", Help: "Provider invocation failures"}, []string{"kind"})
		retrievalHits = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_retrieval_hits_total", Help: "Queries with grounding context found"})
		retrievalMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_retrieval_misses_total", Help: "Queries without grounding context"})
		chatSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_messages_seen_total", Help: "Chat messages processed"})
		chatSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_messages_sent_total", Help: "Chat messages sent by the bot"})
		modTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_moderation_timeouts_total", Help: "Timeouts issued by the moderation engine"}, []string{"reason"})
		answerDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_ai_answer_duration_seconds", Help: "AI answer pipeline duration seconds", Buckets: prometheus.DefBuckets})
		poolUsableGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_credential_pool_usable", Help: "Credentials currently under the error threshold"})
		knowledgeSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_knowledge_entries", Help: "Loaded knowledge base entries"})
	})
}

// The helpers below are nil-safe so packages can record metrics without caring
// whether Init ran (tests typically skip it).

func IncAIRequests() {
	if aiRequests != nil {
		aiRequests.Inc()
	}
}

func IncAIFallbacks() {
	if aiFallbacks != nil {
		aiFallbacks.Inc()
	}
}

func IncAIFailures(kind string) {
	if aiFailures != nil {
		aiFailures.WithLabelValues(kind).Inc()
	}
}

func IncRetrievalHit() {
	if retrievalHits != nil {
		retrievalHits.Inc()
	}
}

func IncRetrievalMiss() {
	if retrievalMisses != nil {
		retrievalMisses.Inc()
	}
}

func IncChatSeen() {
	if chatSeen != nil {
		chatSeen.Inc()
	}
}

func IncChatSent() {
	if chatSent != nil {
		chatSent.Inc()
	}
}

// IncModerationTimeout records a timeout by deny reason.
func IncModerationTimeout(reason string) {
	if modTimeouts != nil {
		modTimeouts.WithLabelValues(reason).Inc()
	}
}

// ObserveAnswerDuration records one answer pipeline duration.
func ObserveAnswerDuration(d time.Duration) {
	if answerDuration != nil {
		answerDuration.Observe(d.Seconds())
	}
}

// SetPoolUsable records how many credentials are currently selectable.
func SetPoolUsable(n int) {
	if poolUsableGauge != nil {
		poolUsableGauge.Set(float64(n))
	}
}

// SetKnowledgeSize records the loaded knowledge entry count.
func SetKnowledgeSize(n int) {
	if knowledgeSizeGauge != nil {
		knowledgeSizeGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, okCorr := ctx.Value(corrKey).(string); okCorr {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

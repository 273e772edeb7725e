package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator invokes the Gemini API with whichever credential the
// orchestrator selected. One client is built per configured key at startup;
// keys whose client construction fails are reported so the caller can refuse
// to initialize the strategy when none survive.
type GeminiGenerator struct {
	model   string
	clients map[string]*genai.Client
}

// NewGeminiGenerator builds per-key clients. It returns an error only when no
// key produces a working client (configuration error class: the strategy must
// not initialize).
func NewGeminiGenerator(ctx context.Context, keys []string, model string) (*GeminiGenerator, error) {
	g := &GeminiGenerator{model: model, clients: map[string]*genai.Client{}}
	for i, key := range keys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			slog.Warn("gemini client init failed", slog.Int("key_index", i+1), slog.Any("err", err))
			continue
		}
		g.clients[key] = client
	}
	if len(g.clients) == 0 {
		return nil, fmt.Errorf("no working gemini credential out of %d configured", len(keys))
	}
	slog.Info("gemini generator ready", slog.Int("keys", len(g.clients)), slog.String("model", model))
	return g, nil
}

// Generate sends the prompt using the client bound to cred and classifies the
// result into an explicit Outcome.
func (g *GeminiGenerator) Generate(ctx context.Context, cred, prompt string) Outcome {
	client, okCred := g.clients[cred]
	if !okCred {
		return failed(fmt.Errorf("no client for selected credential"))
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		if isRateLimit(err) {
			return rateLimited(err)
		}
		return failed(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return empty()
	}
	return ok(text)
}

// isRateLimit spots quota/rate-limit exhaustion in provider errors. Other
// errors take the same retry path; the distinction only changes logging and
// metrics.
func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource") ||
		strings.Contains(msg, "rate limit")
}

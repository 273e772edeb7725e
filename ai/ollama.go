package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaGenerator targets a single local Ollama instance. There is no
// credential rotation; the credential argument is ignored.
type OllamaGenerator struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaGenerator(host, model string) *OllamaGenerator {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaGenerator{
		host:  strings.TrimRight(host, "/"),
		model: model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// Generate sends the prompt to the local model via /api/chat. All transport
// and status errors classify as plain failures: a local instance has no
// meaningful rate limit to rotate away from.
func (g *OllamaGenerator) Generate(ctx context.Context, _ string, prompt string) Outcome {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    g.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return failed(fmt.Errorf("marshal ollama request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Errorf("build ollama request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return failed(fmt.Errorf("ollama request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return failed(fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(b)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return failed(fmt.Errorf("decode ollama response: %w", err))
	}

	text := strings.TrimSpace(out.Message.Content)
	if text == "" {
		return empty()
	}
	return ok(text)
}

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaGenerateOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream must be disabled")
		}
		if req.Model != "llama3" {
			t.Errorf("model = %q, want llama3", req.Model)
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "  xin chào  "}})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3")
	out := g.Generate(context.Background(), "", "prompt")
	if out.Kind != OutcomeOK {
		t.Fatalf("kind = %v, want ok (err=%v)", out.Kind, out.Err)
	}
	if out.Text != "xin chào" {
		t.Errorf("text = %q, want trimmed reply", out.Text)
	}
}

func TestOllamaGenerateEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3")
	if out := g.Generate(context.Background(), "", "prompt"); out.Kind != OutcomeEmpty {
		t.Errorf("kind = %v, want empty", out.Kind)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3")
	out := g.Generate(context.Background(), "", "prompt")
	if out.Kind != OutcomeFailed {
		t.Errorf("kind = %v, want failed", out.Kind)
	}
	if out.Err == nil {
		t.Error("expected error detail")
	}
}

func TestOllamaGenerateUnreachable(t *testing.T) {
	g := NewOllamaGenerator("http://127.0.0.1:1", "llama3")
	if out := g.Generate(context.Background(), "", "prompt"); out.Kind != OutcomeFailed {
		t.Errorf("kind = %v, want failed", out.Kind)
	}
}

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"googleapi: Error 429: RESOURCE_EXHAUSTED", true},
		{"quota exceeded for quota metric", true},
		{"rate limit hit", true},
		{"connection reset by peer", false},
		{"invalid api key", false},
	}
	for _, tc := range cases {
		if got := isRateLimit(errString(tc.msg)); got != tc.want {
			t.Errorf("isRateLimit(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

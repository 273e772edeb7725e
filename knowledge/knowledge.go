// Package knowledge holds the curated knowledge base used to ground AI answers,
// plus a purely lexical retriever over it. The store is loaded once from a JSON
// document and safely shared read-only; Reload replaces the whole map.
package knowledge

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Entry is one curated topic: a set of trigger keywords and the canonical
// content sent to the model as grounding context.
type Entry struct {
	Keywords []string `json:"keywords"`
	Content  string   `json:"content"`
}

// Store is an immutable-after-load mapping of topic key to Entry.
// A missing or malformed knowledge file yields an empty store so the bot
// degrades to ungrounded answers instead of failing.
type Store struct {
	path string

	mu      sync.RWMutex
	entries map[string]Entry
	keys    []string // stable iteration order for deterministic ranking ties
}

// NewStore loads the knowledge document at path. Load errors are logged and
// result in an empty store; they are never fatal.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.entries, s.keys = load(path)
	if len(s.entries) == 0 {
		slog.Warn("knowledge base empty or not found", slog.String("path", path))
	} else {
		slog.Info("knowledge base loaded", slog.String("path", path), slog.Int("entries", len(s.entries)))
	}
	return s
}

func load(path string) (map[string]Entry, []string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("knowledge file not readable", slog.String("path", path), slog.Any("err", err))
		return map[string]Entry{}, nil
	}
	var entries map[string]Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Error("knowledge file malformed", slog.String("path", path), slog.Any("err", err))
		return map[string]Entry{}, nil
	}
	// Go map iteration is randomized; fix a key order so ranking ties are stable.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return entries, keys
}

// Reload re-reads the knowledge document, fully replacing the current map.
func (s *Store) Reload() {
	entries, keys := load(s.path)
	s.mu.Lock()
	s.entries, s.keys = entries, keys
	s.mu.Unlock()
	slog.Info("knowledge base reloaded", slog.String("path", s.path), slog.Int("entries", len(entries)))
}

// Len reports the number of loaded entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// snapshot returns the current entries and key order for one ranking pass.
func (s *Store) snapshot() (map[string]Entry, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries, s.keys
}

package knowledge

import (
	"os"
	"path/filepath"
	"testing"
)

func writeKnowledge(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write knowledge file: %v", err)
	}
	return path
}

func TestNewStoreMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	if s.Len() != 0 {
		t.Errorf("expected empty store for missing file, got %d entries", s.Len())
	}
}

func TestNewStoreMalformed(t *testing.T) {
	path := writeKnowledge(t, `{"broken": `)
	s := NewStore(path)
	if s.Len() != 0 {
		t.Errorf("expected empty store for malformed file, got %d entries", s.Len())
	}
}

func TestNewStoreLoads(t *testing.T) {
	path := writeKnowledge(t, `{
		"acn_identity": {"keywords": ["ACN là ai", "acn"], "content": "ACN là một streamer Việt Nam."},
		"schedule": {"keywords": ["lịch stream"], "content": "Stream tối thứ 7 hàng tuần."}
	}`)
	s := NewStore(path)
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
}

func TestReloadReplaces(t *testing.T) {
	path := writeKnowledge(t, `{"a": {"keywords": ["alpha"], "content": "A"}}`)
	s := NewStore(path)
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}

	// Full replace, not merge: old key must disappear.
	if err := os.WriteFile(path, []byte(`{"b": {"keywords": ["beta"], "content": "B"}}`), 0o600); err != nil {
		t.Fatalf("rewrite knowledge file: %v", err)
	}
	s.Reload()
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", s.Len())
	}
	entries, _ := s.snapshot()
	if _, ok := entries["a"]; ok {
		t.Errorf("old entry survived reload")
	}
	if _, ok := entries["b"]; !ok {
		t.Errorf("new entry missing after reload")
	}
}

func TestReloadToMissingFileEmpties(t *testing.T) {
	path := writeKnowledge(t, `{"a": {"keywords": ["alpha"], "content": "A"}}`)
	s := NewStore(path)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove knowledge file: %v", err)
	}
	s.Reload()
	if s.Len() != 0 {
		t.Errorf("expected empty store after reload of missing file, got %d", s.Len())
	}
}

package knowledge

import (
	"strings"
	"testing"
)

func storeFrom(t *testing.T, doc string) *Store {
	t.Helper()
	return NewStore(writeKnowledge(t, doc))
}

func TestSearchSubstringMatchRanksFirst(t *testing.T) {
	s := storeFrom(t, `{
		"acn_identity": {"keywords": ["ACN là ai", "acn"], "content": "ACN là một streamer Việt Nam."},
		"schedule": {"keywords": ["lịch stream"], "content": "Stream tối thứ 7."}
	}`)
	r := NewRetriever(s)

	results := r.Search("ACN là ai?", 3)
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	top := results[0]
	if top.Key != "acn_identity" {
		t.Errorf("top result = %q, want acn_identity", top.Key)
	}
	if top.Score < 10 {
		t.Errorf("top score = %d, want >= 10", top.Score)
	}
	found := false
	for _, kw := range top.MatchedKeywords {
		if kw == "ACN là ai" {
			found = true
		}
	}
	if !found {
		t.Errorf("matched keywords %v missing %q", top.MatchedKeywords, "ACN là ai")
	}
}

func TestSearchWordOverlapScoring(t *testing.T) {
	s := storeFrom(t, `{
		"game": {"keywords": ["chơi game gì"], "content": "ACN chơi Valorant."}
	}`)
	r := NewRetriever(s)

	// "game" and "gì" overlap ("chơi" too); each common word is +5.
	results := r.Search("bạn hay chơi game không", 3)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Score != 2*scoreWordMatch {
		t.Errorf("score = %d, want %d", results[0].Score, 2*scoreWordMatch)
	}
}

func TestSearchStopwordsRemoved(t *testing.T) {
	s := storeFrom(t, `{
		"x": {"keywords": ["của được trong"], "content": "stopword bait"}
	}`)
	r := NewRetriever(s)

	// Every query word is a stopword, so word overlap cannot fire.
	if results := r.Search("của được trong nè", 3); len(results) != 0 {
		t.Errorf("expected no results for stopword-only overlap, got %v", results)
	}
}

func TestSearchQuestionWordsKept(t *testing.T) {
	s := storeFrom(t, `{
		"who": {"keywords": ["ai vậy trời"], "content": "question words stay discriminative"}
	}`)
	r := NewRetriever(s)

	results := r.Search("ai đây", 3)
	if len(results) != 1 {
		t.Fatalf("expected question word 'ai' to match, got %d results", len(results))
	}
	if results[0].Score != scoreWordMatch {
		t.Errorf("score = %d, want %d", results[0].Score, scoreWordMatch)
	}
}

func TestSearchFuzzyPrefixOncePerKeyword(t *testing.T) {
	s := storeFrom(t, `{
		"stream": {"keywords": ["streaming setup"], "content": "setup info"}
	}`)
	r := NewRetriever(s)

	// "streamer" shares the "str" prefix with "streaming": one +2, applied once
	// even though "setup"-like pairs could also fire.
	results := r.Search("streamer nào", 3)
	if len(results) != 1 {
		t.Fatalf("expected 1 fuzzy result, got %d", len(results))
	}
	if results[0].Score != scoreFuzzy {
		t.Errorf("score = %d, want %d", results[0].Score, scoreFuzzy)
	}
}

func TestSearchZeroScoreExcluded(t *testing.T) {
	s := storeFrom(t, `{
		"x": {"keywords": ["hoàn toàn khác biệt"], "content": "irrelevant"}
	}`)
	r := NewRetriever(s)
	if results := r.Search("zzz qqq", 3); len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestSearchTopKAndOrdering(t *testing.T) {
	s := storeFrom(t, `{
		"strong": {"keywords": ["trùng khớp chính xác", "chính xác"], "content": "S"},
		"weak": {"keywords": ["khớp"], "content": "W"},
		"medium": {"keywords": ["trùng khớp"], "content": "M"}
	}`)
	r := NewRetriever(s)

	results := r.Search("trùng khớp chính xác", 2)
	if len(results) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(results))
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not sorted by score: %d then %d", results[0].Score, results[1].Score)
	}
	if results[0].Key != "strong" {
		t.Errorf("top result = %q, want strong", results[0].Key)
	}
}

func TestContextBelowMinScoreIsNone(t *testing.T) {
	s := storeFrom(t, `{
		"stream": {"keywords": ["streaming setup"], "content": "setup info"}
	}`)
	r := NewRetriever(s)

	// Single fuzzy hit scores 2, below the default threshold of 10.
	if ctx, ok := r.Context("streamer nào", 300, DefaultMinScore); ok {
		t.Errorf("expected no context, got %q", ctx)
	}
}

func TestContextTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	s := storeFrom(t, `{
		"acn": {"keywords": ["acn"], "content": "`+long+`"}
	}`)
	r := NewRetriever(s)

	ctx, ok := r.Context("acn", 300, DefaultMinScore)
	if !ok {
		t.Fatal("expected context")
	}
	if n := len([]rune(ctx)); n > 303 {
		t.Errorf("context length = %d, want <= maxLen+3", n)
	}
	if !strings.HasSuffix(ctx, "...") {
		t.Errorf("truncated context missing ellipsis marker: %q", ctx[len(ctx)-10:])
	}
}

func TestContextJoinsInScoreOrder(t *testing.T) {
	s := storeFrom(t, `{
		"first": {"keywords": ["acn là ai"], "content": "FIRST"},
		"second": {"keywords": ["acn"], "content": "SECOND"}
	}`)
	r := NewRetriever(s)

	ctx, ok := r.Context("acn là ai", 300, DefaultMinScore)
	if !ok {
		t.Fatal("expected context")
	}
	if ctx != "FIRST SECOND" {
		t.Errorf("context = %q, want contents joined by one space in score order", ctx)
	}
}

func TestContextEmptyStore(t *testing.T) {
	s := NewStore("does-not-exist.json")
	r := NewRetriever(s)
	if _, ok := r.Context("anything", 300, DefaultMinScore); ok {
		t.Error("expected no context from empty store")
	}
}

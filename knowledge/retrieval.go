package knowledge

import (
	"log/slog"
	"sort"
	"strings"
)

// Result is one ranked knowledge hit, produced per query and discarded after use.
type Result struct {
	Key             string
	Score           int
	MatchedKeywords []string
	Content         string
}

// Vietnamese stopwords stripped from queries before word-overlap scoring.
// Question words like "ai" and "gì" are deliberately kept: in this domain they
// discriminate ("ACN là ai?") rather than add noise.
var stopwords = map[string]struct{}{
	"của": {}, "và": {}, "thì": {}, "với": {}, "cho": {}, "từ": {}, "này": {}, "đó": {},
	"như": {}, "được": {}, "các": {}, "để": {}, "trong": {}, "ở": {}, "về": {},
	"hay": {}, "hoặc": {}, "nhưng": {}, "mà": {}, "thế": {}, "nào": {}, "đã": {}, "sẽ": {}, "bị": {},
}

// Scoring weights. A substring hit alone clears the default Context minScore;
// a single fuzzy prefix hit never does.
const (
	scoreSubstring = 10
	scoreWordMatch = 5
	scoreFuzzy     = 2

	// DefaultMinScore is the Context threshold: at least one substring hit
	// or two overlapping words.
	DefaultMinScore = 10
)

// Retriever ranks Store entries against a query using purely lexical signals.
// No embeddings: deterministic, cheap, and precision-biased, which suits a
// small hand-curated knowledge set where false grounding is worse than none.
type Retriever struct {
	store *Store
}

func NewRetriever(store *Store) *Retriever {
	return &Retriever{store: store}
}

// Search scores every entry against query and returns the topK hits,
// highest score first. Entries scoring zero are excluded. Ties keep the
// store's stable key order.
func (r *Retriever) Search(query string, topK int) []Result {
	entries, keys := r.store.snapshot()
	if len(entries) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	queryWords := map[string]struct{}{}
	for _, w := range strings.Fields(queryLower) {
		if _, stop := stopwords[w]; !stop {
			queryWords[w] = struct{}{}
		}
	}

	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		entry := entries[key]
		score, matched := scoreEntry(entry, queryLower, queryWords)
		if score > 0 {
			results = append(results, Result{Key: key, Score: score, MatchedKeywords: matched, Content: entry.Content})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for _, res := range results {
		slog.Debug("retrieval match", slog.String("key", res.Key), slog.Int("score", res.Score))
	}
	return results
}

// scoreEntry evaluates each keyword in priority order, short-circuiting to the
// next keyword on the first signal that hits: substring (+10), word overlap
// (+5 per common word), fuzzy 3-char prefix (+2, once per keyword).
func scoreEntry(entry Entry, queryLower string, queryWords map[string]struct{}) (int, []string) {
	score := 0
	var matched []string

	for _, keyword := range entry.Keywords {
		keywordLower := strings.ToLower(keyword)

		if strings.Contains(queryLower, keywordLower) || strings.Contains(keywordLower, queryLower) {
			score += scoreSubstring
			matched = append(matched, keyword)
			continue
		}

		keywordWords := strings.Fields(keywordLower)
		common := 0
		for _, kw := range keywordWords {
			if _, ok := queryWords[kw]; ok {
				common++
			}
		}
		if common > 0 {
			score += scoreWordMatch * common
			matched = append(matched, keyword)
			continue
		}

		fuzzy := false
		for qw := range queryWords {
			if len([]rune(qw)) <= 3 {
				continue
			}
			for _, kw := range keywordWords {
				if len([]rune(kw)) <= 3 {
					continue
				}
				qp := string([]rune(qw)[:3])
				kp := string([]rune(kw)[:3])
				if strings.Contains(kw, qp) || strings.Contains(qw, kp) {
					fuzzy = true
					break
				}
			}
			if fuzzy {
				break
			}
		}
		if fuzzy {
			score += scoreFuzzy
			matched = append(matched, keyword)
		}
	}

	return score, matched
}

// Context runs Search with topK=2, drops hits below minScore, joins the
// surviving contents with a single space in score order, and truncates to
// maxLen runes plus an ellipsis marker. The second return is false when no
// grounding survives the filter; callers must then answer from general
// knowledge.
func (r *Retriever) Context(query string, maxLen, minScore int) (string, bool) {
	results := r.Search(query, 2)
	if len(results) == 0 {
		slog.Debug("no retrieval context", slog.String("query", query))
		return "", false
	}

	parts := make([]string, 0, len(results))
	for _, res := range results {
		if res.Score >= minScore {
			parts = append(parts, res.Content)
		}
	}
	if len(parts) == 0 {
		slog.Debug("retrieval context below threshold", slog.String("query", query), slog.Int("min_score", minScore))
		return "", false
	}

	context := strings.Join(parts, " ")
	if runes := []rune(context); len(runes) > maxLen {
		context = string(runes[:maxLen]) + "..."
	}
	return context, true
}

package ai

import (
	"log/slog"
	"sync"
	"time"
)

// errorThreshold is how many failures sideline a credential until either its
// daily window rolls over or the whole pool is exhausted and reset.
const errorThreshold = 5

// resetWindow mirrors the provider's daily quota heuristically: a literal
// 86400s since the credential's last reset, not a calendar day.
const resetWindow = 24 * time.Hour

type credentialRecord struct {
	requests    int
	errors      int
	windowStart time.Time
}

// CredentialStats is a point-in-time snapshot of one credential's counters,
// exposed for the /status endpoint. The secret itself is never included.
type CredentialStats struct {
	Requests int `json:"requests"`
	Errors   int `json:"errors"`
}

// CredentialPool rotates requests across configured provider credentials with
// round-robin selection, skipping credentials that have accumulated too many
// errors. It is failure-cause-agnostic: classifying rate limits vs other
// errors is the caller's job. Counters are read by the /status endpoint while
// the orchestrator mutates them, hence the lock.
type CredentialPool struct {
	mu      sync.Mutex
	creds   []string
	records map[string]*credentialRecord
	cursor  int

	now func() time.Time // test hook
}

// NewCredentialPool builds a pool over the configured credentials, dropping
// empty strings. Records live for the whole process; credentials are never
// removed.
func NewCredentialPool(creds []string) *CredentialPool {
	p := &CredentialPool{records: map[string]*credentialRecord{}, now: time.Now}
	for _, c := range creds {
		if c == "" {
			continue
		}
		if _, dup := p.records[c]; dup {
			continue
		}
		p.creds = append(p.creds, c)
		p.records[c] = &credentialRecord{windowStart: p.now()}
	}
	return p
}

// Size reports the number of configured credentials.
func (p *CredentialPool) Size() int { return len(p.creds) }

// Select returns the next usable credential round-robin, skipping any whose
// error count has reached the threshold. If every credential is over the
// threshold, all error counters are reset and the first credential is
// returned, so the pool can never deadlock permanently. Returns false only
// for an empty pool.
func (p *CredentialPool) Select() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for probes := 0; probes < len(p.creds); probes++ {
		cred := p.creds[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.creds)

		rec := p.records[cred]
		if p.now().Sub(rec.windowStart) > resetWindow {
			rec.requests = 0
			rec.errors = 0
			rec.windowStart = p.now()
		}

		if rec.errors < errorThreshold {
			return cred, true
		}
	}

	if len(p.creds) == 0 {
		return "", false
	}

	// Every credential is sidelined; reset them all rather than going dark.
	slog.Warn("all credentials over error threshold, resetting pool")
	for _, rec := range p.records {
		rec.errors = 0
	}
	return p.creds[0], true
}

// ReportSuccess increments the credential's request counter.
func (p *CredentialPool) ReportSuccess(cred string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.records[cred]; ok {
		rec.requests++
	}
}

// ReportFailure increments the credential's error counter. The credential
// stays in the pool; only selection skips it once over the threshold.
func (p *CredentialPool) ReportFailure(cred string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.records[cred]; ok {
		rec.errors++
	}
}

// Usable counts credentials currently under the error threshold.
func (p *CredentialPool) Usable() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, rec := range p.records {
		if rec.errors < errorThreshold {
			n++
		}
	}
	return n
}

// Stats returns per-credential counters in configuration order.
func (p *CredentialPool) Stats() []CredentialStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CredentialStats, 0, len(p.creds))
	for _, c := range p.creds {
		rec := p.records[c]
		out = append(out, CredentialStats{Requests: rec.requests, Errors: rec.errors})
	}
	return out
}

package ai

import (
	"testing"
	"time"
)

func poolWithClock(creds []string, start time.Time) (*CredentialPool, *time.Time) {
	now := start
	p := NewCredentialPool(creds)
	p.now = func() time.Time { return now }
	for _, rec := range p.records {
		rec.windowStart = start
	}
	return p, &now
}

func TestSelectRoundRobinFairness(t *testing.T) {
	p := NewCredentialPool([]string{"k1", "k2", "k3"})

	seen := map[string]int{}
	for i := 0; i < 3; i++ {
		cred, okSel := p.Select()
		if !okSel {
			t.Fatal("Select returned no credential")
		}
		seen[cred]++
	}
	for _, c := range []string{"k1", "k2", "k3"} {
		if seen[c] != 1 {
			t.Errorf("credential %s selected %d times in first cycle, want 1", c, seen[c])
		}
	}

	// Second cycle repeats the same order.
	first, _ := p.Select()
	if first != "k1" {
		t.Errorf("cycle restarted at %s, want k1", first)
	}
}

func TestSelectSkipsErroredCredential(t *testing.T) {
	p := NewCredentialPool([]string{"k1", "k2"})
	for i := 0; i < errorThreshold; i++ {
		p.ReportFailure("k1")
	}

	for i := 0; i < 4; i++ {
		cred, okSel := p.Select()
		if !okSel {
			t.Fatal("Select returned no credential")
		}
		if cred == "k1" {
			t.Fatal("selected sidelined credential k1")
		}
	}
}

func TestSelectResetsWhenAllExhausted(t *testing.T) {
	p := NewCredentialPool([]string{"k1", "k2"})
	for _, c := range []string{"k1", "k2"} {
		for i := 0; i < errorThreshold; i++ {
			p.ReportFailure(c)
		}
	}

	cred, okSel := p.Select()
	if !okSel {
		t.Fatal("expected liveness reset to return a credential")
	}
	if cred != "k1" {
		t.Errorf("reset returned %s, want first credential k1", cred)
	}
	for i, st := range p.Stats() {
		if st.Errors != 0 {
			t.Errorf("credential %d errors = %d after reset, want 0", i, st.Errors)
		}
	}
}

func TestSelectDailyWindowReset(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p, now := poolWithClock([]string{"k1"}, start)

	p.ReportSuccess("k1")
	for i := 0; i < errorThreshold; i++ {
		p.ReportFailure("k1")
	}

	// Within the window the credential is exhausted; Select falls back to the
	// all-exhausted reset path, so advance past 24h first and verify the
	// window reset clears both counters.
	*now = start.Add(resetWindow + time.Second)
	cred, okSel := p.Select()
	if !okSel || cred != "k1" {
		t.Fatalf("Select = %q, %v; want k1 after window reset", cred, okSel)
	}
	st := p.Stats()[0]
	if st.Requests != 0 || st.Errors != 0 {
		t.Errorf("counters after window reset = %+v, want zeros", st)
	}
}

func TestSelectEmptyPool(t *testing.T) {
	p := NewCredentialPool(nil)
	if _, okSel := p.Select(); okSel {
		t.Error("expected no credential from empty pool")
	}
}

func TestUsable(t *testing.T) {
	p := NewCredentialPool([]string{"k1", "k2"})
	if p.Usable() != 2 {
		t.Fatalf("Usable = %d, want 2", p.Usable())
	}
	for i := 0; i < errorThreshold; i++ {
		p.ReportFailure("k2")
	}
	if p.Usable() != 1 {
		t.Errorf("Usable = %d after sidelining k2, want 1", p.Usable())
	}
}

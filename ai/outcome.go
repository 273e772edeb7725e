// Package ai contains the response orchestration engine: credential rotation
// across provider API keys, the grounded prompt construction, and the retry /
// fallback policy that turns backend failures into displayable chat text.
package ai

// OutcomeKind tags the result of one backend invocation so the retry loop
// branches on an explicit value instead of string-matching error chains.
type OutcomeKind int

const (
	// OutcomeOK carries non-empty generated text.
	OutcomeOK OutcomeKind = iota
	// OutcomeEmpty means the provider answered with no usable text. Retried
	// without charging the credential's error counter.
	OutcomeEmpty
	// OutcomeRateLimited means quota or rate-limit exhaustion; rotate to the
	// next credential immediately.
	OutcomeRateLimited
	// OutcomeFailed is any other provider error.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Outcome is the explicit result of one Generate call.
type Outcome struct {
	Text string
	Kind OutcomeKind
	Err  error
}

func ok(text string) Outcome        { return Outcome{Text: text, Kind: OutcomeOK} }
func empty() Outcome                { return Outcome{Kind: OutcomeEmpty} }
func rateLimited(err error) Outcome { return Outcome{Kind: OutcomeRateLimited, Err: err} }
func failed(err error) Outcome      { return Outcome{Kind: OutcomeFailed, Err: err} }

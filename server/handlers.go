package server

import (
	"sync"
	"time"

	"github.com/acnlive/livebot/backend/ai"
	"github.com/acnlive/livebot/backend/config"
	"github.com/acnlive/livebot/backend/knowledge"
	"github.com/acnlive/livebot/backend/twitchapi"
	"github.com/acnlive/livebot/backend/youtubeapi"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// Deps carries everything the HTTP handlers need. Nil fields disable the
// corresponding endpoints' details (e.g. Pool is nil under the Ollama
// provider).
type Deps struct {
	Cfg       *config.Config
	Knowledge *knowledge.Store
	Pool      *ai.CredentialPool
	YouTube   *youtubeapi.Service
	Twitch    *twitchapi.HelixClient
	Tokens    youtubeapi.TokenStore
	StartedAt time.Time
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps       Deps
	stateStore map[string]time.Time
	stateMu    sync.RWMutex

	twitchMu sync.Mutex
	twitchID string // broadcaster id, resolved lazily from the channel login
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	return &Handlers{
		deps:       deps,
		stateStore: make(map[string]time.Time),
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// If we're still over the limit after cleanup, refuse to add more
	if len(h.stateStore) >= maxOAuthStates {
		// Don't add the state - this will cause the OAuth flow to fail
		// which is better than a memory exhaustion attack
		return
	}

	h.stateStore[state] = expiry
}

// takeOAuthState validates and consumes a state value. Returns false for
// unknown or expired states.
func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(exp)
}

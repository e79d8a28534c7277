// Package democtx holds the single-slot, time-boxed emergency narrative used
// to bias risk arbitration during demonstrations. Intentionally not a queue:
// a second Inject silently replaces the first.
package democtx

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Severity grades an injected narrative.
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity normalises a raw severity, defaulting to CRITICAL.
func ParseSeverity(raw string) Severity {
	if strings.EqualFold(strings.TrimSpace(raw), string(SeverityHigh)) {
		return SeverityHigh
	}
	return SeverityCritical
}

// TTL bounds for an injected context.
const (
	MinTTL     = 15 * time.Second
	MaxTTL     = 10 * time.Minute
	DefaultTTL = 3 * time.Minute
)

// Context is the injected emergency narrative.
type Context struct {
	Token     string    `json:"token"`
	Headline  string    `json:"headline"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expiresAt"`
	Consumed  bool      `json:"consumed"`
}

// Manager owns the process-wide context slot. The clock is injected so
// tests control expiry deterministically.
type Manager struct {
	now    func() time.Time
	logger zerolog.Logger

	mu          sync.Mutex
	ctx         *Context
	persistPath string
}

// NewManager builds a Manager; a nil clock falls back to time.Now.
func NewManager(now func() time.Time, logger zerolog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		now:    now,
		logger: logger.With().Str("component", "demo_context").Logger(),
	}
}

// Inject overwrites the slot. TTL is clamped to [MinTTL, MaxTTL]; a
// non-positive TTL takes the default.
func (m *Manager) Inject(token, headline string, severity Severity, ttl time.Duration) Context {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.ctx = &Context{
		Token:     strings.ToUpper(strings.TrimSpace(token)),
		Headline:  strings.TrimSpace(headline),
		Severity:  severity,
		Timestamp: now,
		ExpiresAt: now.Add(ttl),
		Consumed:  false,
	}
	m.flush()

	m.logger.Info().
		Str("token", m.ctx.Token).
		Str("severity", string(m.ctx.Severity)).
		Dur("ttl", ttl).
		Msg("demo context injected")
	return *m.ctx
}

// ActiveContext returns the context when token matches the slot and the slot
// is unexpired and unconsumed; expiry clears the slot lazily. Matching
// tolerates a wrapped-token prefix in either direction, so WBNB finds a
// context injected under BNB and the reverse.
func (m *Manager) ActiveContext(token string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reload()
	if m.expireSlot() {
		return nil
	}

	target := strings.ToUpper(strings.TrimSpace(token))
	if target == "" || !tokensMatch(m.ctx.Token, target) || m.ctx.Consumed {
		return nil
	}

	ctx := *m.ctx
	return &ctx
}

// tokensMatch compares upper-cased symbols, stripping one leading "W" from
// either side.
func tokensMatch(stored, requested string) bool {
	if stored == requested {
		return true
	}
	return stripW(stored) == stripW(requested)
}

func stripW(symbol string) string {
	if len(symbol) > 1 && strings.HasPrefix(symbol, "W") {
		return symbol[1:]
	}
	return symbol
}

// MarkConsumed idempotently marks the slot consumed regardless of token, so
// a symbol/alias mismatch between trigger and consumer cannot leak a second
// activation.
func (m *Manager) MarkConsumed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil || m.ctx.Consumed {
		return
	}
	m.ctx.Consumed = true
	m.flush()
	m.logger.Info().Str("token", m.ctx.Token).Msg("demo context consumed")
}

// Snapshot returns the slot without the token/consumed gating, still
// honouring lazy expiry. Used by the status surface.
func (m *Manager) Snapshot() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reload()
	if m.expireSlot() {
		return nil
	}
	ctx := *m.ctx
	return &ctx
}

// Clear empties the slot.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = nil
	m.flush()
}

// expireSlot reports an empty or expired slot, clearing it in the latter
// case. Callers hold the lock.
func (m *Manager) expireSlot() bool {
	if m.ctx == nil {
		return true
	}
	if m.now().After(m.ctx.ExpiresAt) {
		m.ctx = nil
		m.flush()
		return true
	}
	return false
}

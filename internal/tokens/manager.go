// Package tokens keeps the stored Google access token usable: it hands out
// the current token, refreshes it shortly before expiry, and forgets the
// credential when a refresh is rejected.
package tokens

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
)

// RefreshWindow is how long before expiry a token is considered stale.
const RefreshWindow = 5 * time.Minute

// State classifies the stored credential.
type State int

const (
	Invalid State = iota
	Valid
	ExpiringSoon
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case ExpiringSoon:
		return "expiring soon"
	default:
		return "not authenticated"
	}
}

// Slot is where the credential lives. appstore.AuthSlot implements it.
type Slot interface {
	Get() *domain.GoogleAuth
	Update(fn func(domain.GoogleAuth) domain.GoogleAuth) (*domain.GoogleAuth, error)
	Clear() error
}

// Refresher exchanges a refresh token for a new access token. expiresAt is
// epoch milliseconds.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiresAt int64, err error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager serializes refreshes so concurrent callers share one network call.
type Manager struct {
	slot      Slot
	refresher Refresher
	clock     Clock
	mu        sync.Mutex
}

func NewManager(slot Slot, refresher Refresher) *Manager {
	return NewManagerWithClock(slot, refresher, realClock{})
}

func NewManagerWithClock(slot Slot, refresher Refresher, clock Clock) *Manager {
	return &Manager{slot: slot, refresher: refresher, clock: clock}
}

// State reports the credential's state without touching the network.
func (m *Manager) State() State {
	return stateOf(m.slot.Get(), m.clock.Now())
}

func stateOf(a *domain.GoogleAuth, now time.Time) State {
	if a == nil || a.AccessToken == "" {
		return Invalid
	}
	// No expiry information: trust the token until an API call rejects it.
	if a.ExpiresAt == 0 {
		return Valid
	}
	if now.UnixMilli() > a.ExpiresAt-RefreshWindow.Milliseconds() {
		return ExpiringSoon
	}
	return Valid
}

// GetValidAccessToken returns a usable access token, refreshing it first if
// it is about to expire. A failed refresh clears the credential. It never
// retries and never returns an error; false means "not authenticated".
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auth := m.slot.Get()
	switch stateOf(auth, m.clock.Now()) {
	case Invalid:
		return "", false
	case Valid:
		return auth.AccessToken, true
	}

	if auth.RefreshToken == "" {
		slog.Warn("access token expiring and no refresh token stored, signing out")
		m.clear()
		return "", false
	}

	access, expiresAt, err := m.refresher.Refresh(ctx, auth.RefreshToken)
	if err != nil || access == "" {
		slog.Warn("token refresh failed, signing out", "error", err)
		m.clear()
		return "", false
	}

	updated, err := m.slot.Update(func(a domain.GoogleAuth) domain.GoogleAuth {
		a.AccessToken = access
		a.ExpiresAt = expiresAt
		return a
	})
	if err != nil {
		slog.Warn("persisting refreshed token", "error", err)
	}
	if updated == nil {
		// Signed out while the refresh was in flight.
		return "", false
	}
	return access, true
}

func (m *Manager) clear() {
	if err := m.slot.Clear(); err != nil {
		slog.Warn("clearing credential", "error", err)
	}
}

// Package appstore composes the persisted application slices into one
// explicitly constructed store that is injected into every consumer.
package appstore

import (
	"errors"
	"sync"
	"time"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/health"
	"github.com/kalambet/myassistant/internal/slice"
)

// Slice names, stored under slice.KeyPrefix.
const (
	KeyProfile   = "userProfile"
	KeyPersonal  = "personalAssistant"
	KeyHealth    = "healthCoach"
	KeyFinancial = "financialAdvisor"
	KeyLearning  = "learningTutor"
	KeyAuth      = "googleAuth"
)

// ErrUnknownAgent is returned by agent-generic operations for names outside
// the four personas.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrNotPersisted is returned when a mutation was computed but the write was
// dropped by the backend.
var ErrNotPersisted = errors.New("change was not saved")

// SyncStatus reports whether a write is in flight.
type SyncStatus string

const (
	StatusSaved  SyncStatus = "saved"
	StatusSaving SyncStatus = "saving"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store owns every slice. Updates are serialized so read-modify-write cycles
// within one process never interleave; separate processes still race with
// last write wins per slice.
type Store struct {
	profile   *slice.Slice[domain.Profile]
	personal  *slice.Slice[domain.PersonalDataset]
	health    *slice.Slice[domain.HealthDataset]
	financial *slice.Slice[domain.FinancialDataset]
	learning  *slice.Slice[domain.LearningDataset]
	auth      *slice.Slice[*domain.GoogleAuth]

	clock Clock
	mu    sync.Mutex

	statusMu sync.Mutex
	inflight int
	status   SyncStatus
	onStatus func(SyncStatus)
}

// New builds a Store over backend.
func New(backend slice.Backend) *Store {
	return NewWithClock(backend, realClock{})
}

// NewWithClock builds a Store with a custom clock (for testing).
func NewWithClock(backend slice.Backend, clock Clock) *Store {
	return &Store{
		profile: slice.New(backend, KeyProfile, domain.DefaultProfile),
		personal: slice.New(backend, KeyPersonal, func() domain.PersonalDataset {
			return domain.DefaultPersonal(clock.Now())
		}),
		health:    slice.New(backend, KeyHealth, domain.DefaultHealth),
		financial: slice.New(backend, KeyFinancial, domain.DefaultFinancial),
		learning:  slice.New(backend, KeyLearning, domain.DefaultLearning),
		auth:      slice.New(backend, KeyAuth, func() *domain.GoogleAuth { return nil }),
		clock:     clock,
		status:    StatusSaved,
	}
}

// OnStatusChange registers fn to observe every sync status transition.
func (s *Store) OnStatusChange(fn func(SyncStatus)) {
	s.statusMu.Lock()
	s.onStatus = fn
	s.statusMu.Unlock()
}

// SyncStatus is saving while any write is in flight.
func (s *Store) SyncStatus() SyncStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

func (s *Store) beginWrite() {
	s.statusMu.Lock()
	s.inflight++
	fn := s.setStatusLocked(StatusSaving)
	s.statusMu.Unlock()
	if fn != nil {
		fn(StatusSaving)
	}
}

func (s *Store) endWrite() {
	s.statusMu.Lock()
	s.inflight--
	var fn func(SyncStatus)
	if s.inflight == 0 {
		fn = s.setStatusLocked(StatusSaved)
	}
	s.statusMu.Unlock()
	if fn != nil {
		fn(StatusSaved)
	}
}

// setStatusLocked returns the listener to notify, or nil if nothing changed.
func (s *Store) setStatusLocked(st SyncStatus) func(SyncStatus) {
	if s.status == st {
		return nil
	}
	s.status = st
	return s.onStatus
}

// LastSaved is the most recent successful write across all slices.
func (s *Store) LastSaved() time.Time {
	var latest time.Time
	for _, t := range []time.Time{
		s.profile.LastSaved(), s.personal.LastSaved(), s.health.LastSaved(),
		s.financial.LastSaved(), s.learning.LastSaved(), s.auth.LastSaved(),
	} {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

func update[T any](s *Store, sl *slice.Slice[T], fn slice.Updater[T]) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beginWrite()
	defer s.endWrite()

	next, ok := sl.Update(fn)
	if !ok {
		return next, ErrNotPersisted
	}
	return next, nil
}

func (s *Store) Profile() domain.Profile { return s.profile.Read() }

func (s *Store) UpdateProfile(fn slice.Updater[domain.Profile]) (domain.Profile, error) {
	return update(s, s.profile, fn)
}

func (s *Store) Personal() domain.PersonalDataset { return s.personal.Read() }

func (s *Store) UpdatePersonal(fn slice.Updater[domain.PersonalDataset]) (domain.PersonalDataset, error) {
	return update(s, s.personal, fn)
}

func (s *Store) Health() domain.HealthDataset { return s.health.Read() }

func (s *Store) UpdateHealth(fn slice.Updater[domain.HealthDataset]) (domain.HealthDataset, error) {
	return update(s, s.health, fn)
}

func (s *Store) Financial() domain.FinancialDataset { return s.financial.Read() }

func (s *Store) UpdateFinancial(fn slice.Updater[domain.FinancialDataset]) (domain.FinancialDataset, error) {
	return update(s, s.financial, fn)
}

func (s *Store) Learning() domain.LearningDataset { return s.learning.Read() }

func (s *Store) UpdateLearning(fn slice.Updater[domain.LearningDataset]) (domain.LearningDataset, error) {
	return update(s, s.learning, fn)
}

// GoogleAuth returns the stored credential or nil.
func (s *Store) GoogleAuth() *domain.GoogleAuth { return s.auth.Read() }

// Login stores a credential obtained from the OAuth callback.
func (s *Store) Login(a domain.GoogleAuth) error {
	_, err := update(s, s.auth, slice.Replace(&a))
	return err
}

// Logout forgets the credential.
func (s *Store) Logout() error {
	return s.AuthSlot().Clear()
}

// ClearAllData deletes every slice. Subsequent reads return first-run
// defaults.
func (s *Store) ClearAllData() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beginWrite()
	defer s.endWrite()

	ok := s.profile.Delete()
	ok = s.personal.Delete() && ok
	ok = s.health.Delete() && ok
	ok = s.financial.Delete() && ok
	ok = s.learning.Delete() && ok
	ok = s.auth.Delete() && ok
	if !ok {
		return ErrNotPersisted
	}
	return nil
}

// Keys lists every backend key the store manages.
func (s *Store) Keys() []string {
	return []string{
		s.profile.Key(), s.personal.Key(), s.health.Key(),
		s.financial.Key(), s.learning.Key(), s.auth.Key(),
	}
}

// AuthSlot is the write path to the stored credential. Only the token
// lifecycle manager and the login/logout entry points use it.
type AuthSlot struct {
	s *Store
}

func (s *Store) AuthSlot() AuthSlot { return AuthSlot{s: s} }

func (a AuthSlot) Get() *domain.GoogleAuth { return a.s.auth.Read() }

// Update rewrites the credential in place. It is a no-op when no credential
// is stored.
func (a AuthSlot) Update(fn func(domain.GoogleAuth) domain.GoogleAuth) (*domain.GoogleAuth, error) {
	return update(a.s, a.s.auth, func(prev *domain.GoogleAuth) *domain.GoogleAuth {
		if prev == nil {
			return nil
		}
		next := fn(*prev)
		return &next
	})
}

func (a AuthSlot) Clear() error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	a.s.beginWrite()
	defer a.s.endWrite()

	if !a.s.auth.Delete() {
		return ErrNotPersisted
	}
	return nil
}

// LogHealthEntry appends e to the day containing now. A missing timestamp is
// set from now.
func (s *Store) LogHealthEntry(e domain.Entry, now time.Time) (domain.HealthDataset, error) {
	if e.Timestamp == "" {
		e.Timestamp = now.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	if e.Unit == "" {
		e.Unit = e.Type.DefaultUnit()
	}
	key := health.LocalDateKey(now)
	return s.UpdateHealth(func(prev domain.HealthDataset) domain.HealthDataset {
		logs := prev.DailyLogs.Clone()
		logs[key] = append(logs[key], e)
		prev.DailyLogs = logs
		return prev
	})
}

// SaveHealthSettings replaces the enabled metrics and targets.
func (s *Store) SaveHealthSettings(enabled domain.Metrics, targets domain.Targets) (domain.HealthDataset, error) {
	return s.UpdateHealth(func(prev domain.HealthDataset) domain.HealthDataset {
		prev.EnabledMetrics = enabled
		prev.Targets = targets
		return prev
	})
}

// MigrateHealthGoals upgrades legacy health goals to auto-tracking and
// persists only if something changed.
func (s *Store) MigrateHealthGoals() error {
	if _, changed := health.MigrateGoals(s.Health().Goals); !changed {
		return nil
	}
	_, err := s.UpdateHealth(func(prev domain.HealthDataset) domain.HealthDataset {
		prev.Goals, _ = health.MigrateGoals(prev.Goals)
		return prev
	})
	return err
}

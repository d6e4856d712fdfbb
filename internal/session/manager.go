package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
)

// DefaultIdleTTL is how long an untouched session lives.
const DefaultIdleTTL = 30 * time.Minute

// Manager owns the live sessions. Sessions expire after the idle TTL and
// are closed when they leave the store for any reason.
type Manager struct {
	config Config
	deps   Dependencies
	store  *cache.Cache
}

// NewManager creates a session manager. A non-positive ttl uses DefaultIdleTTL.
func NewManager(config Config, deps Dependencies, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	store := cache.New(ttl, ttl/2)
	store.OnEvicted(func(id string, v any) {
		if s, ok := v.(*Session); ok {
			if err := s.Close(); err != nil {
				GetLogger().Warn("failed to close evicted session",
					logger.String("session_id", id),
					logger.Error(err))
			}
		}
	})
	return &Manager{config: config, deps: deps, store: store}
}

// Archive returns the report archive sessions export to, or nil.
func (m *Manager) Archive() datastore.Interface {
	return m.deps.Archive
}

// Create opens a new session with a random UUID.
func (m *Manager) Create() (*Session, error) {
	id := uuid.NewString()
	s, err := New(id, m.config, m.deps)
	if err != nil {
		return nil, err
	}
	m.store.Set(id, s, cache.DefaultExpiration)
	GetLogger().Info("session created", logger.String("session_id", id))
	return s, nil
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	v, found := m.store.Get(id)
	if !found {
		return nil, errors.Newf("session %s not found", id).
			Component("session").
			Category(errors.CategoryNotFound).
			Context("session_id", id).
			Build()
	}
	s := v.(*Session)
	m.store.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) error {
	if _, found := m.store.Get(id); !found {
		return errors.Newf("session %s not found", id).
			Component("session").
			Category(errors.CategoryNotFound).
			Context("session_id", id).
			Build()
	}
	m.store.Delete(id)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.store.ItemCount()
}

// Close closes every session.
func (m *Manager) Close() {
	for id := range m.store.Items() {
		m.store.Delete(id)
	}
}

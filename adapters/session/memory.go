package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/nutriplanner/domain"
)

// MemoryStore keeps sessions in a process-local map. Nothing is evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

var _ domain.SessionStore = (*MemoryStore)(nil)

func (m *MemoryStore) Create() domain.Session {
	s := &domain.Session{
		ID:            uuid.NewString(),
		CreatedAt:     m.now(),
		SearchHistory: []string{},
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return clone(s)
}

func (m *MemoryStore) Get(id string) (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	return clone(s), true
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *MemoryStore) SetPreferences(id, preferences string) error {
	return m.update(id, func(s *domain.Session) { s.DietPreferences = preferences })
}

func (m *MemoryStore) AppendHistory(id, query string) error {
	return m.update(id, func(s *domain.Session) { s.SearchHistory = append(s.SearchHistory, query) })
}

func (m *MemoryStore) SetLastMealPlan(id, plan string) error {
	return m.update(id, func(s *domain.Session) { s.LastMealPlan = plan })
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) update(id string, fn func(*domain.Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	fn(s)
	return nil
}

func clone(s *domain.Session) domain.Session {
	c := *s
	c.SearchHistory = append([]string(nil), s.SearchHistory...)
	return c
}

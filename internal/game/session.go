package game

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore keeps ClientSession data across level loads, keyed by
// client slot.
type SessionStore interface {
	Load(client int) (ClientSession, bool)
	Save(client int, sess ClientSession)
	Delete(client int)
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int]ClientSession
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int]ClientSession)}
}

func (s *MemorySessionStore) Load(client int) (ClientSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[client]
	return sess, ok
}

func (s *MemorySessionStore) Save(client int, sess ClientSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	s.sessions[client] = sess
}

func (s *MemorySessionStore) Delete(client int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, client)
}

// Len reports how many sessions are stored.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

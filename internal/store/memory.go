package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-assistant/internal/assistant"
)

// session is a conversation plus when it was last used.
type session struct {
	conv     *assistant.Conversation
	lastSeen time.Time
}

// MemoryStore is a concurrency-safe in-memory registry of conversations
// keyed by session id.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*session

	factory func() *assistant.Conversation
	now     func() time.Time
}

// NewMemoryStore creates an empty store. factory builds the conversation for
// every new session.
func NewMemoryStore(factory func() *assistant.Conversation) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]*session),
		factory: factory,
		now:     time.Now,
	}
}

// GetOrCreate returns the conversation for id and marks it as used.
// A blank or unknown id starts a new session under a fresh id.
func (s *MemoryStore) GetOrCreate(id string) (string, *assistant.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id != "" {
		if sess, ok := s.data[id]; ok {
			sess.lastSeen = now
			return id, sess.conv
		}
	}

	id = uuid.NewString()
	sess := &session{conv: s.factory(), lastSeen: now}
	s.data[id] = sess
	return id, sess.conv
}

// Get returns the conversation for id without touching it.
func (s *MemoryStore) Get(id string) (*assistant.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return nil, false
	}
	return sess.conv, true
}

// EvictIdle drops sessions not used since cutoff and reports how many went.
func (s *MemoryStore) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.data {
		if sess.lastSeen.Before(cutoff) {
			delete(s.data, id)
			evicted++
		}
	}
	return evicted
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

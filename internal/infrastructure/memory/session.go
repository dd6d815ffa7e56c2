package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
)

type sessionData struct {
	values    map[string][]byte
	expiresAt time.Time
}

// Sessions keeps session values in process, JSON-encoded like the Redis store, and expires
// idle sessions after ttl.
type Sessions struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]*sessionData
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, now: time.Now, data: make(map[string]*sessionData)}
}

// Session opens the store of one session id.
func (s *Sessions) Session(id string) domcart.SessionStore {
	return &session{owner: s, id: id}
}

// Len counts live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.data)
}

func (s *Sessions) sweepLocked() {
	now := s.now()
	for id, d := range s.data {
		if s.ttl > 0 && now.After(d.expiresAt) {
			delete(s.data, id)
		}
	}
}

type session struct {
	owner *Sessions
	id    string
}

func (s *session) Get(ctx context.Context, key string, dst any) (bool, error) {
	_ = ctx
	s.owner.mu.Lock()
	s.owner.sweepLocked()
	var raw []byte
	if d, ok := s.owner.data[s.id]; ok {
		raw = d.values[key]
	}
	s.owner.mu.Unlock()

	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("memory: session %s: decode %s: %w", s.id, key, err)
	}
	return true, nil
}

func (s *session) Set(ctx context.Context, key string, value any) error {
	_ = ctx
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: session %s: encode %s: %w", s.id, key, err)
	}

	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	d, ok := s.owner.data[s.id]
	if !ok {
		d = &sessionData{values: make(map[string][]byte)}
		s.owner.data[s.id] = d
	}
	d.values[key] = raw
	d.expiresAt = s.owner.now().Add(s.owner.ttl)
	return nil
}

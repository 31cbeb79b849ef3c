package store

import (
	"context"
	"sync"
	"time"

	"euvat/pkg/platform/sentinel"
)

type cachedMemo struct {
	memo     Memo
	storedAt time.Time
}

// InMemoryMemo is a session-keyed memo with TTL expiration. Safe for
// concurrent use across checkout sessions.
type InMemoryMemo struct {
	mu    sync.RWMutex
	memos map[string]cachedMemo
	ttl   time.Duration
	now   func() time.Time
}

func NewInMemoryMemo(ttl time.Duration) *InMemoryMemo {
	return &InMemoryMemo{
		memos: make(map[string]cachedMemo),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Save replaces the memo for a session.
func (s *InMemoryMemo) Save(_ context.Context, sessionID string, memo Memo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memos[sessionID] = cachedMemo{memo: memo, storedAt: s.now()}
	return nil
}

// Find returns sentinel.ErrNotFound when the session has no memo or it expired.
func (s *InMemoryMemo) Find(_ context.Context, sessionID string) (Memo, error) {
	s.mu.RLock()
	cached, ok := s.memos[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Memo{}, sentinel.ErrNotFound
	}
	if s.now().Sub(cached.storedAt) >= s.ttl {
		s.mu.Lock()
		delete(s.memos, sessionID)
		s.mu.Unlock()
		return Memo{}, sentinel.ErrNotFound
	}
	return cached.memo, nil
}

// Delete forgets a session, for example once its order is placed.
func (s *InMemoryMemo) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memos, sessionID)
	return nil
}

package lists

import (
	"context"
	"sync"
	"time"
)

// MemoryList is an in-process List for tests and single-instance services.
type MemoryList struct {
	kind Kind
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryList creates an empty MemoryList. A positive ttl expires entries.
func NewMemoryList(kind Kind, ttl time.Duration) *MemoryList {
	return &MemoryList{kind: kind, ttl: ttl, now: time.Now, entries: map[string]time.Time{}}
}

func (l *MemoryList) Kind() Kind { return l.kind }

func (l *MemoryList) Add(_ context.Context, token string) error {
	l.mu.Lock()
	l.entries[token] = l.now()
	l.mu.Unlock()
	return nil
}

func (l *MemoryList) Check(_ context.Context, token string) (bool, error) {
	l.mu.RLock()
	added, ok := l.entries[token]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if l.ttl > 0 && !l.now().Before(added.Add(l.ttl)) {
		l.mu.Lock()
		delete(l.entries, token)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (l *MemoryList) Delete(_ context.Context, token string) error {
	l.mu.Lock()
	delete(l.entries, token)
	l.mu.Unlock()
	return nil
}

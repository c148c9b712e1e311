package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type jsonEntry struct {
	Data      []byte `json:"data"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// JSONBackend stores sessions in a single JSON file, rewritten atomically on
// every change. It is meant for single-process deployments.
type JSONBackend struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewJSONBackend creates a [JSONBackend] at path. The file is created on first
// write.
func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path, now: time.Now}
}

func (s *JSONBackend) Put(_ context.Context, sessionKey, sessionID string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return err
	}
	entry := jsonEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl).UnixMilli()
	}
	if db[sessionKey] == nil {
		db[sessionKey] = map[string]jsonEntry{}
	}
	db[sessionKey][sessionID] = entry
	return s.save(db)
}

func (s *JSONBackend) Fetch(_ context.Context, sessionKey, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return nil, err
	}
	entry, ok := db[sessionKey][sessionID]
	if !ok || s.expired(entry) {
		return nil, ErrNotFound
	}
	return entry.Data, nil
}

func (s *JSONBackend) Remove(_ context.Context, sessionKey, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := db[sessionKey][sessionID]; !ok {
		return nil
	}
	delete(db[sessionKey], sessionID)
	if len(db[sessionKey]) == 0 {
		delete(db, sessionKey)
	}
	return s.save(db)
}

func (s *JSONBackend) RemoveAll(_ context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := db[sessionKey]; !ok {
		return nil
	}
	delete(db, sessionKey)
	return s.save(db)
}

func (s *JSONBackend) expired(e jsonEntry) bool {
	return e.ExpiresAt != 0 && s.now().UnixMilli() >= e.ExpiresAt
}

func (s *JSONBackend) load() (map[string]map[string]jsonEntry, error) {
	db := map[string]map[string]jsonEntry{}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return db, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(raw) == 0 {
		return db, nil
	}
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return db, nil
}

// save drops expired entries and replaces the file via rename.
func (s *JSONBackend) save(db map[string]map[string]jsonEntry) error {
	for key, entries := range db {
		for id, e := range entries {
			if s.expired(e) {
				delete(entries, id)
			}
		}
		if len(entries) == 0 {
			delete(db, key)
		}
	}
	raw, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

package lists

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONList stores entries as a JSON array in one file. Entries never expire.
type JSONList struct {
	path string
	kind Kind
	now  func() time.Time

	mu sync.Mutex
}

// NewJSONList creates a JSONList at path. The file is created on first Add.
func NewJSONList(path string, kind Kind) *JSONList {
	return &JSONList{path: path, kind: kind, now: time.Now}
}

func (l *JSONList) Kind() Kind { return l.kind }

func (l *JSONList) Add(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Token == token {
			return nil
		}
	}
	entries = append(entries, Entry{Token: token, CreatedAt: l.now().UTC()})
	return l.save(entries)
}

func (l *JSONList) Check(_ context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (l *JSONList) Delete(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Token != token {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return l.save(kept)
}

// Entries returns a copy of the stored entries in insertion order.
func (l *JSONList) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *JSONList) load() ([]Entry, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, unavailable(err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, unavailable(err)
	}
	return entries, nil
}

func (l *JSONList) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return unavailable(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*")
	if err != nil {
		return unavailable(err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return unavailable(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return unavailable(err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return unavailable(err)
	}
	return nil
}

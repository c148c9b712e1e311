package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/jam/internal/b64"
	"github.com/MrEthical07/jam/serializer"
)

// Store is the session API exposed to applications and middleware.
type Store interface {
	Create(ctx context.Context, sessionKey string, data map[string]any) (string, error)
	Get(ctx context.Context, sessionID string) (map[string]any, error)
	Update(ctx context.Context, sessionID string, data map[string]any) error
	Delete(ctx context.Context, sessionID string) error
	Rework(ctx context.Context, sessionID string) (string, error)
	Clear(ctx context.Context, sessionKey string) error
}

// Backend stores opaque session blobs grouped by session key. Fetch returns
// ErrNotFound for missing or expired entries.
type Backend interface {
	Put(ctx context.Context, sessionKey, sessionID string, data []byte, ttl time.Duration) error
	Fetch(ctx context.Context, sessionKey, sessionID string) ([]byte, error)
	Remove(ctx context.Context, sessionKey, sessionID string) error
	RemoveAll(ctx context.Context, sessionKey string) error
}

// Option configures a Manager.
type Option func(*Manager) error

// WithTTL sets the session lifetime. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) error {
		if ttl < 0 {
			return fmt.Errorf("session ttl must not be negative")
		}
		m.ttl = ttl
		return nil
	}
}

// WithEncryption seals IDs and payloads with a 32-byte key (raw or base64url).
func WithEncryption(key any) Option {
	return func(m *Manager) error {
		s, err := newSealer(key)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncryptionKey, err)
		}
		m.sealer = s
		return nil
	}
}

// WithSerializer replaces the canonical JSON serializer.
func WithSerializer(s serializer.Serializer) Option {
	return func(m *Manager) error {
		m.serializer = s
		return nil
	}
}

// WithIDFactory replaces the UUIDv4 id generator.
func WithIDFactory(f func() string) Option {
	return func(m *Manager) error {
		m.ids = f
		return nil
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) error {
		m.logger = l
		return nil
	}
}

// Manager implements Store over a Backend.
//
// Manager is safe for concurrent use when its Backend is.
type Manager struct {
	backend    Backend
	serializer serializer.Serializer
	ids        func() string
	ttl        time.Duration
	// sealer is nil unless WithEncryption was given.
	sealer *sealer
	logger *slog.Logger
}

// DefaultTTL is the session lifetime when WithTTL is not given.
const DefaultTTL = time.Hour

// NewManager builds a Manager. Option errors are returned as-is.
func NewManager(backend Backend, opts ...Option) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("session backend is required")
	}
	m := &Manager{
		backend:    backend,
		serializer: serializer.Default(),
		ids:        uuid.NewString,
		ttl:        DefaultTTL,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Encrypted reports whether IDs and payloads are sealed.
func (m *Manager) Encrypted() bool { return m.sealer != nil }

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create stores data under a new ID for sessionKey and returns the ID.
func (m *Manager) Create(ctx context.Context, sessionKey string, data map[string]any) (string, error) {
	if sessionKey == "" || strings.Contains(sessionKey, ":") {
		return "", ErrInvalidSessionKey
	}
	id := sessionKey + ":" + m.ids()
	if m.sealer != nil {
		sealed, err := m.sealer.seal(id)
		if err != nil {
			return "", err
		}
		id = sealed
	}
	blob, err := m.encode(data)
	if err != nil {
		return "", err
	}
	if err := m.backend.Put(ctx, sessionKey, id, blob, m.ttl); err != nil {
		return "", err
	}
	m.logger.Debug("session created", "session_key", sessionKey)
	return id, nil
}

// Get returns the data stored for sessionID.
func (m *Manager) Get(ctx context.Context, sessionID string) (map[string]any, error) {
	sessionKey, err := m.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	blob, err := m.backend.Fetch(ctx, sessionKey, sessionID)
	if err != nil {
		return nil, err
	}
	return m.decode(blob)
}

// Update replaces the data for an existing session and restarts its TTL.
func (m *Manager) Update(ctx context.Context, sessionID string, data map[string]any) error {
	sessionKey, err := m.resolve(sessionID)
	if err != nil {
		return err
	}
	if _, err := m.backend.Fetch(ctx, sessionKey, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			m.logger.Debug("update of unknown session", "session_key", sessionKey)
		}
		return err
	}
	blob, err := m.encode(data)
	if err != nil {
		return err
	}
	return m.backend.Put(ctx, sessionKey, sessionID, blob, m.ttl)
}

// Delete removes sessionID. Deleting an unknown session is not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	sessionKey, err := m.resolve(sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return m.backend.Remove(ctx, sessionKey, sessionID)
}

// Rework moves a session's data to a fresh ID and deletes the old one.
func (m *Manager) Rework(ctx context.Context, sessionID string) (string, error) {
	sessionKey, err := m.resolve(sessionID)
	if err != nil {
		return "", err
	}
	data, err := m.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	next, err := m.Create(ctx, sessionKey, data)
	if err != nil {
		return "", err
	}
	if err := m.backend.Remove(ctx, sessionKey, sessionID); err != nil {
		return "", err
	}
	return next, nil
}

// Clear removes every session created for sessionKey.
func (m *Manager) Clear(ctx context.Context, sessionKey string) error {
	if sessionKey == "" || strings.Contains(sessionKey, ":") {
		return ErrInvalidSessionKey
	}
	return m.backend.RemoveAll(ctx, sessionKey)
}

// resolve extracts the session key from an ID, unsealing it first if needed.
func (m *Manager) resolve(sessionID string) (string, error) {
	raw := sessionID
	if m.sealer != nil {
		plain, ok := m.sealer.open(sessionID)
		if !ok {
			m.logger.Debug("session id failed to unseal")
			return "", ErrNotFound
		}
		raw = plain
	}
	sessionKey, _, ok := strings.Cut(raw, ":")
	if !ok || sessionKey == "" {
		return "", ErrNotFound
	}
	return sessionKey, nil
}

func (m *Manager) encode(data map[string]any) ([]byte, error) {
	blob, err := m.serializer.Dumps(data)
	if err != nil {
		return nil, err
	}
	if m.sealer == nil {
		return blob, nil
	}
	sealed, err := m.sealer.seal(b64.Encode(blob))
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

func (m *Manager) decode(blob []byte) (map[string]any, error) {
	if m.sealer != nil {
		plain, ok := m.sealer.open(string(blob))
		if !ok {
			return nil, ErrNotFound
		}
		raw, err := b64.Decode(plain)
		if err != nil {
			return nil, ErrNotFound
		}
		blob = raw
	}
	return m.serializer.Loads(blob)
}

// Package memory holds map-backed repositories used in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

// Cipher matches the encryption used by the Postgres adapters.
type Cipher interface {
	EncryptString(s string) (string, error)
	DecryptString(encoded string) (string, error)
}

// SessionStore keeps sessions in a map. Timestamps follow the same whole-second,
// always-advancing rules as the Postgres store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	cipher   Cipher
	now      func() time.Time
	newID    func() string
}

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(newID func() string) SessionOption {
	return func(s *SessionStore) { s.newID = newID }
}

// WithCipher encrypts stored ips.
func WithCipher(c Cipher) SessionOption {
	return func(s *SessionStore) { s.cipher = c }
}

func NewSessionStore(opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Create(_ context.Context, userID, userAgent, ip string) (*domain.Session, error) {
	storedIP := ip
	if s.cipher != nil {
		encrypted, err := s.cipher.EncryptString(ip)
		if err != nil {
			return nil, domain.Internal("fail encrypt ip", err)
		}
		storedIP = encrypted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if _, taken := s.sessions[id]; taken {
		return nil, domain.ErrSessionIDTaken
	}

	now := s.now().Truncate(time.Second)
	stored := domain.Session{
		ID:           id,
		UserID:       userID,
		UserAgent:    userAgent,
		IP:           storedIP,
		AuthorizedAt: now,
		RefreshedAt:  now,
	}
	s.sessions[id] = stored
	return s.reveal(stored)
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	stored, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.reveal(stored)
}

func (s *SessionStore) Refresh(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	now := s.now().Truncate(time.Second)
	next := now
	if floor := stored.RefreshedAt.Add(time.Second); next.Before(floor) {
		next = floor
	}
	if next.After(now.Add(domain.MaxFenceLead)) {
		return nil, domain.ErrRefreshTooSoon
	}
	stored.RefreshedAt = next
	s.sessions[id] = stored
	return s.reveal(stored)
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) DeleteOwnedBy(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok || stored.UserID != userID {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) DeleteAllOwnedByExcept(_ context.Context, userID, keepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stored := range s.sessions {
		if stored.UserID == userID && id != keepID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *SessionStore) ListOwnedBy(_ context.Context, userID string) ([]domain.Session, error) {
	s.mu.RLock()
	owned := make([]domain.Session, 0)
	for _, stored := range s.sessions {
		if stored.UserID == userID {
			owned = append(owned, stored)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].RefreshedAt.Equal(owned[j].RefreshedAt) {
			return owned[i].ID < owned[j].ID
		}
		return owned[i].RefreshedAt.After(owned[j].RefreshedAt)
	})

	out := make([]domain.Session, 0, len(owned))
	for _, stored := range owned {
		revealed, err := s.reveal(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, *revealed)
	}
	return out, nil
}

func (s *SessionStore) DeleteRefreshedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, stored := range s.sessions {
		if stored.RefreshedAt.Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// Stored returns the record as kept at rest, with the ip still encrypted.
func (s *SessionStore) Stored(id string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[id]
	return stored, ok
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) reveal(stored domain.Session) (*domain.Session, error) {
	if s.cipher != nil {
		ip, err := s.cipher.DecryptString(stored.IP)
		if err != nil {
			return nil, domain.Internal("fail decrypt session ip", err)
		}
		stored.IP = ip
	}
	return &stored, nil
}

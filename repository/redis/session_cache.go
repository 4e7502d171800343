package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

// Cipher protects the client ip while the session sits in Redis.
type Cipher interface {
	EncryptString(s string) (string, error)
	DecryptString(encoded string) (string, error)
}

// SessionCache is a read-through cache in front of another SessionStore.
// Only Get is served from Redis; every write goes to the backing store first and
// then updates or drops the cached entry.
type SessionCache struct {
	next   repository.SessionStore
	client *redislib.Client
	cipher Cipher
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

var _ repository.SessionStore = (*SessionCache)(nil)

// NewSessionCache wraps next with a Redis cache whose entries live for ttl.
func NewSessionCache(next repository.SessionStore, client *redislib.Client, cipher Cipher, ttl time.Duration, logger *zap.Logger) *SessionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCache{
		next:   next,
		client: client,
		cipher: cipher,
		logger: logger,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (c *SessionCache) Create(ctx context.Context, userID, userAgent, ip string) (*domain.Session, error) {
	session, err := c.next.Create(ctx, userID, userAgent, ip)
	if err != nil {
		return nil, err
	}
	c.store(ctx, session)
	return session, nil
}

func (c *SessionCache) Get(ctx context.Context, id string) (*domain.Session, error) {
	if session, ok := c.load(ctx, id); ok {
		return session, nil
	}

	session, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, session)
	return session, nil
}

func (c *SessionCache) Refresh(ctx context.Context, id string) (*domain.Session, error) {
	session, err := c.next.Refresh(ctx, id)
	if err != nil {
		c.invalidate(ctx, id)
		return nil, err
	}
	c.store(ctx, session)
	return session, nil
}

func (c *SessionCache) Delete(ctx context.Context, id string) error {
	err := c.next.Delete(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *SessionCache) DeleteOwnedBy(ctx context.Context, id, userID string) error {
	err := c.next.DeleteOwnedBy(ctx, id, userID)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return err
}

func (c *SessionCache) DeleteAllOwnedByExcept(ctx context.Context, userID, keepID string) error {
	owned, listErr := c.next.ListOwnedBy(ctx, userID)

	if err := c.next.DeleteAllOwnedByExcept(ctx, userID, keepID); err != nil {
		return err
	}
	if listErr != nil {
		c.logger.Warn("session cache: cannot list sessions to invalidate", zap.String("user_id", userID), zap.Error(listErr))
		return nil
	}

	ids := make([]string, 0, len(owned))
	for _, s := range owned {
		if s.ID != keepID {
			ids = append(ids, s.ID)
		}
	}
	c.invalidate(ctx, ids...)
	return nil
}

func (c *SessionCache) ListOwnedBy(ctx context.Context, userID string) ([]domain.Session, error) {
	return c.next.ListOwnedBy(ctx, userID)
}

// DeleteRefreshedBefore leaves cached entries to expire on their own; a purged
// session is past its refresh lifetime and cannot validate a token anyway.
func (c *SessionCache) DeleteRefreshedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.next.DeleteRefreshedBefore(ctx, cutoff)
}

func (c *SessionCache) load(ctx context.Context, id string) (*domain.Session, bool) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			c.logger.Warn("session cache: read failed", zap.String("session_id", id), zap.Error(err))
		}
		return nil, false
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		c.logger.Warn("session cache: corrupt entry", zap.String("session_id", id), zap.Error(err))
		c.invalidate(ctx, id)
		return nil, false
	}

	ip, err := c.cipher.DecryptString(session.IP)
	if err != nil {
		c.logger.Warn("session cache: cannot decrypt entry", zap.String("session_id", id), zap.Error(err))
		c.invalidate(ctx, id)
		return nil, false
	}
	session.IP = ip
	return &session, true
}

func (c *SessionCache) store(ctx context.Context, session *domain.Session) {
	cached := *session
	encrypted, err := c.cipher.EncryptString(session.IP)
	if err != nil {
		c.logger.Warn("session cache: cannot encrypt entry", zap.String("session_id", session.ID), zap.Error(err))
		return
	}
	cached.IP = encrypted

	payload, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("session cache: cannot encode entry", zap.String("session_id", session.ID), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, c.key(session.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("session cache: write failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (c *SessionCache) invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("session cache: invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *SessionCache) key(id string) string {
	return fmt.Sprintf("%s%s", c.prefix, id)
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

const sessionColumns = `id::text, user_id, user_agent, ip, authorized_at, refreshed_at`

type sessionStore struct {
	pool   *pgxpool.Pool
	cipher Cipher
	newID  func() string
}

// NewSessionStore instantiates a Postgres-backed session store. The client ip is
// encrypted with cipher before it is written.
func NewSessionStore(pool *pgxpool.Pool, cipher Cipher) repository.SessionStore {
	return &sessionStore{
		pool:   pool,
		cipher: cipher,
		newID:  uuid.NewString,
	}
}

func (s *sessionStore) Create(ctx context.Context, userID, userAgent, ip string) (*domain.Session, error) {
	encryptedIP, err := s.cipher.EncryptString(ip)
	if err != nil {
		return nil, domain.Internal("fail encrypt ip", err)
	}

	const query = `
		INSERT INTO sessions (id, user_id, user_agent, ip, authorized_at, refreshed_at)
		VALUES ($1, $2, $3, $4, date_trunc('second', now()), date_trunc('second', now()))
		RETURNING ` + sessionColumns

	session, err := s.scan(s.pool.QueryRow(ctx, query, s.newID(), userID, userAgent, encryptedIP))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, domain.ErrSessionIDTaken
		case isForeignKeyViolation(err):
			return nil, domain.WrapError(domain.ErrCodeNotFound, "user not found", err)
		}
		return nil, err
	}
	return session, nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if !validUUID(id) {
		return nil, domain.ErrSessionNotFound
	}

	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return s.scan(s.pool.QueryRow(ctx, query, id))
}

func (s *sessionStore) Refresh(ctx context.Context, id string) (*domain.Session, error) {
	if !validUUID(id) {
		return nil, domain.ErrSessionNotFound
	}

	// The fence must always move, even for two refreshes inside one second, but
	// never further than $2 seconds ahead of the clock.
	const query = `
		UPDATE sessions
		SET refreshed_at = GREATEST(date_trunc('second', now()), refreshed_at + interval '1 second')
		WHERE id = $1
		  AND refreshed_at + interval '1 second' <= date_trunc('second', now()) + $2 * interval '1 second'
		RETURNING ` + sessionColumns

	session, err := s.scan(s.pool.QueryRow(ctx, query, id, domain.MaxFenceLead.Seconds()))
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return session, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, domain.Internal("fail query session", err)
	}
	if exists {
		return nil, domain.ErrRefreshTooSoon
	}
	return nil, domain.ErrSessionNotFound
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return domain.ErrSessionNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return domain.Internal("fail delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *sessionStore) DeleteOwnedBy(ctx context.Context, id, userID string) error {
	if !validUUID(id) {
		return domain.ErrSessionNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return domain.Internal("fail delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *sessionStore) DeleteAllOwnedByExcept(ctx context.Context, userID, keepID string) error {
	var err error
	if validUUID(keepID) {
		_, err = s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`, userID, keepID)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	}
	if err != nil {
		return domain.Internal("fail delete sessions", err)
	}
	return nil
}

func (s *sessionStore) ListOwnedBy(ctx context.Context, userID string) ([]domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY refreshed_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.Internal("fail list sessions", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("fail list sessions", err)
	}
	return sessions, nil
}

func (s *sessionStore) DeleteRefreshedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE refreshed_at < $1`, cutoff)
	if err != nil {
		return 0, domain.Internal("fail purge sessions", err)
	}
	return tag.RowsAffected(), nil
}

// scan reads one session row and decrypts its ip. Driver errors other than
// pgx.ErrNoRows are returned unchanged so callers can classify them.
func (s *sessionStore) scan(row rowScanner) (*domain.Session, error) {
	var (
		session     domain.Session
		encryptedIP string
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.UserAgent,
		&encryptedIP,
		&session.AuthorizedAt,
		&session.RefreshedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		if isUniqueViolation(err) || isForeignKeyViolation(err) {
			return nil, err
		}
		return nil, domain.Internal("fail query session", err)
	}

	ip, err := s.cipher.DecryptString(encryptedIP)
	if err != nil {
		return nil, domain.Internal("fail decrypt session ip", err)
	}
	session.IP = ip
	return &session, nil
}

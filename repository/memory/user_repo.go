package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetOrCreate(_ context.Context, id, username string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		user = domain.User{ID: id, Username: username, CreatedAt: time.Now()}
		r.users[id] = user
	}
	return &user, nil
}

type ExternalTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]domain.ExternalToken
}

var _ repository.ExternalTokenRepository = (*ExternalTokenRepository)(nil)

func NewExternalTokenRepository() *ExternalTokenRepository {
	return &ExternalTokenRepository{tokens: make(map[string]domain.ExternalToken)}
}

func (r *ExternalTokenRepository) Get(_ context.Context, userID string) (*domain.ExternalToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[userID]
	if !ok {
		return nil, domain.ErrExternalTokenNotFound
	}
	return &token, nil
}

func (r *ExternalTokenRepository) Upsert(_ context.Context, userID, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[userID] = domain.ExternalToken{
		UserID:       userID,
		RefreshToken: refreshToken,
		UpdatedAt:    time.Now(),
	}
	return nil
}

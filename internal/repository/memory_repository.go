package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. Uniqueness is checked
// under the same lock as the write, matching the unique indexes of the
// Postgres schema. Callers always receive copies.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[uuid.UUID]*models.User),
		now:   time.Now,
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		return u.Clone(), nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.EmailAddress() == email {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) FindByFederatedID(_ context.Context, provider models.Provider, id string) (*models.User, error) {
	if models.FederatedIDColumn(provider) == "" {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	if id == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.FederatedID(provider) == id {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := r.users[user.ID]; exists {
		return fmt.Errorf("failed to create user: %w", &DuplicateKeyError{Field: "id"})
	}
	if err := r.checkUnique(user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	now := r.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return fmt.Errorf("failed to update user: no user with id %s", user.ID)
	}
	if err := r.checkUnique(user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	user.UpdatedAt = r.now()
	r.users[user.ID] = user.Clone()
	return nil
}

// checkUnique must be called with the write lock held.
func (r *MemoryUserRepository) checkUnique(user *models.User) error {
	email := user.EmailAddress()
	for id, other := range r.users {
		if id == user.ID {
			continue
		}
		if email != "" && other.EmailAddress() == email {
			return &DuplicateKeyError{Field: FieldEmail}
		}
		for _, p := range models.Providers {
			if fid := user.FederatedID(p); fid != "" && other.FederatedID(p) == fid {
				return &DuplicateKeyError{Field: string(p)}
			}
		}
	}
	return nil
}

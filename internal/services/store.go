package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/google/uuid"
)

// UserStore persists users. Find methods return (nil, nil) when nothing
// matches; Create and Update report unique index violations as
// repository.ErrDuplicateKey.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByFederatedID(ctx context.Context, provider models.Provider, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository persists users in PostgreSQL through GORM. Lookups return
// (nil, nil) when no row matches.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) FindByFederatedID(ctx context.Context, provider models.Provider, id string) (*models.User, error) {
	column := models.FederatedIDColumn(provider)
	if column == "" {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	if id == "" {
		return nil, nil
	}
	return r.findOne(ctx, column+" = ?", id)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		return errors.New("cannot update user without id")
	}
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", translateError(err))
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

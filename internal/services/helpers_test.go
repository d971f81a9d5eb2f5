package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

// spyStore counts writes and can inject failures on top of the memory store.
type spyStore struct {
	*repository.MemoryUserRepository
	creates, updates int
	findErr          error
	createErr        error
	updateErr        error
}

func newSpyStore() *spyStore {
	return &spyStore{MemoryUserRepository: repository.NewMemoryUserRepository()}
}

func (s *spyStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryUserRepository.FindByEmail(ctx, email)
}

func (s *spyStore) FindByFederatedID(ctx context.Context, p models.Provider, id string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryUserRepository.FindByFederatedID(ctx, p, id)
}

func (s *spyStore) Create(ctx context.Context, u *models.User) error {
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	return s.MemoryUserRepository.Create(ctx, u)
}

func (s *spyStore) Update(ctx context.Context, u *models.User) error {
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.MemoryUserRepository.Update(ctx, u)
}

// seedUser stores a user and returns its stored copy.
func seedUser(t *testing.T, store *spyStore, email string, links map[models.Provider]string) *models.User {
	t.Helper()
	u := &models.User{FirstName: "Seed", LastName: "User"}
	u.SetEmail(email)
	for p, id := range links {
		u.SetFederatedID(p, id)
	}
	require.NoError(t, store.MemoryUserRepository.Create(context.Background(), u))
	return u
}

func subjectOf(t *testing.T, tokens *TokenService, token string) uuid.UUID {
	t.Helper()
	claims, err := tokens.Decode(token)
	require.NoError(t, err)
	id, err := uuid.Parse(claims.Subject)
	require.NoError(t, err)
	return id
}

func newTestHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

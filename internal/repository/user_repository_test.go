package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewUserRepository(db), mock
}

func TestUserRepository_FindByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "email", "first_name", "google_id"}).
		AddRow(id.String(), "a@b.com", "A", "g-1")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "  A@B.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "A", u.FirstName)
	assert.Equal(t, "g-1", u.FederatedID(models.ProviderGoogle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByFederatedID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE facebook_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := repo.FindByFederatedID(context.Background(), models.ProviderFacebook, "fb-1")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnError(errors.New("db down"))

	u, err := repo.FindByID(context.Background(), uuid.New())
	assert.Nil(t, u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.False(t, errors.Is(err, ErrDuplicateKey))
}

func TestUserRepository_BlankLookupsSkipQuery(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	u, err := repo.FindByEmail(context.Background(), " ")
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.FindByFederatedID(context.Background(), models.ProviderGoogle, "")
	assert.NoError(t, err)
	assert.Nil(t, u)

	_, err = repo.FindByFederatedID(context.Background(), models.Provider("myspace"), "1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateRequiresID(t *testing.T) {
	repo, _ := newRepoWithMock(t)
	assert.Error(t, repo.Update(context.Background(), &models.User{}))
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantDup   bool
		wantField string
	}{
		{"email index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}, true, "email"},
		{"facebook index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_facebook_id"}, true, "facebook"},
		{"google index", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_google_id"}, true, "google"},
		{"unknown index", &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}, true, ""},
		{"gorm translated", gorm.ErrDuplicatedKey, true, ""},
		{"other pg error", &pgconn.PgError{Code: "23502"}, false, ""},
		{"plain error", errors.New("boom"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(tt.err)
			assert.Equal(t, tt.wantDup, errors.Is(err, ErrDuplicateKey))
			if !tt.wantDup {
				return
			}
			var dup *DuplicateKeyError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.wantField, dup.Field)
			assert.True(t, errors.Is(err, tt.err), "original error stays reachable")
		})
	}

	assert.NoError(t, translateError(nil))
}

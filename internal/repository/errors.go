package repository

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrDuplicateKey = errors.New("duplicate key")

const pgUniqueViolation = "23505"

// Field values reported by DuplicateKeyError.
const (
	FieldEmail = "email"
)

// DuplicateKeyError reports a unique index violation. Field is "email" or a
// provider name, and empty when the driver did not say which index failed.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return "duplicate key"
	}
	return fmt.Sprintf("duplicate key on %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &DuplicateKeyError{Field: fieldForConstraint(pgErr.ConstraintName), Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateKeyError{Err: err}
	}
	return err
}

func fieldForConstraint(name string) string {
	switch name {
	case "idx_users_email":
		return FieldEmail
	case "idx_users_facebook_id":
		return string(models.ProviderFacebook)
	case "idx_users_google_id":
		return string(models.ProviderGoogle)
	}
	return ""
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/repository"
	"github.com/go-playground/validator/v10"
)

const (
	SourceWebApp    = "webApp"
	DefaultTimezone = "UTC"
	VerifiedYes     = "yes"
	VerifiedNo      = "no"
)

// AuthService handles email/password login and signup.
type AuthService struct {
	store    UserStore
	hasher   PasswordHasher
	tokens   *TokenService
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(store UserStore, hasher PasswordHasher, tokens *TokenService) *AuthService {
	return &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		validate: newValidator(),
		now:      time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Missing user and wrong password must be indistinguishable to the caller.
	if user == nil || !s.hasher.Verify(req.Password, user.Password) {
		slog.Warn("login rejected", "action", "login")
		return nil, ErrInvalidCredentials
	}
	user.Password = ""

	return s.issue(user)
}

func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error) {
	in := dto.SignupRequest{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     models.NormalizeEmail(req.Email),
		Password:  req.Password,
	}

	verr := s.validateSignup(&in)
	if !verr.Has("email") {
		existing, err := s.store.FindByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		if existing != nil {
			verr.Add("email", emailTakenMessage)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
		Verified:  VerifiedNo,
		Timezone:  DefaultTimezone,
		Source:    SourceWebApp,
		CreatedAt: s.now(),
	}
	user.SetEmail(in.Email)
	user.DisplayName = user.FullName()

	if err := s.store.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, repository.ErrDuplicateKey) {
			verr := NewValidationError()
			verr.Add("email", emailTakenMessage)
			return nil, verr
		}
		return nil, err
	}

	slog.Info("user signed up", "action", "signup", "user_id", user.ID.String())
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*dto.TokenResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{Token: token}, nil
}

const emailTakenMessage = "The email has already been taken."

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateSignup reports every failing field at once.
func (s *AuthService) validateSignup(in *dto.SignupRequest) *ValidationError {
	verr := NewValidationError()
	err := s.validate.Struct(in)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("request", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			verr.Add(fe.Field(), fmt.Sprintf("The %s field is required.", fe.Field()))
		case "email":
			verr.Add(fe.Field(), fmt.Sprintf("The %s must be a valid email address.", fe.Field()))
		default:
			verr.Add(fe.Field(), fmt.Sprintf("The %s field is invalid.", fe.Field()))
		}
	}
	return verr
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/repository"
)

// ErrEmailInUse is returned when a provider profile carries the email of an
// existing account but the provider does not vouch for that email.
var ErrEmailInUse = fmt.Errorf("%w: sign in to that account to link this provider", ErrIdentityConflict)

// ProviderLogin is one provider callback: the authorization code plus the
// caller's Authorization header, which is empty for signup/login.
type ProviderLogin struct {
	Provider    string
	Code        string
	ClientID    string
	RedirectURI string
	AuthHeader  string
}

// FederationService resolves provider profiles to local users.
type FederationService struct {
	store     UserStore
	providers IdentityProvider
	sessions  *SessionExtractor
	tokens    *TokenService
	now       func() time.Time
}

func NewFederationService(store UserStore, providers IdentityProvider, sessions *SessionExtractor, tokens *TokenService) *FederationService {
	return &FederationService{
		store:     store,
		providers: providers,
		sessions:  sessions,
		tokens:    tokens,
		now:       time.Now,
	}
}

func (s *FederationService) LoginWithProvider(ctx context.Context, in ProviderLogin) (*dto.TokenResponse, error) {
	provider, err := validateProviderLogin(in)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.providers.ExchangeCode(ctx, provider, in.Code, in.ClientID, in.RedirectURI)
	if err != nil {
		slog.Warn("provider code exchange failed", "action", "provider_login", "provider", provider.String(), "error", err)
		return nil, err
	}
	profile, err := s.providers.FetchProfile(ctx, provider, accessToken)
	if err != nil {
		slog.Warn("provider profile fetch failed", "action", "provider_login", "provider", provider.String(), "error", err)
		return nil, err
	}

	var user *models.User
	if strings.TrimSpace(in.AuthHeader) != "" {
		user, err = s.link(ctx, provider, profile, in.AuthHeader)
	} else {
		user, err = s.resolve(ctx, provider, profile)
	}
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// link attaches the profile to the account behind the session token.
func (s *FederationService) link(ctx context.Context, provider models.Provider, profile *Profile, authHeader string) (*models.User, error) {
	userID, err := s.sessions.SubjectFromAuthHeader(authHeader)
	if err != nil {
		return nil, err
	}

	owner, err := s.store.FindByFederatedID(ctx, provider, profile.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up linked user: %w", err)
	}
	if owner != nil && owner.ID != userID {
		slog.Warn("provider identity already linked", "action", "link", "provider", provider.String(),
			"user_id", userID.String(), "owner_id", owner.ID.String())
		return nil, ErrIdentityConflict
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	changed := false
	if user.FederatedID(provider) != profile.ProviderUserID {
		user.SetFederatedID(provider, profile.ProviderUserID)
		changed = true
	}
	if user.DisplayName == "" && profile.DisplayName != "" {
		user.DisplayName = profile.DisplayName
		changed = true
	}
	if changed {
		if err := s.save(ctx, user); err != nil {
			return nil, err
		}
	}

	slog.Info("provider linked", "action", "link", "provider", provider.String(), "user_id", user.ID.String())
	return user, nil
}

// resolve finds the account for a profile, attaches the profile to an
// account with the same email, or creates a new account.
func (s *FederationService) resolve(ctx context.Context, provider models.Provider, profile *Profile) (*models.User, error) {
	user, err := s.store.FindByFederatedID(ctx, provider, profile.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up linked user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	if profile.Email != "" {
		user, err = s.store.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		if user != nil {
			return s.attach(ctx, provider, profile, user)
		}
	}

	return s.create(ctx, provider, profile)
}

// attach links the profile to the existing account that owns its email.
// Only a provider-verified email may claim that account; otherwise the
// caller gets ErrEmailInUse and must sign in and link explicitly, so an
// unverified provider email cannot take over a local account.
func (s *FederationService) attach(ctx context.Context, provider models.Provider, profile *Profile, user *models.User) (*models.User, error) {
	if !profile.EmailVerified {
		return nil, ErrEmailInUse
	}
	if linked := user.FederatedID(provider); linked != "" && linked != profile.ProviderUserID {
		slog.Warn("account already linked to another provider identity", "action", "provider_login",
			"provider", provider.String(), "user_id", user.ID.String())
		return nil, ErrIdentityConflict
	}

	user.SetFederatedID(provider, profile.ProviderUserID)
	if user.DisplayName == "" {
		user.DisplayName = profile.DisplayName
	}
	if user.ProfilePhoto == "" {
		user.ProfilePhoto = profile.PhotoURL
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("provider attached by email", "action", "provider_login", "provider", provider.String(), "user_id", user.ID.String())
	return user, nil
}

func (s *FederationService) create(ctx context.Context, provider models.Provider, profile *Profile) (*models.User, error) {
	first, last := splitName(profile)
	user := &models.User{
		FirstName:    first,
		LastName:     last,
		DisplayName:  profile.DisplayName,
		ProfilePhoto: profile.PhotoURL,
		Verified:     VerifiedNo,
		Timezone:     DefaultTimezone,
		Source:       SourceWebApp,
		SocialMedia:  provider.String(),
		CreatedAt:    s.now(),
	}
	if profile.EmailVerified {
		user.Verified = VerifiedYes
	}
	if user.DisplayName == "" {
		user.DisplayName = user.FullName()
	}
	user.SetEmail(profile.Email)
	user.SetFederatedID(provider, profile.ProviderUserID)

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrIdentityConflict
		}
		return nil, err
	}

	slog.Info("user created from provider", "action", "provider_signup", "provider", provider.String(), "user_id", user.ID.String())
	return user, nil
}

// Unlink detaches the provider from the account behind the session token.
// Unlinking a provider that is not linked succeeds without a write.
func (s *FederationService) Unlink(ctx context.Context, providerName, authHeader string) (*dto.TokenResponse, error) {
	provider, err := models.ParseProvider(providerName)
	if err != nil {
		verr := NewValidationError()
		verr.Add("provider", err.Error())
		return nil, verr
	}

	userID, err := s.sessions.SubjectFromAuthHeader(authHeader)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if user.FederatedID(provider) != "" {
		user.SetFederatedID(provider, "")
		if err := s.save(ctx, user); err != nil {
			return nil, err
		}
		slog.Info("provider unlinked", "action", "unlink", "provider", provider.String(), "user_id", user.ID.String())
	}

	return s.issue(user)
}

func (s *FederationService) save(ctx context.Context, user *models.User) error {
	if err := s.store.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return ErrIdentityConflict
		}
		return err
	}
	return nil
}

func (s *FederationService) issue(user *models.User) (*dto.TokenResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{Token: token}, nil
}

func validateProviderLogin(in ProviderLogin) (models.Provider, error) {
	verr := NewValidationError()
	provider, err := models.ParseProvider(in.Provider)
	if err != nil {
		verr.Add("provider", err.Error())
	}
	if strings.TrimSpace(in.Code) == "" {
		verr.Add("code", "The code field is required.")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		verr.Add("clientId", "The clientId field is required.")
	}
	if strings.TrimSpace(in.RedirectURI) == "" {
		verr.Add("redirectUri", "The redirectUri field is required.")
	}
	return provider, verr.OrNil()
}

// splitName prefers the provider's own name fields and otherwise splits the
// display name at the first space.
func splitName(p *Profile) (first, last string) {
	if p.FirstName != "" || p.LastName != "" {
		return p.FirstName, p.LastName
	}
	fields := strings.Fields(p.DisplayName)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

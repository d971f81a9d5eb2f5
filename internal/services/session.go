package services

import (
	"strings"

	"github.com/google/uuid"
)

// SessionExtractor resolves the authenticated user behind an Authorization header.
type SessionExtractor struct {
	tokens *TokenService
}

func NewSessionExtractor(tokens *TokenService) *SessionExtractor {
	return &SessionExtractor{tokens: tokens}
}

// SubjectFromAuthHeader expects "Bearer <token>" and returns the token subject.
func (e *SessionExtractor) SubjectFromAuthHeader(header string) (uuid.UUID, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return uuid.Nil, ErrMissingAuth
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return uuid.Nil, ErrMalformedAuth
	}

	claims, err := e.tokens.Decode(token)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

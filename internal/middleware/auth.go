package middleware

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenLocalsKey  = "user"
	userIDLocalsKey = "user_id"
)

// sessionClaims rejects tokens without exp or sub, as TokenService does.
type sessionClaims struct {
	jwt.RegisteredClaims
}

func (c *sessionClaims) Validate() error {
	if c.ExpiresAt == nil {
		return jwt.ErrTokenRequiredClaimMissing
	}
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	return nil
}

// JWTProtected guards a route with the session token. jwtware parses without
// leeway, so a token it rejects only as expired is re-checked by the session
// extractor, which applies the configured leeway.
func JWTProtected(cfg *config.Config, sessions *services.SessionExtractor) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: []byte(cfg.TokenSecret)},
		ContextKey: tokenLocalsKey,
		Claims:     &sessionClaims{},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenLocalsKey).(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			sub, err := token.Claims.GetSubject()
			if err != nil {
				return unauthorized(c)
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				return unauthorized(c)
			}
			c.Locals(userIDLocalsKey, userID)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwt.ErrTokenExpired) {
				if userID, serr := sessions.SubjectFromAuthHeader(c.Get(fiber.HeaderAuthorization)); serr == nil {
					c.Locals(userIDLocalsKey, userID)
					return c.Next()
				}
			}
			return unauthorized(c)
		},
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Unauthorized: invalid or expired token",
	})
}

// UserID returns the session subject that JWTProtected stored in locals.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(userIDLocalsKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, errors.New("no authenticated user in context")
	}
	return userID, nil
}

package handlers

import (
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	store services.UserStore
}

func NewUserHandler(store services.UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// Me returns the account behind the session token.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	user, err := h.store.FindByID(c.UserContext(), userID)
	if err != nil {
		return writeError(c, "me", err)
	}
	if user == nil {
		return writeError(c, "me", services.ErrUserNotFound)
	}

	return c.JSON(toUserResponse(user))
}

func toUserResponse(u *models.User) dto.UserResponse {
	providers := make(map[string]string)
	for p, id := range u.FederatedIDs() {
		providers[p.String()] = id
	}
	return dto.UserResponse{
		ID:           u.ID,
		Email:        u.EmailAddress(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		DisplayName:  u.DisplayName,
		ProfilePhoto: u.ProfilePhoto,
		Providers:    providers,
		HasPassword:  u.Password != "",
		Verified:     u.Verified,
		Timezone:     u.Timezone,
		CreatedAt:    u.CreatedAt,
	}
}

package handlers

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	federation  *services.FederationService
}

func NewAuthHandler(authService *services.AuthService, federation *services.FederationService) *AuthHandler {
	return &AuthHandler{authService: authService, federation: federation}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	resp, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return writeError(c, "signup", err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return writeError(c, "login", err)
	}

	return c.JSON(resp)
}

// Provider completes an OAuth callback for /auth/:provider. A bearer token
// on the request links the provider to that session's account.
func (h *AuthHandler) Provider(c *fiber.Ctx) error {
	var req dto.ProviderLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	resp, err := h.federation.LoginWithProvider(c.UserContext(), services.ProviderLogin{
		Provider:    utils.CopyString(c.Params("provider")),
		Code:        req.Code,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		AuthHeader:  c.Get(fiber.HeaderAuthorization),
	})
	if err != nil {
		return writeError(c, "provider_login", err)
	}

	return c.JSON(resp)
}

// Unlink takes the provider from the path, or from the body for clients
// that post to /auth/unlink.
func (h *AuthHandler) Unlink(c *fiber.Ctx) error {
	provider := utils.CopyString(c.Params("provider"))
	if provider == "" && len(c.Body()) > 0 {
		var req dto.UnlinkRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequestBody(c)
		}
		provider = strings.TrimSpace(req.Provider)
	}

	resp, err := h.federation.Unlink(c.UserContext(), provider, c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return writeError(c, "unlink", err)
	}

	return c.JSON(resp)
}

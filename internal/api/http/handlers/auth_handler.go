package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/farmer-dashboard/internal/api/dto"
	"github.com/spec-kit/farmer-dashboard/internal/auth"
	apperrors "github.com/spec-kit/farmer-dashboard/pkg/util/errorutil"
)

// AuthHandler exposes the identity-check and logout endpoints.
type AuthHandler struct {
	cookieName string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(cookieName string) *AuthHandler {
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}
	return &AuthHandler{cookieName: cookieName}
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": dto.IdentityResponse{ID: identity.UserID, Role: identity.Role},
	})
}

// Logout handles POST /api/auth/logout by expiring the token cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.SendStatus(http.StatusNoContent)
}

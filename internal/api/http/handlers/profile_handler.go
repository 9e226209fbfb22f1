package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/farmer-dashboard/internal/api/dto"
	"github.com/spec-kit/farmer-dashboard/internal/auth"
	"github.com/spec-kit/farmer-dashboard/internal/service"
	apperrors "github.com/spec-kit/farmer-dashboard/pkg/util/errorutil"
)

// ProfileHandler exposes the farmer's profile preferences.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetRegion handles GET /api/profile/region.
func (h *ProfileHandler) GetRegion(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	region, err := h.profiles.Region(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.RegionResponse{Region: region})
}

// PutRegion handles PUT /api/profile/region.
func (h *ProfileHandler) PutRegion(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RegionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	region, err := h.profiles.SetRegion(c.UserContext(), identity, req.Region)
	if err != nil {
		return err
	}
	return c.JSON(dto.RegionResponse{Region: region})
}

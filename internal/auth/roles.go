package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
	apperrors "github.com/spec-kit/farmer-dashboard/pkg/util/errorutil"
)

// RequireRole admits requests whose gate-verified identity holds one of
// allowed. It must run after Gate.Handle; without a verified identity it
// answers 401. With no roles given any verified identity passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	required := make([]string, 0, len(allowed))
	for _, role := range allowed {
		required = append(required, role.String())
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 || hasRole(identity.Role, allowed) {
			return c.Next()
		}
		return apperrors.NewDomainError(apperrors.CodeForbidden, "insufficient role", fiber.StatusForbidden,
			map[string]any{"required": required})
	}
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

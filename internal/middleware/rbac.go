package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studyplan-api/internal/utils"
)

// RequireRole guards a whole route group. Role names follow WithAuth, so
// AuthRoleFamily admits students and parents and admins pass every check.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		current := CurrentRole(c)
		for _, role := range roles {
			if roleSatisfies(normalizeRole(role), current) {
				return c.Next()
			}
		}
		return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
	}
}

// CurrentRole returns the normalised role of the authenticated user.
func CurrentRole(c *fiber.Ctx) string {
	role, _ := c.Locals("user_role").(string)
	return normalizeRole(role)
}

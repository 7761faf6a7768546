package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studyplan-api/internal/utils"
)

// Auth role constants used by WithAuth.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = "admin"
	AuthRoleStudent = "student"
	AuthRoleParent  = "parent"
	// AuthRoleFamily admits students and parents; per-student access is decided by the handler.
	AuthRoleFamily = "family"
)

// AuthOptions configures WithAuth.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and role guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := normalizeRole(opts.Role)
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser
	if !requireUser && role != AuthRoleAny {
		requireUser = true
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id")
		if requireUser && userID == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		if !roleSatisfies(role, CurrentRole(c)) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return handler(c)
	}
}

// Admins satisfy every role requirement.
func roleSatisfies(required, current string) bool {
	if current == AuthRoleAdmin {
		return true
	}
	switch required {
	case AuthRoleFamily:
		return current == AuthRoleStudent || current == AuthRoleParent
	default:
		return current == required
	}
}

func normalizeRole(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

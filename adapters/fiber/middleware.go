package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/averill/authkit"
)

// RequireAuth validates the bearer token and stores the resolved user in the
// request context for downstream handlers. Usable on host routes too.
func (a *Adapter) RequireAuth(c fiber.Ctx) error {
	token := extractToken(c)
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing token",
		})
	}

	user, err := a.auth.VerifySession(c.Context(), token)
	if err != nil {
		return handleAuthError(c, err)
	}

	c.Locals("user", user)

	return c.Next()
}

// UserFromContext returns the authenticated user stored by RequireAuth.
func UserFromContext(c fiber.Ctx) (*authkit.User, bool) {
	user, ok := c.Locals("user").(*authkit.User)
	return user, ok
}

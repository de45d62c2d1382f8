package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/averill/authkit"
	"github.com/averill/authkit/core"
)

func (a *Adapter) signUp(c fiber.Ctx) error {
	var input authkit.RegisterInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	user, err := a.auth.Register(c.Context(), input)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(user)
}

func (a *Adapter) signIn(c fiber.Ctx) error {
	var input authkit.LoginInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	input.IPAddress = c.IP()
	input.UserAgent = c.Get(fiber.HeaderUserAgent)

	result, err := a.auth.Login(c.Context(), input)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(http.StatusOK).JSON(result)
}

func (a *Adapter) signOut(c fiber.Ctx) error {
	token := extractToken(c)
	if err := a.auth.Logout(c.Context(), token); err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "signed out successfully",
	})
}

func (a *Adapter) session(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*authkit.User)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing token",
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user": user,
	})
}

func (a *Adapter) verifyEmail(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "missing token",
		})
	}

	user, err := a.auth.VerifyEmail(c.Context(), token)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(http.StatusOK).JSON(user)
}

func (a *Adapter) sendVerification(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*authkit.User)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing token",
		})
	}

	// The issued token travels by email only; it never appears in the response.
	if _, err := a.auth.SendEmailVerification(c.Context(), user.ID); err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": "verification email sent",
	})
}

func (a *Adapter) resendVerification(c fiber.Ctx) error {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.Bind().Body(&input); err != nil || input.Email == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	_, err := a.auth.ResendEmailVerification(c.Context(), input.Email)
	if err != nil && !errors.Is(err, authkit.ErrUserNotFound) {
		return handleAuthError(c, err)
	}

	// Unknown addresses get the same response so the endpoint cannot be
	// used to probe which emails are registered.
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": "verification email sent",
	})
}

// extractToken extracts the authentication token from the request.
// Checks Authorization header (Bearer token) first, then falls back to cookie.
func extractToken(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}

	return c.Cookies("auth_token")
}

// handleAuthError maps authentication errors to appropriate HTTP responses
func handleAuthError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// mapErrorToStatus maps authkit error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, authkit.ErrInvalidEmailFormat),
		errors.Is(err, authkit.ErrWeakPassword):
		return http.StatusBadRequest

	case errors.Is(err, authkit.ErrInvalidCredentials),
		errors.Is(err, authkit.ErrInvalidSession),
		errors.Is(err, authkit.ErrInvalidToken):
		return http.StatusUnauthorized

	case errors.Is(err, authkit.ErrEmailNotVerified):
		return http.StatusForbidden

	case errors.Is(err, authkit.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, authkit.ErrUserAlreadyExists),
		errors.Is(err, authkit.ErrTokenAlreadyUsed),
		errors.Is(err, authkit.ErrEmailAlreadyVerified):
		return http.StatusConflict

	case errors.Is(err, authkit.ErrTokenExpired):
		return http.StatusGone

	case core.IsRetryable(err), errors.Is(err, authkit.ErrQueueFull):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// Package fiber mounts the authentication endpoints on a Fiber v3 app.
package fiber

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/averill/authkit"
)

const defaultBasePath = "/api/auth"

// Service is the authentication surface the HTTP handlers need. *authkit.Kit
// satisfies it.
type Service interface {
	Register(ctx context.Context, input authkit.RegisterInput) (*authkit.User, error)
	Login(ctx context.Context, input authkit.LoginInput) (*authkit.LoginResult, error)
	VerifySession(ctx context.Context, token string) (*authkit.User, error)
	Logout(ctx context.Context, token string) error
	VerifyEmail(ctx context.Context, token string) (*authkit.User, error)
	SendEmailVerification(ctx context.Context, userID string) (*authkit.IssuedToken, error)
	ResendEmailVerification(ctx context.Context, email string) (*authkit.IssuedToken, error)
}

type Adapter struct {
	app      *fiber.App
	auth     Service
	basePath string
}

func New(app *fiber.App, auth Service) *Adapter {
	return &Adapter{
		app:      app,
		auth:     auth,
		basePath: defaultBasePath,
	}
}

// WithBasePath overrides the default /api/auth mount point.
func (a *Adapter) WithBasePath(basePath string) *Adapter {
	a.basePath = basePath
	return a
}

func (a *Adapter) RegisterRoutes() {
	api := a.app.Group(a.basePath)

	// Public routes
	api.Post("/sign-up", a.signUp)
	api.Post("/sign-in", a.signIn)
	api.Get("/verify-email", a.verifyEmail)
	api.Post("/resend-verification", a.resendVerification)

	// Protected routes
	api.Post("/sign-out", a.signOut, a.RequireAuth)
	api.Get("/session", a.session, a.RequireAuth)
	api.Post("/send-verification", a.sendVerification, a.RequireAuth)
}

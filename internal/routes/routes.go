package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/paygate/internal/handlers"
	"github.com/example/paygate/internal/middleware"
)

// Handlers groups the endpoint handlers served by the app.
type Handlers struct {
	Users    *handlers.UserHandler
	Auth     *handlers.AuthHandler
	Payments *handlers.PaymentHandler
}

// Options toggles optional route behavior.
type Options struct {
	JWTSecret           string
	PaymentsRequireAuth bool
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, h Handlers, opts Options) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Users
	app.Post("/user", h.Users.Create)
	app.Post("/users", h.Users.Create)
	app.Get("/users/:userId", h.Users.Get)

	// Auth
	app.Post("/auth/token", h.Auth.IssueToken)

	// Payments
	payments := app.Group("/payments")
	if opts.PaymentsRequireAuth {
		payments.Use(middleware.AuthMiddleware(opts.JWTSecret))
	}
	payments.Post("/orders", h.Payments.CreateOrder)
	payments.Post("/capture", h.Payments.Capture)
}

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/middleware"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usercontext"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", requestid.New(requestid.Config{Generator: uuid.NewString}))

	// Payment provider webhooks: no session, no rate limit, signature-verified in controller.
	api.Post("/stripe/webhook", h.deps.Billing.HandleStripeWebhook)

	// Session checks are attached per route so unknown paths still 404.
	auth := []fiber.Handler{
		middleware.SessionAuth(h.deps.Sessions, h.deps.Log),
		h.rateLimiter(),
		middleware.RequireAPISessionAuth,
	}
	protected := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, auth...), handler)
	}

	api.Post("/stripe/checkout", protected(h.deps.Billing.HandleCreateCheckoutSession)...)
	api.Get("/subscription", protected(h.deps.Billing.HandleGetSubscription)...)

	api.Post("/generate-comment", protected(h.deps.Comments.HandleGenerateComment)...)
	api.Get("/usage", protected(h.deps.Comments.HandleGetUsage)...)

	api.Get("/accounts", protected(h.deps.Accounts.HandleListAccounts)...)
	api.Post("/accounts", protected(h.deps.Accounts.HandleAddAccount)...)
	api.Delete("/accounts/:handle", protected(h.deps.Accounts.HandleRemoveAccount)...)

	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Not found",
		})
	})
}

// rateLimiter limits per authenticated user, falling back to the client IP.
func (h ApiRouter) rateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        h.deps.Limits.RateLimitMax,
		Expiration: h.deps.Limits.RateLimitWindow,
		Storage:    newLimiterStorage(h.deps.Cache, h.deps.Log),
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := usercontext.GetUserID(c); id != "" {
				return "user:" + id
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	})
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

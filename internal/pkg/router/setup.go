package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/app/controllers"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the wired handlers and shared clients routes are built from.
type Dependencies struct {
	Billing      *controllers.BillingController
	Comments     *controllers.CommentController
	Accounts     *controllers.AccountController
	Sessions     *middleware.SessionVerifier
	Cache        *redis.Client
	Limits       config.LimitsConfig
	Log          *zap.Logger
	DocsSpecPath string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	// Health, metrics and docs first so they bypass session handling.
	setup(app, NewHttpRouter(deps.DocsSpecPath), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

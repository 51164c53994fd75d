package main

import (
	"context"
	"net"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/app/controllers"
	"github.com/ManuelReschke/InstaGrowth/cmd/fx/billingfx"
	"github.com/ManuelReschke/InstaGrowth/cmd/fx/draftingfx"
	"github.com/ManuelReschke/InstaGrowth/cmd/fx/infrafx"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/middleware"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/router"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		infrafx.Module,
		billingfx.Module,
		draftingfx.Module,

		fx.Provide(NewApplication),
		fx.Invoke(StartServer),
	)

	app.Run()
}

type applicationParams struct {
	fx.In

	Config   *config.Config
	Log      *zap.Logger
	Cache    *redis.Client
	Sessions *middleware.SessionVerifier
	Billing  *controllers.BillingController
	Comments *controllers.CommentController
	Accounts *controllers.AccountController
}

func NewApplication(p applicationParams) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "InstaGrowth",
		BodyLimit:             1 << 20, // 1 MiB, webhooks and captions are small
		DisableStartupMessage: true,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Billing:      p.Billing,
		Comments:     p.Comments,
		Accounts:     p.Accounts,
		Sessions:     p.Sessions,
		Cache:        p.Cache,
		Limits:       p.Config.Limits,
		Log:          p.Log,
		DocsSpecPath: findBasePath() + "public/docs/v1/openapi.yml",
	})

	return app
}

func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.App.Addr())
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := app.Listener(ln); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return app.ShutdownWithContext(ctx)
		},
	})
}

// findBasePath locates the project root relative to the working directory.
func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/instagrowth to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	return "./"
}

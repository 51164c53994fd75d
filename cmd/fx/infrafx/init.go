package infrafx

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/cache"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/database"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/logging"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/middleware"
)

var Module = fx.Provide(
	config.Load,
	provideLogger,
	provideDB,
	provideCache,
	provideSessionVerifier,
)

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.App.IsDev())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

// provideDB yields a nil handle when no database is configured.
func provideDB(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.SetupDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

func provideCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *redis.Client {
	client := cache.SetupCache(context.Background(), cfg.Cache, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return cache.Close(client)
		},
	})
	return client
}

func provideSessionVerifier(cfg *config.Config, log *zap.Logger) (*middleware.SessionVerifier, error) {
	verifier, err := middleware.NewSessionVerifier(cfg.Identity.JWTPublicKey, cfg.Identity.Issuer)
	if err != nil {
		return nil, err
	}
	if verifier == nil {
		log.Warn("IDENTITY_JWT_PUBLIC_KEY not set, all API requests are anonymous")
	}
	return verifier, nil
}

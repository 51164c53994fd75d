package draftingfx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/app/controllers"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/accounts"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/drafting"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usage"
)

var Module = fx.Provide(
	provideCompleter,
	drafting.NewService,
	provideMeter,
	accounts.NewStore,
	controllers.NewCommentController,
	controllers.NewAccountController,
)

func provideCompleter(cfg *config.Config, log *zap.Logger) drafting.Completer {
	completer := drafting.NewOpenAICompleter(
		cfg.Inference.APIKey,
		cfg.Inference.BaseURL,
		cfg.Inference.Model,
		cfg.Inference.MaxTokens,
	)
	if completer == nil {
		log.Warn("INFERENCE_API_KEY not set, comment drafting will fail")
		return nil
	}
	return completer
}

func provideMeter(rdb *redis.Client, cfg *config.Config) *usage.Meter {
	return usage.NewMeter(rdb, cfg.Limits.MonthlyCommentLimit)
}

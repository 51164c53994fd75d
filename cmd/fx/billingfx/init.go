package billingfx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/InstaGrowth/app/controllers"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/billing"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/config"
)

var Module = fx.Provide(
	provideProvider,
	provideBillingService,
	provideBillingController,
)

// provideProvider returns a nil interface, not a nil *StripeProvider, when no
// secret key is configured.
func provideProvider(cfg *config.Config, log *zap.Logger) (billing.Provider, error) {
	if cfg.Stripe.SecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY not set, checkout and subscription fetches will fail")
		return nil, nil
	}
	provider, err := billing.NewStripeProvider(cfg.Stripe.SecretKey)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func provideBillingService(db *gorm.DB, provider billing.Provider, cfg *config.Config, log *zap.Logger) *billing.Service {
	return billing.NewServiceFromDB(db, provider, billing.CheckoutConfig{
		PriceID:    cfg.Stripe.PriceID,
		SuccessURL: cfg.CheckoutSuccessURL(),
		CancelURL:  cfg.CheckoutCancelURL(),
	}, log)
}

func provideBillingController(svc *billing.Service, cfg *config.Config, log *zap.Logger) *controllers.BillingController {
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set, every webhook will be rejected")
	}
	return controllers.NewBillingController(svc, cfg.Stripe.WebhookSecret, log)
}

package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/billing"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/metrics"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usercontext"
)

const billingTimeout = 15 * time.Second

type BillingController struct {
	billing       *billing.Service
	webhookSecret string
	log           *zap.Logger
	now           func() time.Time
}

func NewBillingController(svc *billing.Service, webhookSecret string, log *zap.Logger) *BillingController {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingController{
		billing:       svc,
		webhookSecret: webhookSecret,
		log:           log.Named("billing_controller"),
		now:           time.Now,
	}
}

// HandleStripeWebhook verifies and applies a payment provider event. The
// signature is checked over the raw body before anything is parsed.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	if err := billing.VerifyStripeWebhookSignature(rawBody, signature, bc.webhookSecret); err != nil {
		bc.log.Warn("webhook signature verification failed", zap.Error(err))
		metrics.WebhookEventsCount.WithLabelValues("unknown", metrics.OutcomeInvalidSignature).Inc()
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidSignature, "Invalid signature")
	}

	ev, err := billing.ParseEvent(rawBody)
	if err != nil {
		bc.log.Warn("webhook payload rejected", zap.Error(err))
		metrics.WebhookEventsCount.WithLabelValues("unknown", metrics.OutcomeInvalidPayload).Inc()
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidPayload, "Invalid payload")
	}

	ctx, cancel := requestContext(c, billingTimeout)
	defer cancel()

	res, err := bc.billing.ApplyEvent(ctx, ev)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidPayload) {
			bc.log.Warn("webhook object rejected",
				zap.String("event_id", ev.ID), zap.String("event_type", ev.Type), zap.Error(err))
			metrics.WebhookEventsCount.WithLabelValues(ev.Type, metrics.OutcomeInvalidPayload).Inc()
			return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidPayload, "Invalid payload")
		}
		bc.log.Error("webhook processing failed",
			zap.String("event_id", ev.ID), zap.String("event_type", ev.Type), zap.Error(err))
		metrics.WebhookEventsCount.WithLabelValues(ev.Type, metrics.OutcomeError).Inc()
		return respondError(c, fiber.StatusInternalServerError, ErrCodeWebhookUnprocessed, "Webhook handler failed")
	}

	metrics.WebhookEventsCount.WithLabelValues(ev.Type, string(res.Action)).Inc()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleCreateCheckoutSession returns a hosted checkout URL for the caller.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	ctx, cancel := requestContext(c, billingTimeout)
	defer cancel()

	url, err := bc.billing.CreateCheckoutSession(ctx, userCtx.UserID)
	if err != nil {
		bc.log.Error("checkout session creation failed", zap.String("user_id", userCtx.UserID), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, ErrCodeUpstream, "Failed to create checkout session")
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleGetSubscription reports the caller's billing status from the local store.
func (bc *BillingController) HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	ctx, cancel := requestContext(c, billingTimeout)
	defer cancel()

	status, err := bc.billing.SubscriptionStatus(ctx, userCtx.UserID, bc.now())
	if err != nil {
		code := ErrCodeInternal
		if errors.Is(err, billing.ErrStoreUnavailable) {
			code = ErrCodeStoreUnavailable
		}
		bc.log.Error("subscription check failed", zap.String("user_id", userCtx.UserID), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, code, "Failed to check subscription")
	}
	return c.JSON(status)
}

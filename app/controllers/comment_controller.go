package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/billing"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/drafting"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/metrics"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usage"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usercontext"
)

const draftingTimeout = 45 * time.Second

type CommentController struct {
	drafting *drafting.Service
	meter    *usage.Meter
	billing  *billing.Service
	log      *zap.Logger
	now      func() time.Time
}

func NewCommentController(draftSvc *drafting.Service, meter *usage.Meter, billingSvc *billing.Service, log *zap.Logger) *CommentController {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentController{
		drafting: draftSvc,
		meter:    meter,
		billing:  billingSvc,
		log:      log.Named("comment_controller"),
		now:      time.Now,
	}
}

// HandleGenerateComment drafts an engagement comment for a post caption.
// Subscribers are not metered against the monthly limit.
func (cc *CommentController) HandleGenerateComment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	var req drafting.Request
	if err := c.BodyParser(&req); err != nil {
		metrics.CommentDraftsCount.WithLabelValues(metrics.OutcomeRejected).Inc()
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
	}
	if err := cc.drafting.Validate(&req); err != nil {
		metrics.CommentDraftsCount.WithLabelValues(metrics.OutcomeRejected).Inc()
		return respondError(c, fiber.StatusBadRequest, ErrCodeValidation, validationMessage(err))
	}

	ctx, cancel := requestContext(c, draftingTimeout)
	defer cancel()

	if !cc.isSubscribed(ctx, userCtx.UserID) {
		allowed, err := cc.meter.Allow(ctx, userCtx.UserID)
		if err != nil {
			// Metering is best effort; an unreachable cache does not block drafting.
			cc.log.Warn("usage check failed", zap.String("user_id", userCtx.UserID), zap.Error(err))
			allowed = true
		}
		if !allowed {
			metrics.CommentDraftsCount.WithLabelValues(metrics.OutcomeLimited).Inc()
			return respondError(c, fiber.StatusTooManyRequests, ErrCodeUsageLimit, "Monthly comment limit reached")
		}
	}

	start := time.Now()
	comment, err := cc.drafting.Draft(ctx, req)
	metrics.CommentDraftDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, drafting.ErrInvalidRequest) {
			metrics.CommentDraftsCount.WithLabelValues(metrics.OutcomeRejected).Inc()
			return respondError(c, fiber.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		}
		cc.log.Error("comment generation failed", zap.String("user_id", userCtx.UserID), zap.Error(err))
		metrics.CommentDraftsCount.WithLabelValues(metrics.OutcomeError).Inc()
		return respondError(c, fiber.StatusInternalServerError, ErrCodeUpstream, "Failed to generate comment")
	}

	if _, err := cc.meter.Increment(ctx, userCtx.UserID); err != nil {
		cc.log.Warn("usage increment failed", zap.String("user_id", userCtx.UserID), zap.Error(err))
	}
	metrics.CommentDraftsCount.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return c.JSON(fiber.Map{"comment": comment})
}

// HandleGetUsage reports the caller's drafted comments this month.
func (cc *CommentController) HandleGetUsage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	ctx, cancel := requestContext(c, billingTimeout)
	defer cancel()

	snap, err := cc.meter.Snapshot(ctx, userCtx.UserID, cc.isSubscribed(ctx, userCtx.UserID))
	if err != nil {
		cc.log.Error("usage lookup failed", zap.String("user_id", userCtx.UserID), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, ErrCodeInternal, "Failed to load usage")
	}
	return c.JSON(snap)
}

func (cc *CommentController) isSubscribed(ctx context.Context, userID string) bool {
	if cc.billing == nil {
		return false
	}
	status, err := cc.billing.SubscriptionStatus(ctx, userID, cc.now())
	if err != nil {
		if !errors.Is(err, billing.ErrStoreUnavailable) {
			cc.log.Warn("subscription lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return false
	}
	return status.IsSubscribed
}

func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

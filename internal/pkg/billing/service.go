package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ManuelReschke/InstaGrowth/app/models"
)

// CheckoutConfig holds the settings used when minting checkout sessions.
type CheckoutConfig struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// Service projects payment-provider events onto the local store and answers
// billing-status queries from it.
type Service struct {
	repo     Repository
	provider Provider
	checkout CheckoutConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a billing service. A nil repo means the store is not
// provisioned: webhooks are acknowledged without effect and reads fail with
// ErrStoreUnavailable. A nil provider makes provider calls fail with ErrUpstream.
func NewService(repo Repository, provider Provider, checkout CheckoutConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		checkout: checkout,
		log:      log.Named("billing"),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for events that carry no creation time.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle, which may be nil.
func NewServiceFromDB(db *gorm.DB, provider Provider, checkout CheckoutConfig, log *zap.Logger) *Service {
	var repo Repository
	if db != nil {
		repo = NewRepository(db)
	}
	return NewService(repo, provider, checkout, log)
}

// ApplyEvent applies a verified event. It is safe to call repeatedly with the
// same event.
func (s *Service) ApplyEvent(ctx context.Context, ev *Event) (Result, error) {
	if ev == nil {
		return Result{}, fmt.Errorf("%w: nil event", ErrInvalidPayload)
	}
	if s.repo == nil {
		s.log.Warn("billing store not configured, acknowledging event without effect",
			zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))
		return Result{Action: ActionStoreUnavailable, Reason: "store not configured"}, nil
	}

	var (
		res Result
		err error
	)
	switch ev.Type {
	case EventCheckoutSessionCompleted:
		res, err = s.applyCheckoutCompleted(ctx, ev)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		res, err = s.applySubscriptionUpdated(ctx, ev)
	case EventSubscriptionDeleted:
		res, err = s.applySubscriptionDeleted(ctx, ev)
	case EventInvoicePaymentFailed:
		res, err = s.applyPaymentFailed(ctx, ev)
	default:
		res = ignored("unhandled event type")
	}
	if err != nil {
		return Result{}, err
	}

	s.log.Info("webhook event processed",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("action", string(res.Action)),
		zap.String("reason", res.Reason))
	return res, nil
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, ev *Event) (Result, error) {
	session, err := DecodeCheckoutSession(ev.Object)
	if err != nil {
		return Result{}, err
	}
	if session.ClerkID == "" {
		return ignored("checkout session without correlation user id"), nil
	}

	user := models.NewUser(session.ClerkID, session.Email, session.CustomerID)
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return Result{}, fmt.Errorf("upsert user %s: %w", session.ClerkID, err)
	}
	if session.SubscriptionID == "" {
		return Result{Action: ActionApplied, Reason: "checkout session without subscription"}, nil
	}

	if s.provider == nil {
		return Result{}, fmt.Errorf("%w: provider not configured", ErrUpstream)
	}
	state, err := s.provider.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if state.ID == "" {
		state.ID = session.SubscriptionID
	}

	// Stamped with the event's provider time, not the local clock, so the
	// ordering guard compares instants from a single clock.
	if err := s.projectSubscription(ctx, state, &user.ID, s.eventTime(ev)); err != nil {
		return Result{}, err
	}
	return Result{Action: ActionApplied}, nil
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, ev *Event) (Result, error) {
	state, err := DecodeSubscription(ev.Object)
	if err != nil {
		return Result{}, err
	}

	var userID *uint
	if state.ClerkID != "" {
		user, err := s.repo.FindUserByClerkID(ctx, state.ClerkID)
		switch {
		case err == nil:
			userID = &user.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return Result{}, fmt.Errorf("lookup user %s: %w", state.ClerkID, err)
		}
	}

	if err := s.projectSubscription(ctx, state, userID, s.eventTime(ev)); err != nil {
		return Result{}, err
	}
	return Result{Action: ActionApplied}, nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, ev *Event) (Result, error) {
	state, err := DecodeSubscription(ev.Object)
	if err != nil {
		return Result{}, err
	}

	changed, err := s.repo.UpdateSubscriptionIfNewer(ctx, state.ID, s.eventTime(ev), SubscriptionUpdate{
		Status: models.SubscriptionStatusCanceled,
	})
	if err != nil {
		return Result{}, fmt.Errorf("cancel subscription %s: %w", state.ID, err)
	}
	if !changed {
		return ignored("no matching subscription with older state"), nil
	}
	return Result{Action: ActionApplied}, nil
}

func (s *Service) applyPaymentFailed(ctx context.Context, ev *Event) (Result, error) {
	invoice, err := DecodeInvoice(ev.Object)
	if err != nil {
		return Result{}, err
	}
	if invoice.SubscriptionID == "" {
		return ignored("invoice without subscription"), nil
	}

	changed, err := s.repo.UpdateSubscriptionIfNewer(ctx, invoice.SubscriptionID, s.eventTime(ev), SubscriptionUpdate{
		Status: models.SubscriptionStatusPastDue,
	})
	if err != nil {
		return Result{}, fmt.Errorf("mark subscription %s past due: %w", invoice.SubscriptionID, err)
	}
	if !changed {
		return ignored("no matching subscription with older state"), nil
	}
	return Result{Action: ActionApplied}, nil
}

// projectSubscription inserts the row when absent, otherwise applies the state
// only if it is not older than what the row already reflects.
func (s *Service) projectSubscription(ctx context.Context, state *SubscriptionState, userID *uint, at time.Time) error {
	status := models.NormalizeSubscriptionStatus(state.Status)
	sub := &models.Subscription{
		UserID:                 userID,
		StripeSubscriptionID:   state.ID,
		StripePriceID:          strings.TrimSpace(state.PriceID),
		StripeCurrentPeriodEnd: state.CurrentPeriodEnd,
		Status:                 status,
		LastEventAt:            &at,
	}
	created, err := s.repo.InsertSubscriptionIfAbsent(ctx, sub)
	if err != nil {
		return fmt.Errorf("insert subscription %s: %w", state.ID, err)
	}
	if created {
		return nil
	}

	if _, err := s.repo.UpdateSubscriptionIfNewer(ctx, state.ID, at, SubscriptionUpdate{
		Status:           status,
		PriceID:          sub.StripePriceID,
		CurrentPeriodEnd: state.CurrentPeriodEnd,
	}); err != nil {
		return fmt.Errorf("update subscription %s: %w", state.ID, err)
	}
	if userID != nil {
		if err := s.repo.LinkSubscriptionUser(ctx, state.ID, *userID); err != nil {
			return fmt.Errorf("link subscription %s: %w", state.ID, err)
		}
	}
	return nil
}

// SubscriptionStatus computes the billing status of a user at now.
func (s *Service) SubscriptionStatus(ctx context.Context, clerkID string, now time.Time) (*Status, error) {
	if s.repo == nil {
		return nil, ErrStoreUnavailable
	}
	id := strings.TrimSpace(clerkID)
	if id == "" {
		return nil, errors.New("clerk id is required")
	}

	user, err := s.repo.FindUserByClerkID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.FindCurrentSubscription(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Status{
		IsSubscribed: sub.IsActiveAt(now),
		Subscription: &SubscriptionStatus{
			Status:           sub.Status,
			CurrentPeriodEnd: sub.StripeCurrentPeriodEnd,
		},
	}, nil
}

// CreateCheckoutSession mints a hosted checkout URL carrying clerkID as
// correlation metadata.
func (s *Service) CreateCheckoutSession(ctx context.Context, clerkID string) (string, error) {
	id := strings.TrimSpace(clerkID)
	if id == "" {
		return "", errors.New("clerk id is required")
	}
	if s.provider == nil {
		return "", fmt.Errorf("%w: provider not configured", ErrUpstream)
	}

	url, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		ClerkID:    id,
		PriceID:    s.checkout.PriceID,
		SuccessURL: s.checkout.SuccessURL,
		CancelURL:  s.checkout.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return url, nil
}

func (s *Service) eventTime(ev *Event) time.Time {
	if ev.Created.IsZero() {
		return s.now().UTC().Truncate(time.Second)
	}
	return ev.Created.UTC().Truncate(time.Second)
}

func ignored(reason string) Result {
	return Result{Action: ActionIgnored, Reason: reason}
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Provider is the slice of the payment provider API the service depends on.
type Provider interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// StripeProvider implements Provider on top of the Stripe API client.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider creates a Stripe-backed provider for the given secret key.
func NewStripeProvider(secretKey string) (*StripeProvider, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	return &StripeProvider{api: client.New(key, nil)}, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe subscription lookup %s: %w", id, err)
	}
	return subscriptionStateFromStripe(sub), nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if strings.TrimSpace(req.ClerkID) == "" || strings.TrimSpace(req.PriceID) == "" {
		return "", errors.New("clerk id and price id are required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ClerkID),
		// Subscription events carry the correlation id too, so rows created
		// from customer.subscription.* can be linked before checkout completes.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{CorrelationUserIDKey: req.ClerkID},
		},
	}
	params.Context = ctx
	params.AddMetadata(CorrelationUserIDKey, req.ClerkID)

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session: %w", err)
	}
	if strings.TrimSpace(session.URL) == "" {
		return "", errors.New("stripe checkout session returned empty url")
	}
	return session.URL, nil
}

func subscriptionStateFromStripe(sub *stripe.Subscription) *SubscriptionState {
	out := &SubscriptionState{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Metadata != nil {
		out.ClerkID = strings.TrimSpace(sub.Metadata[CorrelationUserIDKey])
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil && item.Price.ID != "" {
				out.PriceID = item.Price.ID
				break
			}
		}
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	return out
}

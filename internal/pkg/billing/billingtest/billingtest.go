// Package billingtest provides fakes and helpers for tests that drive the
// billing webhook path.
package billingtest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/billing"
)

// SignPayload builds a Stripe-Signature header for payload signed at ts.
func SignPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// Provider is an in-memory billing.Provider.
type Provider struct {
	mu sync.Mutex

	Subscriptions map[string]*billing.SubscriptionState
	GetErr        error
	GetCalls      int

	CheckoutURL   string
	CheckoutErr   error
	CheckoutCalls []billing.CheckoutRequest
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{Subscriptions: map[string]*billing.SubscriptionState{}}
}

// Put registers the state returned by GetSubscription for state.ID.
func (p *Provider) Put(state billing.SubscriptionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := state
	p.Subscriptions[state.ID] = &s
}

func (p *Provider) GetSubscription(_ context.Context, subscriptionID string) (*billing.SubscriptionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetCalls++
	if p.GetErr != nil {
		return nil, p.GetErr
	}
	s, ok := p.Subscriptions[subscriptionID]
	if !ok {
		return nil, errors.New("no such subscription: " + subscriptionID)
	}
	out := *s
	return &out, nil
}

func (p *Provider) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CheckoutCalls = append(p.CheckoutCalls, req)
	if p.CheckoutErr != nil {
		return "", p.CheckoutErr
	}
	return p.CheckoutURL, nil
}

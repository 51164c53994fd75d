package billing

import (
	"encoding/json"
	"time"
)

// Stripe event types the synchronizer applies. Anything else is acknowledged
// and ignored.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// CorrelationUserIDKey is the metadata key carrying the identity-provider user
// id on checkout sessions and subscriptions created by this service.
const CorrelationUserIDKey = "userId"

// Event is the verified webhook envelope. Object holds the raw data.object
// payload, decoded lazily per event type.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
}

// CheckoutSession is the subset of a checkout session the synchronizer reads.
type CheckoutSession struct {
	ID             string
	ClerkID        string
	CustomerID     string
	Email          string
	SubscriptionID string
}

// SubscriptionState is the provider-agnostic shape of a subscription, either
// decoded from an event payload or fetched from the provider.
type SubscriptionState struct {
	ID               string
	CustomerID       string
	ClerkID          string
	PriceID          string
	Status           string
	CurrentPeriodEnd *time.Time
}

// Invoice is the subset of an invoice the synchronizer reads.
type Invoice struct {
	ID             string
	SubscriptionID string
}

// CheckoutRequest describes a hosted checkout session to create.
type CheckoutRequest struct {
	ClerkID    string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// Action describes what applying an event did to the store.
type Action string

const (
	ActionApplied          Action = "applied"
	ActionIgnored          Action = "ignored"
	ActionStoreUnavailable Action = "store_unavailable"
)

// Result is returned by Service.ApplyEvent.
type Result struct {
	Action Action
	Reason string
}

// Status is the billing-status view returned to the dashboard.
type Status struct {
	IsSubscribed bool                `json:"isSubscribed"`
	Subscription *SubscriptionStatus `json:"subscription"`
}

// SubscriptionStatus is the public part of the current subscription row.
type SubscriptionStatus struct {
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ParseEvent decodes a verified webhook body into an Event envelope.
func ParseEvent(payload []byte) (*Event, error) {
	type rawEvent struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}

	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	eventType := strings.TrimSpace(raw.Type)
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}

	ev := &Event{
		ID:     strings.TrimSpace(raw.ID),
		Type:   eventType,
		Object: raw.Data.Object,
	}
	if raw.Created > 0 {
		ev.Created = time.Unix(raw.Created, 0).UTC()
	}
	return ev, nil
}

// DecodeCheckoutSession reads the checkout session fields the synchronizer needs.
func DecodeCheckoutSession(object json.RawMessage) (*CheckoutSession, error) {
	type rawSession struct {
		ID              string            `json:"id"`
		Customer        json.RawMessage   `json:"customer"`
		CustomerEmail   string            `json:"customer_email"`
		CustomerDetails *struct {
			Email string `json:"email"`
		} `json:"customer_details"`
		Metadata     map[string]string `json:"metadata"`
		Subscription json.RawMessage   `json:"subscription"`
	}

	var raw rawSession
	if err := decodeObject(object, &raw); err != nil {
		return nil, err
	}

	out := &CheckoutSession{
		ID:             strings.TrimSpace(raw.ID),
		ClerkID:        strings.TrimSpace(raw.Metadata[CorrelationUserIDKey]),
		CustomerID:     expandableID(raw.Customer),
		Email:          strings.TrimSpace(raw.CustomerEmail),
		SubscriptionID: expandableID(raw.Subscription),
	}
	if raw.CustomerDetails != nil && strings.TrimSpace(raw.CustomerDetails.Email) != "" {
		out.Email = strings.TrimSpace(raw.CustomerDetails.Email)
	}
	return out, nil
}

// DecodeSubscription reads a subscription object. Both the legacy payload
// (current_period_end on the subscription) and the newer one (on each item)
// are accepted.
func DecodeSubscription(object json.RawMessage) (*SubscriptionState, error) {
	type rawPrice struct {
		ID string `json:"id"`
	}
	type rawSubscription struct {
		ID               string            `json:"id"`
		Customer         json.RawMessage   `json:"customer"`
		Status           string            `json:"status"`
		CurrentPeriodEnd int64             `json:"current_period_end"`
		Metadata         map[string]string `json:"metadata"`
		Plan             *rawPrice         `json:"plan"`
		Items            struct {
			Data []struct {
				Price            *rawPrice `json:"price"`
				Plan             *rawPrice `json:"plan"`
				CurrentPeriodEnd int64     `json:"current_period_end"`
			} `json:"data"`
		} `json:"items"`
	}

	var raw rawSubscription
	if err := decodeObject(object, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, fmt.Errorf("%w: subscription payload missing id", ErrInvalidPayload)
	}

	out := &SubscriptionState{
		ID:         strings.TrimSpace(raw.ID),
		CustomerID: expandableID(raw.Customer),
		ClerkID:    strings.TrimSpace(raw.Metadata[CorrelationUserIDKey]),
		Status:     strings.TrimSpace(raw.Status),
	}

	periodEnd := raw.CurrentPeriodEnd
	for _, item := range raw.Items.Data {
		if out.PriceID == "" && item.Price != nil {
			out.PriceID = strings.TrimSpace(item.Price.ID)
		}
		if out.PriceID == "" && item.Plan != nil {
			out.PriceID = strings.TrimSpace(item.Plan.ID)
		}
		if periodEnd == 0 && item.CurrentPeriodEnd > 0 {
			periodEnd = item.CurrentPeriodEnd
		}
	}
	if out.PriceID == "" && raw.Plan != nil {
		out.PriceID = strings.TrimSpace(raw.Plan.ID)
	}
	if periodEnd > 0 {
		t := time.Unix(periodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	return out, nil
}

// DecodeInvoice reads the invoice id and the subscription it belongs to, if any.
func DecodeInvoice(object json.RawMessage) (*Invoice, error) {
	type rawInvoice struct {
		ID           string          `json:"id"`
		Subscription json.RawMessage `json:"subscription"`
		Parent       *struct {
			SubscriptionDetails *struct {
				Subscription json.RawMessage `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
	}

	var raw rawInvoice
	if err := decodeObject(object, &raw); err != nil {
		return nil, err
	}

	out := &Invoice{
		ID:             strings.TrimSpace(raw.ID),
		SubscriptionID: expandableID(raw.Subscription),
	}
	if out.SubscriptionID == "" && raw.Parent != nil && raw.Parent.SubscriptionDetails != nil {
		out.SubscriptionID = expandableID(raw.Parent.SubscriptionDetails.Subscription)
	}
	return out, nil
}

func decodeObject(object json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(object)) == 0 {
		return fmt.Errorf("%w: missing data.object", ErrInvalidPayload)
	}
	if err := json.Unmarshal(object, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// expandableID returns the id of a Stripe expandable field, which is either a
// plain string id or an expanded object carrying an "id" member.
func expandableID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}

var (
	// ErrInvalidSignature marks a webhook whose signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload marks a verified webhook body that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrUpstream marks a failed call to the payment provider.
	ErrUpstream = errors.New("payment provider request failed")
	// ErrStoreUnavailable marks a read that needs the store when none is provisioned.
	ErrStoreUnavailable = errors.New("billing store is not configured")
)

package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76/webhook"
)

// VerifyStripeWebhookSignature checks the Stripe-Signature header against the
// raw, unparsed request body. It must run before any decoding of payload.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string) error {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	if secret == "" {
		return fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayload(payload, sig, secret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the "error" field of JSON error bodies.
const (
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidSignature   = "invalid_signature"
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUpstream           = "upstream_failure"
	ErrCodeStoreUnavailable   = "store_unavailable"
	ErrCodeInternal           = "internal_server_error"
	ErrCodeUsageLimit         = "usage_limit_reached"
	ErrCodeAccountLimit       = "account_limit_reached"
	ErrCodeWebhookUnprocessed = "webhook_processing_failed"
)

func respondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// requestContext bounds outbound calls made on behalf of c.
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), timeout)
}

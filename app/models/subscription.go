package models

import (
	"strings"
	"time"
)

const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusPaused            = "paused"
)

// Subscription mirrors a Stripe subscription. The row keyed by
// StripeSubscriptionID always carries the state of the newest event applied to
// it; LastEventAt records that event's provider timestamp.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 *uint      `gorm:"index" json:"user_id,omitempty"`
	StripeSubscriptionID   string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_stripe_id" json:"stripe_subscription_id"`
	StripePriceID          string     `gorm:"type:varchar(191);default:''" json:"stripe_price_id"`
	StripeCurrentPeriodEnd *time.Time `gorm:"type:timestamp;default:null" json:"stripe_current_period_end,omitempty"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	LastEventAt            *time.Time `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizeSubscriptionStatus lowercases and trims a provider status. Unknown
// values are kept verbatim; an empty value becomes "incomplete".
func NormalizeSubscriptionStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return SubscriptionStatusIncomplete
	}
	return s
}

// IsActiveAt reports whether the subscription grants access at now: the
// status must be exactly "active" and the period end strictly after now.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	if s == nil || s.StripeCurrentPeriodEnd == nil {
		return false
	}
	return s.Status == SubscriptionStatusActive && s.StripeCurrentPeriodEnd.After(now)
}

package models

import (
	"strings"
	"time"
)

// User mirrors an identity-provider subject that completed a checkout at
// least once. Rows are created and updated by webhook synchronization only.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ClerkID          string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_users_clerk_id" json:"clerk_id"`
	Email            string         `gorm:"type:varchar(200);default:''" json:"email"`
	StripeCustomerID string         `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	Subscriptions    []Subscription `gorm:"foreignKey:UserID" json:"subscriptions,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewUser builds a user row from identity and payment-provider references.
// Empty optional values mean "unknown" and are never written over stored ones.
func NewUser(clerkID, email, stripeCustomerID string) *User {
	return &User{
		ClerkID:          strings.TrimSpace(clerkID),
		Email:            strings.TrimSpace(email),
		StripeCustomerID: strings.TrimSpace(stripeCustomerID),
	}
}

package billing

import (
	"context"
	"time"

	"github.com/ManuelReschke/InstaGrowth/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionUpdate lists the columns an event may change. Zero values are
// left untouched, except Status which is always written.
type SubscriptionUpdate struct {
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
}

// Repository provides DB operations used by the billing service. Every write
// is a single keyed statement so concurrent deliveries cannot lose updates.
type Repository interface {
	UpsertUser(ctx context.Context, user *models.User) error
	FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	InsertSubscriptionIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error)
	UpdateSubscriptionIfNewer(ctx context.Context, stripeSubscriptionID string, eventAt time.Time, update SubscriptionUpdate) (bool, error)
	LinkSubscriptionUser(ctx context.Context, stripeSubscriptionID string, userID uint) error
	FindCurrentSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) UpsertUser(ctx context.Context, user *models.User) error {
	// Only overwrite optional columns when the event actually carries them.
	updates := []string{"updated_at"}
	if user.Email != "" {
		updates = append(updates, "email")
	}
	if user.StripeCustomerID != "" {
		updates = append(updates, "stripe_customer_id")
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(user).Error; err != nil {
		return err
	}

	// Ensure ID and stored values are populated after upsert.
	var stored models.User
	if err := r.db.WithContext(ctx).Where("clerk_id = ?", user.ClerkID).First(&stored).Error; err != nil {
		return err
	}
	*user = stored
	return nil
}

func (r *gormRepository) FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) InsertSubscriptionIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) UpdateSubscriptionIfNewer(ctx context.Context, stripeSubscriptionID string, eventAt time.Time, update SubscriptionUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":        update.Status,
		"last_event_at": eventAt,
	}
	if update.PriceID != "" {
		values["stripe_price_id"] = update.PriceID
	}
	if update.CurrentPeriodEnd != nil {
		values["stripe_current_period_end"] = *update.CurrentPeriodEnd
	}

	q := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Where("(last_event_at IS NULL OR last_event_at <= ?)", eventAt)
	// Stripe never reactivates a canceled subscription, so equal timestamps
	// cannot move a row out of canceled.
	if update.Status != models.SubscriptionStatusCanceled {
		q = q.Where("status <> ?", models.SubscriptionStatusCanceled)
	}
	tx := q.Updates(values)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) LinkSubscriptionUser(ctx context.Context, stripeSubscriptionID string, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Update("user_id", userID).Error
}

func (r *gormRepository) FindCurrentSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("CASE WHEN stripe_current_period_end IS NULL THEN 1 ELSE 0 END").
		Order("stripe_current_period_end DESC").
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

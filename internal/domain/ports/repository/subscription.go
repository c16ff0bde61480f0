package repository

import (
	"context"

	"dating-subscription-payments/internal/domain/model"
)

// SubscriptionRepository is the port for user entitlements.
type SubscriptionRepository interface {
	// Upsert inserts the subscription, or overwrites tier/benefits/window on
	// conflict with the user's existing row (one row per user).
	Upsert(ctx context.Context, tx Tx, sub *model.Subscription) error

	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

// Upsert keeps at most one row per user: a conflict on user_id overwrites
// tier, benefits and the validity window in place (renewal semantics).
func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, tier, daily_messages_limit, visibility_boost, advanced_insights, starts_at, expires_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (user_id) DO UPDATE SET
  tier=$3, daily_messages_limit=$4, visibility_boost=$5, advanced_insights=$6,
  starts_at=$7, expires_at=$8, updated_at=$10;`
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.Tier, s.DailyMessagesLimit, s.VisibilityBoost, s.AdvancedInsights,
		s.StartsAt, s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `SELECT id, user_id, tier, daily_messages_limit, visibility_boost, advanced_insights, starts_at, expires_at, created_at, updated_at FROM subscriptions WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}

	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.Tier, &s.DailyMessagesLimit, &s.VisibilityBoost,
		&s.AdvancedInsights, &s.StartsAt, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

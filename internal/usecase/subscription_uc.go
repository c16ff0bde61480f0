// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/repository"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// Activate grants the tier's benefits to the user: first successful
	// payment inserts the row, later ones overwrite tier, benefits and the
	// 30-day window. Benefits come from the static tier table only, never
	// from anything the client sent.
	Activate(ctx context.Context, userID string, tier model.Tier) (*model.Subscription, error)
	FindByUser(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs  repository.SubscriptionRepository
	log   *zerolog.Logger
	newID func() string
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, log: logger, newID: uuid.NewString}
}

func (u *subscriptionUC) Activate(ctx context.Context, userID string, tier model.Tier) (*model.Subscription, error) {
	existing, err := u.subs.FindByUser(ctx, nil, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var sub *model.Subscription
	if existing != nil {
		existing.Renew(tier)
		sub = existing
	} else {
		sub, err = model.NewSubscription(u.newID(), userID, tier)
		if err != nil {
			return nil, err
		}
	}

	if err := u.subs.Upsert(ctx, nil, sub); err != nil {
		u.log.Error().Err(err).Str("user_id", userID).Msg("subscription upsert failed")
		return nil, err
	}

	u.log.Info().Str("user_id", userID).Str("tier", string(tier)).
		Time("expires_at", sub.ExpiresAt).Msg("subscription activated")
	return sub, nil
}

func (u *subscriptionUC) FindByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.subs.FindByUser(ctx, nil, userID)
}

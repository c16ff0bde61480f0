package model

import (
	"time"

	"dating-subscription-payments/internal/domain"
)

// SubscriptionDuration is how long every paid activation lasts. Activation is
// a renewal/replace model: the window always restarts from the payment moment.
const SubscriptionDuration = 30 * 24 * time.Hour

// TierBenefits is what a tier entitles a user to. Values come from the static
// table below, never from client input.
type TierBenefits struct {
	DailyMessages    int
	VisibilityBoost  int // percentage
	AdvancedInsights bool
}

var tierBenefits = map[Tier]TierBenefits{
	TierFree:    {DailyMessages: 5, VisibilityBoost: 0, AdvancedInsights: false},
	TierBasic:   {DailyMessages: 25, VisibilityBoost: 50, AdvancedInsights: false},
	TierPremium: {DailyMessages: 100, VisibilityBoost: 100, AdvancedInsights: true},
}

// BenefitsFor returns the benefit row for a tier. Unknown tiers fall back to
// the free tier's benefits.
func BenefitsFor(tier Tier) TierBenefits {
	if b, ok := tierBenefits[tier]; ok {
		return b
	}
	return tierBenefits[TierFree]
}

// Subscription is a user's current entitlement. There is at most one row per
// user; every successful payment overwrites it in place.
type Subscription struct {
	ID                 string // UUID
	UserID             string // unique
	Tier               Tier
	DailyMessagesLimit int
	VisibilityBoost    int
	AdvancedInsights   bool
	StartsAt           time.Time
	ExpiresAt          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewSubscription constructs an active subscription starting now.
func NewSubscription(id, userID string, tier Tier) (*Subscription, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	b := BenefitsFor(tier)
	return &Subscription{
		ID:                 id,
		UserID:             userID,
		Tier:               tier,
		DailyMessagesLimit: b.DailyMessages,
		VisibilityBoost:    b.VisibilityBoost,
		AdvancedInsights:   b.AdvancedInsights,
		StartsAt:           now,
		ExpiresAt:          now.Add(SubscriptionDuration),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Renew overwrites tier, benefits and the validity window from now. Remaining
// time on a previous subscription is discarded.
func (s *Subscription) Renew(tier Tier) {
	now := time.Now()
	b := BenefitsFor(tier)
	s.Tier = tier
	s.DailyMessagesLimit = b.DailyMessages
	s.VisibilityBoost = b.VisibilityBoost
	s.AdvancedInsights = b.AdvancedInsights
	s.StartsAt = now
	s.ExpiresAt = now.Add(SubscriptionDuration)
	s.UpdatedAt = now
}

// Active reports whether the subscription window covers t.
func (s *Subscription) Active(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.ExpiresAt)
}

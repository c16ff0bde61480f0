package model

import (
	"time"

	"dating-subscription-payments/internal/domain"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // recorded, awaiting provider outcome
	TransactionStatusCompleted TransactionStatus = "completed" // provider confirmed the payment
	TransactionStatusFailed    TransactionStatus = "failed"    // provider rejected or the payer declined
)

// IsTerminal reports whether the status admits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type Provider string

const (
	ProviderMpesa  Provider = "mpesa"
	ProviderAirtel Provider = "airtel"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// ValidPurchaseTier reports whether t can be bought. Free is never purchasable.
func ValidPurchaseTier(t Tier) bool {
	return t == TierBasic || t == TierPremium
}

// Transaction is the ledger entry for one payment attempt. It is created in
// `pending` before any outbound provider call, moves to exactly one terminal
// status, and is never deleted.
type Transaction struct {
	ID     string // UUID
	UserID string
	Amount int64 // KES, whole units
	Tier   Tier
	// ProviderTransactionID is the correlation id matching a provider callback
	// back to this row. M-Pesa assigns it mid-flow (CheckoutRequestID); for
	// Airtel we generate it locally before the collection request.
	ProviderTransactionID string
	Provider              Provider
	PhoneNumber           string // normalized to the provider's required shape
	Currency              string // "KES"
	Status                TransactionStatus
	Metadata              map[string]any // raw provider fragments, kept for audit (JSONB)
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewTransaction validates and constructs a pending ledger entry.
func NewTransaction(id, userID string, amount int64, tier Tier, provider Provider, phoneNumber string) (*Transaction, error) {
	if id == "" || userID == "" || phoneNumber == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if !ValidPurchaseTier(tier) {
		return nil, domain.ErrInvalidArgument
	}
	if provider != ProviderMpesa && provider != ProviderAirtel {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Transaction{
		ID:          id,
		UserID:      userID,
		Amount:      amount,
		Tier:        tier,
		Provider:    provider,
		PhoneNumber: phoneNumber,
		Currency:    "KES",
		Status:      TransactionStatusPending,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

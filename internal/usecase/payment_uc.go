// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
	"dating-subscription-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// InitiationResult is the synchronous outcome of a payment initiation. The
// final success/failure arrives later on the callback endpoint; callers poll
// the transaction instead of waiting.
type InitiationResult struct {
	TransactionID string
	CorrelationID string
	Message       string
	Sandbox       bool
}

type PaymentUseCase interface {
	// Initiate validates inputs, records a pending ledger entry, and drives
	// the provider gateway. Exactly one transaction row is created per call
	// that passes validation.
	Initiate(ctx context.Context, provider model.Provider, phoneNumber string, amount int64, tier model.Tier, userID string) (*InitiationResult, error)
	// FindTransaction reads one ledger entry for status polling.
	FindTransaction(ctx context.Context, id string) (*model.Transaction, error)
}

type paymentUC struct {
	transactions repository.TransactionRepository
	gateways     map[model.Provider]adapter.PaymentGateway
	log          *zerolog.Logger
	newID        func() string // transaction primary keys
	newRef       func() string // locally generated correlation references
}

func NewPaymentUseCase(
	transactions repository.TransactionRepository,
	gateways map[model.Provider]adapter.PaymentGateway,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		transactions: transactions,
		gateways:     gateways,
		log:          logger,
		newID:        uuid.NewString,
		newRef:       NewCorrelationRef,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, provider model.Provider, phoneNumber string, amount int64, tier model.Tier, userID string) (*InitiationResult, error) {
	if phoneNumber == "" || amount <= 0 || tier == "" || userID == "" {
		return nil, domain.ErrMissingFields
	}
	if !model.ValidPurchaseTier(tier) {
		return nil, fmt.Errorf("%w: tier %q", domain.ErrInvalidArgument, tier)
	}
	gw, ok := u.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrInvalidArgument, provider)
	}

	phone, err := gw.NormalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	// The ledger entry goes in first so every attempt is auditable, even ones
	// that never reach the provider.
	tx, err := model.NewTransaction(u.newID(), userID, amount, tier, provider, phone)
	if err != nil {
		return nil, err
	}
	ref := u.accountReference(tx)
	if provider == model.ProviderAirtel {
		// Airtel matches its callback on our reference, so it must be on the
		// row before the collection request leaves the process.
		tx.ProviderTransactionID = ref
	}
	if err := u.transactions.Create(ctx, nil, tx); err != nil {
		u.log.Error().Err(err).Str("user_id", userID).Msg("create transaction failed")
		return nil, fmt.Errorf("%w: create transaction: %v", domain.ErrOperationFailed, err)
	}

	result, err := gw.Collect(ctx, adapter.CollectRequest{
		PhoneNumber: phone,
		Amount:      amount,
		Reference:   ref,
		Description: fmt.Sprintf("%s subscription payment", tier),
	})
	if err != nil {
		return nil, u.recordInitiationFailure(ctx, tx, err)
	}

	if result.Sandbox {
		// Credentials absent: the gateway simulated acceptance without any
		// network call. The transaction intentionally stays pending; no
		// callback will ever arrive for it.
		u.log.Info().Str("transaction_id", tx.ID).Str("provider", string(provider)).
			Msg("sandbox initiation acknowledged")
		return &InitiationResult{
			TransactionID: tx.ID,
			CorrelationID: result.CorrelationID,
			Message:       "Payment initiated (sandbox mode - credentials not configured)",
			Sandbox:       true,
		}, nil
	}

	if err := u.transactions.SetCorrelation(ctx, nil, tx.ID, result.CorrelationID, result.Metadata); err != nil {
		// The push is already on the payer's phone; losing the correlation id
		// would orphan the callback, so this is surfaced as a server error.
		u.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("persist correlation id failed")
		return nil, fmt.Errorf("%w: persist correlation id: %v", domain.ErrOperationFailed, err)
	}

	u.log.Info().Str("transaction_id", tx.ID).Str("provider", string(provider)).
		Str("correlation_id", result.CorrelationID).Int64("amount", amount).
		Msg("payment initiated")

	return &InitiationResult{
		TransactionID: tx.ID,
		CorrelationID: result.CorrelationID,
		Message:       initiationMessage(provider),
	}, nil
}

// recordInitiationFailure marks the pending transaction failed and keeps the
// provider's response for audit before propagating the error.
func (u *paymentUC) recordInitiationFailure(ctx context.Context, tx *model.Transaction, cause error) error {
	patch := map[string]any{"error": cause.Error()}
	if rej, ok := domain.AsGatewayRejection(cause); ok {
		for k, v := range rej.Raw {
			patch[k] = v
		}
	}
	if _, err := u.transactions.TransitionIfPending(ctx, nil, tx.ID, model.TransactionStatusFailed, patch); err != nil {
		u.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("mark transaction failed errored")
	}
	u.log.Warn().Err(cause).Str("transaction_id", tx.ID).Str("provider", string(tx.Provider)).
		Msg("payment initiation failed")
	return cause
}

// accountReference builds the provider-facing reference for a transaction.
func (u *paymentUC) accountReference(tx *model.Transaction) string {
	if tx.Provider == model.ProviderAirtel {
		return u.newRef()
	}
	return "DSP-" + tx.ID[:8]
}

func initiationMessage(p model.Provider) string {
	if p == model.ProviderMpesa {
		return "STK Push sent. Please check your phone and enter your M-Pesa PIN."
	}
	return "Payment request sent. Please check your phone and approve the payment."
}

func (u *paymentUC) FindTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.transactions.FindByID(ctx, nil, id)
}

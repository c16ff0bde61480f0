// File: internal/usecase/callback_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/repository"
)

var _ CallbackUseCase = (*callbackUC)(nil)

// CallbackAck is the provider-specific acknowledgment envelope. It is
// returned for every recognized callback regardless of internal outcome, so
// the provider never classifies the acknowledgment itself as failed and
// schedules pointless re-deliveries.
type CallbackAck struct {
	Provider model.Provider
	Body     map[string]any
}

func mpesaAck() CallbackAck {
	return CallbackAck{
		Provider: model.ProviderMpesa,
		Body:     map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"},
	}
}

func airtelAck() CallbackAck {
	return CallbackAck{
		Provider: model.ProviderAirtel,
		Body:     map[string]any{"status": "received"},
	}
}

// CallbackDeduper is an optional fast-path marker for already-processed
// callbacks. It is advisory only; the ledger's compare-and-set remains the
// correctness boundary under concurrent re-delivery.
type CallbackDeduper interface {
	Seen(ctx context.Context, provider model.Provider, correlationID string) (bool, error)
	Mark(ctx context.Context, provider model.Provider, correlationID string) error
}

type CallbackUseCase interface {
	// Handle reconciles one inbound webhook payload. It returns
	// domain.ErrUnknownCallback (before any ledger access) for payloads of
	// unrecognized shape; every other internal outcome is absorbed and
	// acknowledged with the provider's expected envelope.
	Handle(ctx context.Context, raw []byte) (CallbackAck, error)
}

type callbackUC struct {
	transactions repository.TransactionRepository
	subs         SubscriptionUseCase
	dedupe       CallbackDeduper // nil disables the fast path
	log          *zerolog.Logger
}

func NewCallbackUseCase(
	transactions repository.TransactionRepository,
	subs SubscriptionUseCase,
	dedupe CallbackDeduper,
	logger *zerolog.Logger,
) *callbackUC {
	return &callbackUC{transactions: transactions, subs: subs, dedupe: dedupe, log: logger}
}

func (u *callbackUC) Handle(ctx context.Context, raw []byte) (CallbackAck, error) {
	cb, err := model.ParseCallback(raw)
	if err != nil {
		u.log.Warn().Msg("unknown callback format")
		return CallbackAck{}, err
	}

	provider := cb.Provider()
	corrID := cb.CorrelationID()
	ack := mpesaAck()
	if provider == model.ProviderAirtel {
		ack = airtelAck()
	}

	if u.dedupe != nil {
		if seen, err := u.dedupe.Seen(ctx, provider, corrID); err == nil && seen {
			return ack, nil
		}
	}

	tx, err := u.transactions.FindByCorrelation(ctx, nil, provider, corrID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Stale or foreign callback. Acknowledge so the provider stops
			// retrying a transaction this system never created.
			u.log.Warn().Str("provider", string(provider)).Str("correlation_id", corrID).
				Msg("callback for unknown transaction")
			return ack, nil
		}
		u.log.Error().Err(err).Str("correlation_id", corrID).Msg("callback lookup failed")
		return ack, nil
	}

	if cb.Mpesa != nil {
		u.reconcileMpesa(ctx, tx, cb.Mpesa)
	} else {
		u.reconcileAirtel(ctx, tx, cb.Airtel)
	}
	return ack, nil
}

func (u *callbackUC) reconcileMpesa(ctx context.Context, tx *model.Transaction, cb *model.MpesaCallback) {
	stk := cb.Body.StkCallback
	if stk.ResultCode == 0 {
		patch := map[string]any{"ResultDesc": stk.ResultDesc}
		for _, item := range cb.Items() {
			patch[item.Name] = item.Value
		}
		u.complete(ctx, tx, patch)
		return
	}
	u.fail(ctx, tx, map[string]any{
		"ResultCode": stk.ResultCode,
		"ResultDesc": stk.ResultDesc,
	})
}

func (u *callbackUC) reconcileAirtel(ctx context.Context, tx *model.Transaction, cb *model.AirtelCallback) {
	t := cb.Transaction
	patch := map[string]any{
		"airtel_money_id": t.AirtelMoneyID,
		"message":         t.Message,
	}
	switch t.StatusCode {
	case model.AirtelStatusSuccess:
		u.complete(ctx, tx, patch)
	case model.AirtelStatusFailed:
		u.fail(ctx, tx, patch)
	default:
		// TP: still processing on the provider side, a later callback will
		// carry the final status.
		u.log.Debug().Str("transaction_id", tx.ID).Str("status_code", t.StatusCode).
			Msg("airtel callback pending, awaiting final status")
	}
}

// complete moves the transaction to `completed` and activates the
// subscription only when this call actually won the transition; re-delivered
// or out-of-order callbacks find the row terminal and do nothing.
func (u *callbackUC) complete(ctx context.Context, tx *model.Transaction, patch map[string]any) {
	won, err := u.transactions.TransitionIfPending(ctx, nil, tx.ID, model.TransactionStatusCompleted, patch)
	if err != nil {
		u.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("complete transition failed")
		return
	}
	if !won {
		u.log.Info().Str("transaction_id", tx.ID).Msg("callback for terminal transaction ignored")
		return
	}

	u.log.Info().Str("transaction_id", tx.ID).Str("user_id", tx.UserID).
		Str("tier", string(tx.Tier)).Msg("payment completed")

	if _, err := u.subs.Activate(ctx, tx.UserID, tx.Tier); err != nil {
		// The ledger already says completed; activation is retried by
		// support tooling, not by replaying the payment.
		u.log.Error().Err(err).Str("transaction_id", tx.ID).Str("user_id", tx.UserID).
			Msg("subscription activation failed after completed payment")
	}
	u.mark(ctx, tx)
}

func (u *callbackUC) fail(ctx context.Context, tx *model.Transaction, patch map[string]any) {
	won, err := u.transactions.TransitionIfPending(ctx, nil, tx.ID, model.TransactionStatusFailed, patch)
	if err != nil {
		u.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("fail transition failed")
		return
	}
	if !won {
		u.log.Info().Str("transaction_id", tx.ID).Msg("callback for terminal transaction ignored")
		return
	}
	u.log.Info().Str("transaction_id", tx.ID).Msg("payment failed")
	u.mark(ctx, tx)
}

func (u *callbackUC) mark(ctx context.Context, tx *model.Transaction) {
	if u.dedupe == nil {
		return
	}
	if err := u.dedupe.Mark(ctx, tx.Provider, tx.ProviderTransactionID); err != nil {
		u.log.Debug().Err(err).Str("transaction_id", tx.ID).Msg("dedupe mark failed")
	}
}

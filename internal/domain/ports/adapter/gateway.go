package adapter

import (
	"context"

	"dating-subscription-payments/internal/domain/model"
)

// CollectRequest asks a provider to prompt the payer's phone for approval.
type CollectRequest struct {
	PhoneNumber string // already normalized to the provider's required shape
	Amount      int64  // KES, whole units
	// Reference is the correlation id chosen at initiation time. M-Pesa
	// ignores it for matching (it assigns its own CheckoutRequestID); Airtel
	// echoes it back in the callback.
	Reference   string
	Description string
}

// CollectResult is a provider's synchronous acceptance of a collection
// request. The asynchronous outcome arrives later on the callback endpoint.
type CollectResult struct {
	// CorrelationID is what the provider will use in its callback to refer to
	// this request.
	CorrelationID string
	// Metadata holds provider response fragments worth keeping on the ledger
	// entry (e.g. MerchantRequestID).
	Metadata map[string]any
	// Sandbox marks a simulated acceptance from the sandbox gateway.
	Sandbox bool
}

// PaymentGateway is the hex port for mobile-money providers.
//
// Collect performs exactly one token request and one collection request; it
// never retries (a duplicate STK push would prompt the customer twice).
// Errors:
//   - *domain.GatewayRejection: the provider refused the request synchronously
//   - domain.ErrGatewayUnavailable (wrapped): network failure or non-2xx
type PaymentGateway interface {
	Provider() model.Provider

	// NormalizePhone strips whitespace and formatting and resolves the number
	// to the provider's canonical shape, or domain.ErrInvalidPhoneNumber.
	NormalizePhone(raw string) (string, error)

	Collect(ctx context.Context, req CollectRequest) (CollectResult, error)
}

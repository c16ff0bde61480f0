package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingFields      = errors.New("missing required fields: phoneNumber, amount, tier, userId")
	ErrInvalidPhoneNumber = errors.New("invalid phone number format")
	ErrNotConfigured      = errors.New("provider credentials not configured")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnknownCallback    = errors.New("unknown callback format")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// GatewayRejection carries a provider's structured refusal of a collection
// request. The message is surfaced to the payer verbatim; Raw keeps the
// provider's response body for the transaction's metadata.
type GatewayRejection struct {
	Provider string
	Message  string
	Raw      map[string]any
}

func (e *GatewayRejection) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "payment request rejected by " + e.Provider
}

// AsGatewayRejection unwraps err into a *GatewayRejection if it is one.
func AsGatewayRejection(err error) (*GatewayRejection, bool) {
	var rej *GatewayRejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

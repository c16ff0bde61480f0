package model

import (
	"encoding/json"

	"dating-subscription-payments/internal/domain"
)

// Provider callbacks arrive on one shared endpoint with no declared provider
// field; dispatch is by payload shape. ParseCallback decodes the raw body into
// a closed union and fails on anything it does not recognize, so the handler
// never probes optional fields ad hoc.

// MpesaCallback is Safaricom's STK push result envelope.
type MpesaCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []MpesaCallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type MpesaCallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Items returns the line-item metadata, or nil when the provider sent none
// (failed pushes carry no CallbackMetadata).
func (c *MpesaCallback) Items() []MpesaCallbackItem {
	if c.Body.StkCallback.CallbackMetadata == nil {
		return nil
	}
	return c.Body.StkCallback.CallbackMetadata.Item
}

// AirtelCallback is Airtel Money's collection result envelope.
// Status codes: TS = success, TF = failed, TP = still processing.
type AirtelCallback struct {
	Transaction struct {
		ID            string `json:"id"`
		Message       string `json:"message"`
		StatusCode    string `json:"status_code"`
		AirtelMoneyID string `json:"airtel_money_id"`
	} `json:"transaction"`
}

const (
	AirtelStatusSuccess = "TS"
	AirtelStatusFailed  = "TF"
	AirtelStatusPending = "TP"
)

// Callback is the decoded union: exactly one of Mpesa/Airtel is non-nil.
type Callback struct {
	Mpesa  *MpesaCallback
	Airtel *AirtelCallback
}

// Provider returns which provider this callback belongs to.
func (c *Callback) Provider() Provider {
	if c.Mpesa != nil {
		return ProviderMpesa
	}
	return ProviderAirtel
}

// CorrelationID returns the id used to find the originating transaction.
func (c *Callback) CorrelationID() string {
	if c.Mpesa != nil {
		return c.Mpesa.Body.StkCallback.CheckoutRequestID
	}
	return c.Airtel.Transaction.ID
}

// ParseCallback decides the callback shape and decodes it, failing closed on
// unrecognized payloads with domain.ErrUnknownCallback.
func ParseCallback(raw []byte) (*Callback, error) {
	// Probe with a shape sniffer first so a payload is never half-decoded
	// into the wrong struct.
	var probe struct {
		Body *struct {
			StkCallback *json.RawMessage `json:"stkCallback"`
		} `json:"Body"`
		Transaction *json.RawMessage `json:"transaction"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, domain.ErrUnknownCallback
	}

	switch {
	case probe.Body != nil && probe.Body.StkCallback != nil:
		var cb MpesaCallback
		if err := json.Unmarshal(raw, &cb); err != nil {
			return nil, domain.ErrUnknownCallback
		}
		if cb.Body.StkCallback.CheckoutRequestID == "" {
			return nil, domain.ErrUnknownCallback
		}
		return &Callback{Mpesa: &cb}, nil
	case probe.Transaction != nil:
		var cb AirtelCallback
		if err := json.Unmarshal(raw, &cb); err != nil {
			return nil, domain.ErrUnknownCallback
		}
		if cb.Transaction.ID == "" {
			return nil, domain.ErrUnknownCallback
		}
		return &Callback{Airtel: &cb}, nil
	default:
		return nil, domain.ErrUnknownCallback
	}
}

// File: internal/infra/adapters/payment/mpesa_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dating-subscription-payments/internal/config"
	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
	"dating-subscription-payments/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*MpesaGateway)(nil)

// MpesaGateway implements adapter.PaymentGateway against Safaricom's Daraja
// STK push API. Each Collect performs one token request and one push request;
// tokens are deliberately not cached so credential rotation needs no restart.
type MpesaGateway struct {
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	baseURL        string
	callbackURL    string
	client         *http.Client
	now            func() time.Time
}

func NewMpesaGateway(cfg config.MpesaConfig, callbackURL string, timeout time.Duration) (*MpesaGateway, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.Shortcode == "" || cfg.Passkey == "" {
		return nil, domain.ErrNotConfigured
	}
	if _, err := url.Parse(callbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	return &MpesaGateway{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		baseURL:        cfg.BaseURL,
		callbackURL:    callbackURL,
		client:         &http.Client{Timeout: timeout},
		now:            time.Now,
	}, nil
}

func (g *MpesaGateway) Provider() model.Provider { return model.ProviderMpesa }

func (g *MpesaGateway) NormalizePhone(raw string) (string, error) {
	return normalizeKenyanMSISDN(raw)
}

// accessToken fetches a short-lived OAuth token via HTTP basic auth.
func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.consumerKey, g.consumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: mpesa token: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: mpesa token http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: mpesa token decode: %v", domain.ErrGatewayUnavailable, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: mpesa token empty", domain.ErrGatewayUnavailable)
	}
	return out.AccessToken, nil
}

// stkTimestamp formats the Daraja timestamp (YYYYMMDDHHmmss, local time).
func (g *MpesaGateway) stkTimestamp() string {
	return g.now().Format("20060102150405")
}

// stkPassword is base64(shortcode + passkey + timestamp) per Daraja spec.
func (g *MpesaGateway) stkPassword(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.shortcode + g.passkey + timestamp))
}

func (g *MpesaGateway) Collect(ctx context.Context, req adapter.CollectRequest) (adapter.CollectResult, error) {
	start := g.now()
	defer func() { metrics.ObserveGatewayRequest(string(model.ProviderMpesa), time.Since(start)) }()

	token, err := g.accessToken(ctx)
	if err != nil {
		return adapter.CollectResult{}, err
	}

	timestamp := g.stkTimestamp()
	payload := map[string]any{
		"BusinessShortCode": g.shortcode,
		"Password":          g.stkPassword(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            req.Amount,
		"PartyA":            req.PhoneNumber,
		"PartyB":            g.shortcode,
		"PhoneNumber":       req.PhoneNumber,
		"CallBackURL":       g.callbackURL,
		"AccountReference":  req.Reference,
		"TransactionDesc":   req.Description,
	}
	b, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(b))
	if err != nil {
		return adapter.CollectResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return adapter.CollectResult{}, fmt.Errorf("%w: mpesa stkpush: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var out struct {
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.CollectResult{}, fmt.Errorf("%w: mpesa stkpush decode: %v", domain.ErrGatewayUnavailable, err)
	}

	if out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		msg := out.ErrorMessage
		if msg == "" {
			msg = out.ResponseDescription
		}
		if msg == "" {
			msg = "failed to initiate payment"
		}
		return adapter.CollectResult{}, &domain.GatewayRejection{
			Provider: string(model.ProviderMpesa),
			Message:  msg,
			Raw: map[string]any{
				"ResponseCode":        out.ResponseCode,
				"ResponseDescription": out.ResponseDescription,
				"errorMessage":        out.ErrorMessage,
			},
		}
	}

	return adapter.CollectResult{
		CorrelationID: out.CheckoutRequestID,
		Metadata:      map[string]any{"MerchantRequestID": out.MerchantRequestID},
	}, nil
}

// File: internal/infra/adapters/payment/airtel_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dating-subscription-payments/internal/config"
	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
	"dating-subscription-payments/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*AirtelGateway)(nil)

// AirtelGateway implements adapter.PaymentGateway against the Airtel Money
// OpenAPI collection flow. The correlation id is the locally generated
// reference passed in CollectRequest; Airtel echoes it back in its callback.
type AirtelGateway struct {
	clientID     string
	clientSecret string
	baseURL      string
	country      string
	currency     string
	client       *http.Client
}

func NewAirtelGateway(cfg config.AirtelConfig, timeout time.Duration) (*AirtelGateway, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, domain.ErrNotConfigured
	}
	return &AirtelGateway{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      cfg.BaseURL,
		country:      cfg.Country,
		currency:     cfg.Currency,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (g *AirtelGateway) Provider() model.Provider { return model.ProviderAirtel }

func (g *AirtelGateway) NormalizePhone(raw string) (string, error) {
	return normalizeKenyanMSISDN(raw)
}

func (g *AirtelGateway) accessToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"client_id":     g.clientID,
		"client_secret": g.clientSecret,
		"grant_type":    "client_credentials",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/auth/oauth2/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: airtel token: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: airtel token http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: airtel token decode: %v", domain.ErrGatewayUnavailable, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: airtel token empty", domain.ErrGatewayUnavailable)
	}
	return out.AccessToken, nil
}

func (g *AirtelGateway) Collect(ctx context.Context, req adapter.CollectRequest) (adapter.CollectResult, error) {
	start := time.Now()
	defer func() { metrics.ObserveGatewayRequest(string(model.ProviderAirtel), time.Since(start)) }()

	token, err := g.accessToken(ctx)
	if err != nil {
		return adapter.CollectResult{}, err
	}

	// Airtel wants the subscriber number without the country code.
	msisdn := strings.TrimPrefix(req.PhoneNumber, "254")
	payload := map[string]any{
		"reference": req.Reference,
		"subscriber": map[string]any{
			"country":  g.country,
			"currency": g.currency,
			"msisdn":   msisdn,
		},
		"transaction": map[string]any{
			"amount":   req.Amount,
			"country":  g.country,
			"currency": g.currency,
			"id":       req.Reference,
		},
	}
	b, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/merchant/v1/payments/", bytes.NewReader(b))
	if err != nil {
		return adapter.CollectResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Country", g.country)
	httpReq.Header.Set("X-Currency", g.currency)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return adapter.CollectResult{}, fmt.Errorf("%w: airtel collect: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var out struct {
		Status struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"status"`
		Data struct {
			Transaction struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"transaction"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.CollectResult{}, fmt.Errorf("%w: airtel collect decode: %v", domain.ErrGatewayUnavailable, err)
	}

	if !out.Status.Success {
		msg := out.Status.Message
		if msg == "" {
			msg = "failed to initiate payment"
		}
		return adapter.CollectResult{}, &domain.GatewayRejection{
			Provider: string(model.ProviderAirtel),
			Message:  msg,
			Raw: map[string]any{
				"code":    out.Status.Code,
				"message": out.Status.Message,
			},
		}
	}

	return adapter.CollectResult{
		// Airtel calls back with the reference we sent, not its own id.
		CorrelationID: req.Reference,
		Metadata: map[string]any{
			"airtelTransactionId": out.Data.Transaction.ID,
			"status":              out.Data.Transaction.Status,
		},
	}, nil
}

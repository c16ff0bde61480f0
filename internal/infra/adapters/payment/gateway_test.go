//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dating-subscription-payments/internal/config"
	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
)

func TestNormalizeKenyanMSISDN(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"already canonical", "254712345678", "254712345678", false},
		{"plus prefix", "+254712345678", "254712345678", false},
		{"leading zero", "0712345678", "254712345678", false},
		{"bare subscriber number", "712345678", "254712345678", false},
		{"spaces and dashes", "0712 345-678", "254712345678", false},
		{"airtel prefix", "0733111222", "254733111222", false},
		{"too short", "07123", "", true},
		{"too long", "2547123456789", "", true},
		{"empty", "", "", true},
		{"letters", "phone", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeKenyanMSISDN(tc.in)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidPhoneNumber) {
					t.Errorf("expected ErrInvalidPhoneNumber, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// mpesaStub serves the Daraja token and STK push endpoints.
func mpesaStub(t *testing.T, pushStatus int, pushBody map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			t.Error("expected basic auth on the token request")
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-123"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("expected bearer token on the push request, got %q", got)
		}
		w.WriteHeader(pushStatus)
		json.NewEncoder(w).Encode(pushBody)
	})
	return httptest.NewServer(mux)
}

func newMpesaGateway(t *testing.T, baseURL string) *MpesaGateway {
	t.Helper()
	gw, err := NewMpesaGateway(config.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		BaseURL:        baseURL,
	}, "https://example.com/api/v1/payments/callback", 5*time.Second)
	if err != nil {
		t.Fatalf("gateway init: %v", err)
	}
	return gw
}

func TestMpesaGateway_Collect(t *testing.T) {
	ctx := context.Background()
	req := adapter.CollectRequest{
		PhoneNumber: "254712345678",
		Amount:      500,
		Reference:   "DSP-abcd1234",
		Description: "basic subscription payment",
	}

	t.Run("accepted push returns the checkout request id", func(t *testing.T) {
		srv := mpesaStub(t, http.StatusOK, map[string]any{
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"MerchantRequestID":   "mr-1",
			"CheckoutRequestID":   "ws_CO_9",
		})
		defer srv.Close()

		res, err := newMpesaGateway(t, srv.URL).Collect(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if res.CorrelationID != "ws_CO_9" {
			t.Errorf("expected ws_CO_9, got %q", res.CorrelationID)
		}
		if res.Metadata["MerchantRequestID"] != "mr-1" {
			t.Errorf("expected merchant request id in metadata, got %v", res.Metadata)
		}
		if res.Sandbox {
			t.Error("live gateway must not set the sandbox flag")
		}
	})

	t.Run("non-zero response code is a rejection", func(t *testing.T) {
		srv := mpesaStub(t, http.StatusOK, map[string]any{
			"ResponseCode":        "1",
			"ResponseDescription": "Invalid Amount",
		})
		defer srv.Close()

		_, err := newMpesaGateway(t, srv.URL).Collect(ctx, req)
		rej, ok := domain.AsGatewayRejection(err)
		if !ok {
			t.Fatalf("expected a gateway rejection, got %v", err)
		}
		if rej.Message != "Invalid Amount" {
			t.Errorf("expected the provider description, got %q", rej.Message)
		}
		if rej.Raw["ResponseCode"] != "1" {
			t.Errorf("expected the raw response kept, got %v", rej.Raw)
		}
	})

	t.Run("missing checkout request id is a rejection", func(t *testing.T) {
		srv := mpesaStub(t, http.StatusOK, map[string]any{"ResponseCode": "0"})
		defer srv.Close()

		_, err := newMpesaGateway(t, srv.URL).Collect(ctx, req)
		if _, ok := domain.AsGatewayRejection(err); !ok {
			t.Fatalf("expected a gateway rejection, got %v", err)
		}
	})

	t.Run("unreachable host maps to ErrGatewayUnavailable", func(t *testing.T) {
		srv := mpesaStub(t, http.StatusOK, nil)
		srv.Close() // refuse connections

		_, err := newMpesaGateway(t, srv.URL).Collect(ctx, req)
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Errorf("expected ErrGatewayUnavailable, got %v", err)
		}
	})

	t.Run("token failure maps to ErrGatewayUnavailable", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		_, err := newMpesaGateway(t, srv.URL).Collect(ctx, req)
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Errorf("expected ErrGatewayUnavailable, got %v", err)
		}
	})
}

func TestNewMpesaGateway_RequiresCredentials(t *testing.T) {
	_, err := NewMpesaGateway(config.MpesaConfig{ConsumerKey: "key"}, "https://example.com/cb", time.Second)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

// airtelStub serves the Airtel OAuth and collection endpoints, capturing the
// collection payload.
func airtelStub(t *testing.T, collectBody map[string]any, captured *map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-456"})
	})
	mux.HandleFunc("/merchant/v1/payments/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Country"); got != "KE" {
			t.Errorf("expected X-Country KE, got %q", got)
		}
		if captured != nil {
			json.NewDecoder(r.Body).Decode(captured)
		}
		json.NewEncoder(w).Encode(collectBody)
	})
	return httptest.NewServer(mux)
}

func newAirtelGateway(t *testing.T, baseURL string) *AirtelGateway {
	t.Helper()
	gw, err := NewAirtelGateway(config.AirtelConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      baseURL,
		Country:      "KE",
		Currency:     "KES",
	}, 5*time.Second)
	if err != nil {
		t.Fatalf("gateway init: %v", err)
	}
	return gw
}

func TestAirtelGateway_Collect(t *testing.T) {
	ctx := context.Background()
	req := adapter.CollectRequest{
		PhoneNumber: "254733111222",
		Amount:      1500,
		Reference:   "DSP01REF",
		Description: "premium subscription payment",
	}

	t.Run("accepted collection echoes the local reference", func(t *testing.T) {
		var captured map[string]any
		srv := airtelStub(t, map[string]any{
			"status": map[string]any{"success": true},
			"data": map[string]any{
				"transaction": map[string]any{"id": "airtel-1", "status": "PENDING"},
			},
		}, &captured)
		defer srv.Close()

		res, err := newAirtelGateway(t, srv.URL).Collect(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if res.CorrelationID != "DSP01REF" {
			t.Errorf("expected the local reference as correlation id, got %q", res.CorrelationID)
		}
		if res.Metadata["airtelTransactionId"] != "airtel-1" {
			t.Errorf("expected the provider id in metadata, got %v", res.Metadata)
		}

		sub, _ := captured["subscriber"].(map[string]any)
		if sub["msisdn"] != "733111222" {
			t.Errorf("expected the msisdn without country code, got %v", sub["msisdn"])
		}
		txn, _ := captured["transaction"].(map[string]any)
		if txn["id"] != "DSP01REF" {
			t.Errorf("expected the reference as transaction id, got %v", txn["id"])
		}
	})

	t.Run("unsuccessful status is a rejection", func(t *testing.T) {
		srv := airtelStub(t, map[string]any{
			"status": map[string]any{"success": false, "message": "Insufficient balance", "code": "DP00800001006"},
		}, nil)
		defer srv.Close()

		_, err := newAirtelGateway(t, srv.URL).Collect(ctx, req)
		rej, ok := domain.AsGatewayRejection(err)
		if !ok {
			t.Fatalf("expected a gateway rejection, got %v", err)
		}
		if rej.Message != "Insufficient balance" {
			t.Errorf("expected the provider message, got %q", rej.Message)
		}
	})

	t.Run("unreachable host maps to ErrGatewayUnavailable", func(t *testing.T) {
		srv := airtelStub(t, nil, nil)
		srv.Close()

		_, err := newAirtelGateway(t, srv.URL).Collect(ctx, req)
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Errorf("expected ErrGatewayUnavailable, got %v", err)
		}
	})
}

func TestNewAirtelGateway_RequiresCredentials(t *testing.T) {
	_, err := NewAirtelGateway(config.AirtelConfig{ClientID: "client"}, time.Second)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSandboxGateway_Collect(t *testing.T) {
	gw := NewSandboxGateway(model.ProviderMpesa)

	res, err := gw.Collect(context.Background(), adapter.CollectRequest{Reference: "DSP-abcd1234"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if res.CorrelationID != "demo_DSP-abcd1234" {
		t.Errorf("expected a demo correlation id, got %q", res.CorrelationID)
	}
	if !res.Sandbox {
		t.Error("expected the sandbox flag")
	}
	if gw.Provider() != model.ProviderMpesa {
		t.Errorf("expected the configured provider, got %q", gw.Provider())
	}
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/infra/logging"
	"dating-subscription-payments/internal/infra/metrics"
)

// initiateRequest is the expected JSON body for both initiation endpoints.
type initiateRequest struct {
	PhoneNumber string     `json:"phoneNumber"`
	Amount      int64      `json:"amount"`
	Tier        model.Tier `json:"tier"`
	UserID      string     `json:"userId"`
}

type initiateResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	TransactionID     string `json:"transactionId,omitempty"`
	CheckoutRequestID string `json:"checkoutRequestId,omitempty"`
	TransactionRef    string `json:"transactionRef,omitempty"`
	Sandbox           bool   `json:"sandbox,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

const maxCallbackBody = 1 << 20 // providers send small payloads

func (s *Server) handleInitiateMpesa(w http.ResponseWriter, r *http.Request) {
	s.handleInitiate(w, r, model.ProviderMpesa)
}

func (s *Server) handleInitiateAirtel(w http.ResponseWriter, r *http.Request) {
	s.handleInitiate(w, r, model.ProviderAirtel)
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request, provider model.Provider) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncInitiation(string(provider), "invalid")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx = logging.WithProvider(logging.WithUserID(ctx, req.UserID), string(provider))
	logging.With(ctx, s.log).Debug().
		Str("phone", logging.Redact(req.PhoneNumber)).
		Int64("amount", req.Amount).
		Str("tier", string(req.Tier)).
		Msg("payment initiation requested")

	result, err := s.paymentUC.Initiate(ctx, provider, req.PhoneNumber, req.Amount, req.Tier, req.UserID)
	if err != nil {
		status, outcome := initiationErrorStatus(err)
		metrics.IncInitiation(string(provider), outcome)
		writeError(w, status, err.Error())
		return
	}

	resp := initiateResponse{
		Success:       true,
		Message:       result.Message,
		TransactionID: result.TransactionID,
		Sandbox:       result.Sandbox,
	}
	// Each provider names its correlation handle differently on the wire.
	if provider == model.ProviderMpesa {
		resp.CheckoutRequestID = result.CorrelationID
	} else {
		resp.TransactionRef = result.CorrelationID
	}

	outcome := "accepted"
	if result.Sandbox {
		outcome = "sandbox"
	}
	metrics.IncInitiation(string(provider), outcome)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	ack, err := s.callbackUC.Handle(ctx, raw)
	if err != nil {
		// Only unrecognized shapes fail; everything else is absorbed and
		// acknowledged so providers do not retry.
		metrics.IncCallback("unknown", "unknown_format")
		writeError(w, http.StatusBadRequest, "Unknown callback format")
		return
	}

	metrics.IncCallback(string(ack.Provider), "accepted")
	writeJSON(w, http.StatusOK, ack.Body)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	id := chi.URLParam(r, "id")
	tx, err := s.paymentUC.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ID        string                  `json:"id"`
		Status    model.TransactionStatus `json:"status"`
		Provider  model.Provider          `json:"provider"`
		Tier      model.Tier              `json:"tier"`
		Amount    int64                   `json:"amount"`
		Currency  string                  `json:"currency"`
		CreatedAt time.Time               `json:"created_at"`
		UpdatedAt time.Time               `json:"updated_at"`
	}{tx.ID, tx.Status, tx.Provider, tx.Tier, tx.Amount, tx.Currency, tx.CreatedAt, tx.UpdatedAt})
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	userID := chi.URLParam(r, "userID")
	sub, err := s.subUC.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get subscription")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		UserID             string     `json:"user_id"`
		Tier               model.Tier `json:"tier"`
		DailyMessagesLimit int        `json:"daily_messages_limit"`
		VisibilityBoost    int        `json:"visibility_boost"`
		AdvancedInsights   bool       `json:"advanced_insights"`
		StartsAt           time.Time  `json:"starts_at"`
		ExpiresAt          time.Time  `json:"expires_at"`
	}{sub.UserID, sub.Tier, sub.DailyMessagesLimit, sub.VisibilityBoost, sub.AdvancedInsights, sub.StartsAt, sub.ExpiresAt})
}

func initiationErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrInvalidPhoneNumber),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusInternalServerError, "gateway_error"
	case errors.Is(err, domain.ErrOperationFailed):
		return http.StatusInternalServerError, "error"
	default:
		if _, ok := domain.AsGatewayRejection(err); ok {
			return http.StatusBadRequest, "rejected"
		}
		return http.StatusInternalServerError, "error"
	}
}

func contextWithTimeout(r *http.Request) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(r.Context(), 30*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

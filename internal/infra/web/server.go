package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/infra/logging"
	"dating-subscription-payments/internal/usecase"
)

type Server struct {
	paymentUC  usecase.PaymentUseCase
	callbackUC usecase.CallbackUseCase
	subUC      usecase.SubscriptionUseCase
	apiKey     string
	log        *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	callbackUC usecase.CallbackUseCase,
	subUC usecase.SubscriptionUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		paymentUC:  paymentUC,
		callbackUC: callbackUC,
		subUC:      subUC,
		apiKey:     apiKey,
		log:        logger,
	}
}

// CallbackRoute is the path providers deliver asynchronous results to; it is
// appended to payment.callback_base_url when registering with a provider.
const CallbackRoute = "/api/v1/payments/callback"

// Router builds the service's chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/mpesa", s.handleInitiateMpesa)
		r.Post("/airtel", s.handleInitiateAirtel)
		r.Post("/callback", s.handleCallback)

		// Status polling for the UI layer; the final payment outcome only
		// ever materializes here, never in the initiation response.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Get("/subscriptions/{userID}", s.handleGetSubscription)
		})
	})

	return r
}

// requestLogger tags each request with a trace id and logs one line with
// latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// authMiddleware provides simple Bearer token authentication for read APIs.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/usecase"
)

// Server wires the identity and payment callback routes to their use cases.
// All JSON endpoints are CORS-open: the caller is a browser app served from a
// different origin, relayed through the wallet's SDK callbacks.
type Server struct {
	identityUC   usecase.IdentityUseCase
	approvalUC   usecase.ApprovalUseCase
	completionUC usecase.CompletionUseCase
	ledgerUC     usecase.LedgerUseCase
	log          *zerolog.Logger
}

func NewServer(
	identityUC usecase.IdentityUseCase,
	approvalUC usecase.ApprovalUseCase,
	completionUC usecase.CompletionUseCase,
	ledgerUC usecase.LedgerUseCase,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		identityUC:   identityUC,
		approvalUC:   approvalUC,
		completionUC: completionUC,
		ledgerUC:     ledgerUC,
		log:          logger,
	}
}

// Routes builds the chi router with shared middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Post("/identity/verify", s.handleIdentityVerify)
	r.Post("/payment/approve", s.handlePaymentApprove)
	r.Post("/payment/complete", s.handlePaymentComplete)

	r.Get("/subscription/{accountID}", s.handleSubscriptionGet)
	r.Get("/subscription/{accountID}/transactions", s.handleTransactionsList)
	r.Get("/plans", s.handlePlansList)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// corsMiddleware keeps the surface reachable from the wallet's in-app browser.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, content-type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// Package httpapi serves the debt and presence operations as JSON over HTTP
// for the mobile web client.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/candlelife/candle/internal/api"
	"github.com/candlelife/candle/internal/auth"
	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/identity"
	"github.com/candlelife/candle/internal/ledger"
	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/presence"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// API holds what the HTTP handlers need.
type API struct {
	identity   *identity.Provider
	verifier   *auth.Verifier
	aggregator *ledger.Aggregator
	ledger     *ledger.Ledger
	tracker    *presence.Tracker
	logger     *zap.Logger
}

// New creates the API. verifier may be nil, in which case every
// authenticated route answers 401.
func New(id *identity.Provider, verifier *auth.Verifier, agg *ledger.Aggregator, l *ledger.Ledger, tracker *presence.Tracker, logger *zap.Logger) *API {
	return &API{
		identity:   id,
		verifier:   verifier,
		aggregator: agg,
		ledger:     l,
		tracker:    tracker,
		logger:     logging.OrNop(logger),
	}
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.requireUser)
		r.Get("/debts", a.getDebts)
		r.Post("/transactions", a.postTransaction)
		r.Post("/transactions/{id}/paid", a.postPaid)
		r.Get("/typing", a.getTyping)
		r.Post("/typing", a.postTyping)
		r.Get("/typing/{userID}", a.getUserTyping)
	})
	return r
}

func (a *API) getDebts(w http.ResponseWriter, r *http.Request) {
	res, err := a.aggregator.Compute(r.Context(), userID(r.Context()))
	if err != nil {
		a.logger.Warn("debts unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not load debts")
		return
	}
	writeJSON(w, http.StatusOK, api.DebtsResponse(res))
}

func (a *API) postTransaction(w http.ResponseWriter, r *http.Request) {
	var req api.RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	id, err := a.ledger.RecordTransaction(r.Context(), ledger.NewTransaction{
		OwnerID:        userID(r.Context()),
		CounterpartyID: req.CounterpartyID,
		Type:           req.Type,
		Amount:         req.Amount,
		Date:           req.Date,
		Description:    req.Description,
	})
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.RecordTransactionResponse{ID: id})
}

func (a *API) postPaid(w http.ResponseWriter, r *http.Request) {
	if err := a.ledger.MarkPaid(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postTyping answers 204 whether or not the backend accepted the update.
func (a *API) postTyping(w http.ResponseWriter, r *http.Request) {
	var req api.SendTypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.OtherUserID == "" {
		writeError(w, http.StatusBadRequest, "other_user_id is required")
		return
	}
	a.tracker.SendTypingStatus(r.Context(), userID(r.Context()), req.OtherUserID, req.IsTyping)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getTyping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"typing": a.tracker.Typing()})
}

func (a *API) getUserTyping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, api.IsTypingResponse{UserID: id, IsTyping: a.tracker.IsUserTyping(id)})
}

func (a *API) writeLedgerError(w http.ResponseWriter, err error) {
	var invalid *ledger.ValidationError
	switch {
	case errors.As(err, &invalid), errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, ledger.ErrReadOnly):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		a.logger.Warn("ledger write failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend unavailable")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Server runs the API on a TCP address.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logging.OrNop(logger),
	}
}

// Start binds the address and serves in the background. It returns the bound
// address, which differs from the configured one for port 0.
func (s *Server) Start() (string, error) {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", lis.Addr().String()))
	return lis.Addr().String(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

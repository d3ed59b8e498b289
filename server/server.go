package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"dicewager/models"
	"dicewager/service"
)

const historyPageSize = 5

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// API exposes the engine to the web frontend
type API struct {
	Users   service.UserService
	Ledger  service.LedgerService
	Wagers  service.WagerRegistry
	History service.HistoryService
	Bridge  service.BridgeService // nil when the token bridge is disabled
	Health  HealthChecker
	Metrics http.Handler // defaults to the Prometheus default registry
}

// Router returns the HTTP routes of the API
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	metricsHandler := a.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Get("/healthz", a.healthz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", a.register)
		r.Get("/accounts/{id}/balance", a.balance)
		r.Get("/accounts/{id}/history", a.history)
		r.Get("/accounts/{id}/ledger", a.ledger)
		r.Get("/accounts/{id}/transfers", a.transfers)
		r.Get("/wagers", a.listOpenWagers)
		r.Get("/wagers/{id}", a.getWager)
		r.Get("/wagers/{id}/receipt", a.wagerReceipt)
	})
	return r
}

// NewHTTPServer wraps handler with the server timeouts used in production
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrWagerNotFound),
		errors.Is(err, models.ErrTransferNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyRegistered):
		status = http.StatusConflict
	case errors.Is(err, models.ErrStorageUnavailable),
		errors.Is(err, models.ErrBridgeUnavailable):
		status = http.StatusServiceUnavailable
	case service.IsUserError(err):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("HTTP handler failed")
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func accountIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadAccountID
	}
	return id, nil
}

var errBadAccountID = errors.New("account id must be a positive integer")

// limitParam parses the optional limit query parameter
func limitParam(r *http.Request, def, upper int) (int, bool) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return def, true
	}
	n, err := strconv.Atoi(l)
	if err != nil || n < 1 || n > upper {
		return 0, false
	}
	return n, true
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.Health != nil {
		if err := a.Health.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	AccountID  int64  `json:"account_id"`
	Username   string `json:"username"`
	InviteCode string `json:"invite_code"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AccountID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errBadAccountID.Error()})
		return
	}

	account, err := a.Users.Register(r.Context(), req.AccountID, req.Username, req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	balance, err := a.Ledger.GetBalance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, Balance: balance})
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var status *models.WagerStatus
	if s := r.URL.Query().Get("status"); s != "" {
		ws := models.WagerStatus(s)
		if !ws.IsTerminal() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be completed or cancelled"})
			return
		}
		status = &ws
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page must be a positive integer"})
			return
		}
	}

	result, err := a.History.QueryByAccount(r.Context(), id, status, historyPageSize, (page-1)*historyPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHistoryResponse(page, result))
}

func (a *API) getWager(w http.ResponseWriter, r *http.Request) {
	wager, err := a.Wagers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWagerResponse(wager))
}

func (a *API) listOpenWagers(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r, 20, 100)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
		return
	}

	wagers, err := a.Wagers.ListOpen(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]wagerResponse, 0, len(wagers))
	for _, wager := range wagers {
		out = append(out, newWagerResponse(wager))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) wagerReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.History.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

func (a *API) ledger(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, ok := limitParam(r, 20, 100)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
		return
	}

	history, err := a.Ledger.GetBalanceHistory(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLedgerResponse(history))
}

func (a *API) transfers(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, ok := limitParam(r, 20, 50)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 50"})
		return
	}
	if a.Bridge == nil {
		writeError(w, models.ErrBridgeUnavailable)
		return
	}

	transfers, err := a.Bridge.ListTransfers(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransfersResponse(transfers))
}

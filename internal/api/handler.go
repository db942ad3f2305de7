package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/intrepidkarthi/feaws-sub001/internal/htlc"
	"github.com/intrepidkarthi/feaws-sub001/internal/registry"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "htlc_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "htlc_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	swapsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "htlc_swaps_opened_total",
		Help: "Swaps opened",
	})
	swapsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "htlc_swaps_closed_total",
		Help: "Swaps closed with a valid preimage",
	})
	swapsRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "htlc_swaps_refunded_total",
		Help: "Swaps refunded after expiration",
	})
)

type Handler struct {
	registry *registry.Registry
}

func NewHandler(r *registry.Registry) *Handler {
	return &Handler{registry: r}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, r.Method, "/health")
}

func (h *Handler) CreditAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req CreditAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", r.Method, "/accounts")
		return
	}
	if err := h.registry.CreditAccount(r.Context(), req.Party, req.Asset, req.Amount); err != nil {
		h.respondOpError(w, err, r.Method, "/accounts")
		return
	}
	balance, err := h.registry.AccountBalance(r.Context(), req.Party, req.Asset)
	if err != nil {
		h.respondOpError(w, err, r.Method, "/accounts")
		return
	}
	h.respondJSON(w, http.StatusCreated, BalanceResponse{
		Party: req.Party, Asset: req.Asset, Balance: balance,
	}, r.Method, "/accounts")
}

func (h *Handler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	balance, err := h.registry.AccountBalance(r.Context(), vars["party"], vars["asset"])
	if err != nil {
		h.respondOpError(w, err, r.Method, "/accounts/{party}/balances/{asset}")
		return
	}
	h.respondJSON(w, http.StatusOK, BalanceResponse{
		Party: vars["party"], Asset: vars["asset"], Balance: balance,
	}, r.Method, "/accounts/{party}/balances/{asset}")
}

func (h *Handler) OpenSwapHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/swaps"))
	defer timer.ObserveDuration()

	var req OpenSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/swaps")
		return
	}
	hashLock, err := hex.DecodeString(req.HashLock)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "hash_lock must be hex encoded", "POST", "/swaps")
		return
	}

	swap, err := h.registry.Open(r.Context(), htlc.OpenRequest{
		Sender:       req.Sender,
		Receiver:     req.Receiver,
		HashLock:     hashLock,
		Expiration:   req.Expiration,
		InputAsset:   req.InputAsset,
		InputAmount:  req.InputAmount,
		OutputAsset:  req.OutputAsset,
		OutputAmount: req.OutputAmount,
	})
	if err != nil {
		h.respondOpError(w, err, "POST", "/swaps")
		return
	}

	swapsOpenedTotal.Inc()
	// The swap was created this instant, so the remaining window is just
	// the configured time lock; no second store read needed.
	remaining := swap.Expiration.Sub(swap.CreatedAt)
	w.Header().Set("Location", fmt.Sprintf("/api/v1/swaps/%d", swap.ID))
	h.respondJSON(w, http.StatusCreated, newSwapResponse(swap, true, false, remaining), "POST", "/swaps")
}

func (h *Handler) GetSwapHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.swapID(w, r, "/swaps/{id}")
	if !ok {
		return
	}
	swap, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "GET", "/swaps/{id}")
		return
	}
	open, err := h.registry.IsOpen(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "GET", "/swaps/{id}")
		return
	}
	expired, err := h.registry.IsExpired(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "GET", "/swaps/{id}")
		return
	}
	remaining, err := h.registry.TimeRemaining(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "GET", "/swaps/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, newSwapResponse(swap, open, expired, remaining), "GET", "/swaps/{id}")
}

func (h *Handler) GetEscrowHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.swapID(w, r, "/swaps/{id}/escrow")
	if !ok {
		return
	}
	swap, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "GET", "/swaps/{id}/escrow")
		return
	}
	amount, err := h.registry.EscrowBalance(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "GET", "/swaps/{id}/escrow")
		return
	}
	h.respondJSON(w, http.StatusOK, EscrowResponse{
		SwapID: id, Asset: swap.InputAsset, Amount: amount,
	}, "GET", "/swaps/{id}/escrow")
}

func (h *Handler) CloseSwapHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/swaps/{id}/close"))
	defer timer.ObserveDuration()

	id, ok := h.swapID(w, r, "/swaps/{id}/close")
	if !ok {
		return
	}
	var req CloseSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/swaps/{id}/close")
		return
	}
	preimage, err := hex.DecodeString(req.Preimage)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "preimage must be hex encoded", "POST", "/swaps/{id}/close")
		return
	}

	if err := h.registry.Close(r.Context(), id, preimage); err != nil {
		h.respondOpError(w, err, "POST", "/swaps/{id}/close")
		return
	}

	swapsClosedTotal.Inc()
	swap, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "POST", "/swaps/{id}/close")
		return
	}
	h.respondJSON(w, http.StatusOK, newSwapResponse(swap, false, false, 0), "POST", "/swaps/{id}/close")
}

func (h *Handler) RefundSwapHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/swaps/{id}/refund"))
	defer timer.ObserveDuration()

	id, ok := h.swapID(w, r, "/swaps/{id}/refund")
	if !ok {
		return
	}
	var req RefundSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/swaps/{id}/refund")
		return
	}

	if err := h.registry.Refund(r.Context(), id, req.Sender); err != nil {
		h.respondOpError(w, err, "POST", "/swaps/{id}/refund")
		return
	}

	swapsRefundedTotal.Inc()
	swap, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.respondOpError(w, err, "POST", "/swaps/{id}/refund")
		return
	}
	h.respondJSON(w, http.StatusOK, newSwapResponse(swap, false, true, 0), "POST", "/swaps/{id}/refund")
}

func (h *Handler) swapID(w http.ResponseWriter, r *http.Request, endpoint string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid swap id", r.Method, endpoint)
		return 0, false
	}
	return id, true
}

// respondOpError maps the registry error taxonomy onto HTTP statuses.
func (h *Handler) respondOpError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, htlc.ErrSwapNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, htlc.ErrInvalidParameters),
		errors.Is(err, htlc.ErrInvalidPreimage),
		errors.Is(err, htlc.ErrInsufficientFunds):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, htlc.ErrInvalidState),
		errors.Is(err, htlc.ErrSwapExpired),
		errors.Is(err, htlc.ErrNotExpired):
		h.respondError(w, http.StatusConflict, err.Error(), method, endpoint)
	case errors.Is(err, htlc.ErrNotSender):
		h.respondError(w, http.StatusForbidden, err.Error(), method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}

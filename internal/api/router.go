package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires all routes of the service.
func NewRouter(h *Handler, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(RequestLogger(log))
	apiV1.HandleFunc("/accounts", h.CreditAccountHandler).Methods("POST")
	apiV1.HandleFunc("/accounts/{party}/balances/{asset}", h.GetBalanceHandler).Methods("GET")
	apiV1.HandleFunc("/swaps", h.OpenSwapHandler).Methods("POST")
	apiV1.HandleFunc("/swaps/{id}", h.GetSwapHandler).Methods("GET")
	apiV1.HandleFunc("/swaps/{id}/escrow", h.GetEscrowHandler).Methods("GET")
	apiV1.HandleFunc("/swaps/{id}/close", h.CloseSwapHandler).Methods("POST")
	apiV1.HandleFunc("/swaps/{id}/refund", h.RefundSwapHandler).Methods("POST")
	return r
}

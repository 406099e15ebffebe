package httpapi

import (
	"net/http"

	"github.com/riskibarqy/faultline/internal/observability"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics *observability.Metrics) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.Handle("GET /metrics", metrics.Handler())
}

func registerBreakerRoutes(mux *http.ServeMux, handler *Handler, operatorToken string) {
	mux.HandleFunc("GET /circuit-breaker/status", handler.ListBreakerStatuses)
	mux.HandleFunc("GET /circuit-breaker/status/{name}", handler.GetBreakerStatus)
	mux.Handle("POST /circuit-breaker/{name}/open", RequireOperatorToken(operatorToken, http.HandlerFunc(handler.ForceOpenBreaker)))
	mux.Handle("POST /circuit-breaker/{name}/close", RequireOperatorToken(operatorToken, http.HandlerFunc(handler.ForceCloseBreaker)))
	mux.Handle("DELETE /circuit-breaker/{name}", RequireOperatorToken(operatorToken, http.HandlerFunc(handler.RemoveBreaker)))
}

func registerDegradationRoutes(mux *http.ServeMux, handler *Handler, operatorToken string) {
	mux.HandleFunc("GET /degradation/status", handler.GetDegradationStatus)
	mux.HandleFunc("GET /degradation/history", handler.ListDegradationHistory)
	mux.HandleFunc("GET /degradation/service/{type}/availability", handler.GetServiceAvailability)
	mux.Handle("POST /degradation/level", RequireOperatorToken(operatorToken, http.HandlerFunc(handler.SetDegradationLevel)))
	mux.Handle("POST /degradation/recover", RequireOperatorToken(operatorToken, http.HandlerFunc(handler.RecoverDegradation)))
}

func registerOpsRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /ops/overview", handler.OpsOverview)
}

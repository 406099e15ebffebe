package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/riskibarqy/faultline/internal/observability"
	"github.com/riskibarqy/faultline/internal/platform/sysmetrics"
)

func NewRouter(
	handler *Handler,
	logger *slog.Logger,
	corsAllowedOrigins []string,
	operatorToken string,
	collector *sysmetrics.Collector,
	metrics *observability.Metrics,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, metrics)
	registerBreakerRoutes(mux, handler, operatorToken)
	registerDegradationRoutes(mux, handler, operatorToken)
	registerOpsRoutes(mux, handler)

	return RequestTracing(
		RequestLogging(logger,
			CORS(corsAllowedOrigins,
				MeasureRequests(collector, metrics,
					recoverPanic(logger, mux)))))
}

func recoverPanic(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

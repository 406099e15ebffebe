package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/usecase"
)

const defaultHistoryLimit = 50

func (h *Handler) GetDegradationStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDegradationStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, degradationStatusToDTO(h.degradationService.Status()))
}

func (h *Handler) SetDegradationLevel(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetDegradationLevel")
	defer span.End()

	var req setLevelRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	status, err := h.degradationService.SetLevel(ctx, degradation.Level(*req.Level), req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "set degradation level failed", "level", *req.Level, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, degradationStatusToDTO(status))
}

func (h *Handler) RecoverDegradation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecoverDegradation")
	defer span.End()

	var req recoverRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	status := h.degradationService.Recover(ctx, req.Reason)
	writeSuccess(ctx, w, http.StatusOK, degradationStatusToDTO(status))
}

func (h *Handler) ListDegradationHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDegradationHistory")
	defer span.End()

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	events := h.degradationService.History(limit)
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"events": degradationEventsToDTO(events),
	})
}

func (h *Handler) GetServiceAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetServiceAvailability")
	defer span.End()

	service, err := degradation.ParseServiceType(r.PathValue("type"))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, serviceAvailabilityDTO{
		Service:      string(service),
		Available:    h.degradationService.IsAvailable(service),
		CurrentLevel: h.degradationService.Level().String(),
	})
}

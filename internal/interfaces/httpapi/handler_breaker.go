package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) ListBreakerStatuses(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBreakerStatuses")
	defer span.End()

	snaps := h.breakerService.Statuses(ctx)
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"breakers": breakerSnapshotsToDTO(snaps),
	})
}

func (h *Handler) GetBreakerStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBreakerStatus")
	defer span.End()

	name := strings.TrimSpace(r.PathValue("name"))
	snap, err := h.breakerService.Status(ctx, name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, breakerSnapshotToDTO(snap))
}

func (h *Handler) ForceOpenBreaker(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ForceOpenBreaker")
	defer span.End()

	name := strings.TrimSpace(r.PathValue("name"))

	var req forceStateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := h.breakerService.ForceOpen(ctx, name, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "force open breaker failed", "breaker", name, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, breakerSnapshotToDTO(snap))
}

func (h *Handler) ForceCloseBreaker(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ForceCloseBreaker")
	defer span.End()

	name := strings.TrimSpace(r.PathValue("name"))

	var req forceStateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := h.breakerService.ForceClose(ctx, name, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "force close breaker failed", "breaker", name, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, breakerSnapshotToDTO(snap))
}

func (h *Handler) RemoveBreaker(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveBreaker")
	defer span.End()

	name := strings.TrimSpace(r.PathValue("name"))
	removed := h.breakerService.Remove(ctx, name)

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"removed": removed})
}

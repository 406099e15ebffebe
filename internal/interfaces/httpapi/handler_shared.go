package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/platform/logging"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
	"github.com/riskibarqy/faultline/internal/usecase"
)

type Handler struct {
	breakerService     *usecase.BreakerService
	degradationService *usecase.DegradationService
	overviewService    *usecase.OverviewService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	breakerService *usecase.BreakerService,
	degradationService *usecase.DegradationService,
	overviewService *usecase.OverviewService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		breakerService:     breakerService,
		degradationService: degradationService,
		overviewService:    overviewService,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSONBody fills dst from the request body. An empty body is tolerated;
// callers enforce required fields through validation.
func decodeJSONBody(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type forceStateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type setLevelRequest struct {
	Level  *int   `json:"level" validate:"required,min=0,max=4"`
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type recoverRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type windowStatsDTO struct {
	Total             int     `json:"total"`
	Success           int     `json:"success"`
	Failure           int     `json:"failure"`
	Slow              int     `json:"slow"`
	FailureRate       float64 `json:"failureRate"`
	SlowRate          float64 `json:"slowRate"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
}

type breakerStatusDTO struct {
	Name             string         `json:"name"`
	State            string         `json:"state"`
	Forced           bool           `json:"forced"`
	Stats            windowStatsDTO `json:"stats"`
	LastTransitionAt string         `json:"lastTransitionAt,omitempty"`
}

type breakerAggregateDTO struct {
	Total              int     `json:"total"`
	OpenCount          int     `json:"openCount"`
	OverallFailureRate float64 `json:"overallFailureRate"`
}

type degradationEventDTO struct {
	At     string `json:"at"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
	Rule   string `json:"rule,omitempty"`
}

type degradationStatusDTO struct {
	CurrentLevel           int                   `json:"currentLevel"`
	CurrentLevelName       string                `json:"currentLevelName"`
	Pinned                 bool                  `json:"pinned"`
	PinReason              string                `json:"pinReason,omitempty"`
	ActiveStrategies       []string              `json:"activeStrategies"`
	ConsecutiveCleanCycles int                   `json:"consecutiveCleanCycles"`
	RecentHistory          []degradationEventDTO `json:"recentHistory"`
}

type serviceAvailabilityDTO struct {
	Service      string `json:"service"`
	Available    bool   `json:"available"`
	CurrentLevel string `json:"currentLevel"`
}

type systemMetricsDTO struct {
	CPUPercent       float64 `json:"cpuPercent"`
	MemoryPercent    float64 `json:"memoryPercent"`
	P95LatencyMs     float64 `json:"p95LatencyMs"`
	ErrorRatePercent float64 `json:"errorRatePercent"`
	QueueLength      float64 `json:"queueLength"`
	Goroutines       int     `json:"goroutines"`
	SampledAt        string  `json:"sampledAt,omitempty"`
}

type overviewDTO struct {
	Breakers    []breakerStatusDTO   `json:"breakers"`
	Aggregate   breakerAggregateDTO  `json:"aggregate"`
	Degradation degradationStatusDTO `json:"degradation"`
	System      systemMetricsDTO     `json:"system"`
	GeneratedAt string               `json:"generatedAt"`
}

func breakerSnapshotToDTO(snap resilience.BreakerSnapshot) breakerStatusDTO {
	dto := breakerStatusDTO{
		Name:   snap.Name,
		State:  snap.State.String(),
		Forced: snap.Forced,
		Stats: windowStatsDTO{
			Total:             snap.Stats.Total,
			Success:           snap.Stats.Success,
			Failure:           snap.Stats.Failure,
			Slow:              snap.Stats.Slow,
			FailureRate:       snap.Stats.FailureRate(),
			SlowRate:          snap.Stats.SlowRate(),
			AvgResponseTimeMs: float64(snap.Stats.AvgDuration()) / float64(time.Millisecond),
		},
	}
	if !snap.LastTransitionAt.IsZero() {
		dto.LastTransitionAt = snap.LastTransitionAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

func breakerSnapshotsToDTO(snaps []resilience.BreakerSnapshot) []breakerStatusDTO {
	out := make([]breakerStatusDTO, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, breakerSnapshotToDTO(snap))
	}
	return out
}

func degradationEventToDTO(event degradation.Event) degradationEventDTO {
	return degradationEventDTO{
		At:     event.At.UTC().Format(time.RFC3339Nano),
		From:   event.From.String(),
		To:     event.To.String(),
		Reason: event.Reason,
		Rule:   event.Rule,
	}
}

func degradationEventsToDTO(events []degradation.Event) []degradationEventDTO {
	out := make([]degradationEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, degradationEventToDTO(event))
	}
	return out
}

func degradationStatusToDTO(status usecase.DegradationStatus) degradationStatusDTO {
	return degradationStatusDTO{
		CurrentLevel:           int(status.Level),
		CurrentLevelName:       status.LevelName,
		Pinned:                 status.Pinned,
		PinReason:              status.PinReason,
		ActiveStrategies:       status.ActiveStrategies,
		ConsecutiveCleanCycles: status.ConsecutiveClean,
		RecentHistory:          degradationEventsToDTO(status.RecentHistory),
	}
}

func systemMetricsToDTO(sample degradation.SystemMetrics) systemMetricsDTO {
	dto := systemMetricsDTO{
		CPUPercent:       sample.CPUPercent,
		MemoryPercent:    sample.MemoryPercent,
		P95LatencyMs:     sample.P95LatencyMs,
		ErrorRatePercent: sample.ErrorRatePercent,
		QueueLength:      sample.QueueLength,
		Goroutines:       sample.Goroutines,
	}
	if !sample.SampledAt.IsZero() {
		dto.SampledAt = sample.SampledAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

func overviewToDTO(overview usecase.Overview) overviewDTO {
	return overviewDTO{
		Breakers: breakerSnapshotsToDTO(overview.Breakers),
		Aggregate: breakerAggregateDTO{
			Total:              overview.Aggregate.Total,
			OpenCount:          overview.Aggregate.OpenCount,
			OverallFailureRate: overview.Aggregate.OverallFailureRate,
		},
		Degradation: degradationStatusToDTO(overview.Degradation),
		System:      systemMetricsToDTO(overview.System),
		GeneratedAt: overview.GeneratedAt.UTC().Format(time.RFC3339Nano),
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/audit"
	"github.com/riskibarqy/faultline/internal/observability"
	"github.com/riskibarqy/faultline/internal/platform/id"
	"github.com/riskibarqy/faultline/internal/platform/logging"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
)

// BreakerService is the control plane around the breaker registry: it owns
// the side effects of state changes (audit, alerts, metrics, logs) and maps
// registry errors to usecase sentinels.
type BreakerService struct {
	registry  *resilience.Registry
	defaults  resilience.Config
	auditRepo audit.Repository
	alerts    *AlertDispatcher
	metrics   *observability.Metrics
	logger    *logging.Logger
	ids       id.Generator
	now       func() time.Time
}

func NewBreakerService(
	registry *resilience.Registry,
	defaults resilience.Config,
	auditRepo audit.Repository,
	alerts *AlertDispatcher,
	metrics *observability.Metrics,
	logger *logging.Logger,
) *BreakerService {
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &BreakerService{
		registry:  registry,
		defaults:  defaults,
		auditRepo: auditRepo,
		alerts:    alerts,
		metrics:   metrics,
		logger:    logger,
		ids:       id.NewRandomGenerator(),
		now:       time.Now,
	}
	registry.SetStateChangeHook(s.onStateChange)

	return s
}

func (s *BreakerService) Registry() *resilience.Registry {
	return s.registry
}

// Execute runs fn behind the named breaker, creating it from the default
// config on first use.
func (s *BreakerService) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	return s.ExecuteWithFallback(ctx, name, fn, nil)
}

func (s *BreakerService) ExecuteWithFallback(
	ctx context.Context,
	name string,
	fn func(context.Context) error,
	fallback func(context.Context, error) error,
) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: breaker name is required", ErrInvalidInput)
	}

	b, err := s.registry.GetOrCreate(name, s.defaults)
	if err != nil {
		return fmt.Errorf("%w: breaker %s: %v", ErrInvalidInput, name, err)
	}

	err = b.ExecuteWithFallback(ctx, fn, fallback)
	s.metrics.ObserveBreakerCall(name, callOutcomeLabel(err))

	return err
}

// Status returns the snapshot for one breaker.
func (s *BreakerService) Status(_ context.Context, name string) (resilience.BreakerSnapshot, error) {
	snap, err := s.registry.Snapshot(strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, resilience.ErrBreakerNotFound) {
			return resilience.BreakerSnapshot{}, fmt.Errorf("%w: breaker %s", ErrNotFound, name)
		}
		return resilience.BreakerSnapshot{}, err
	}
	return snap, nil
}

// Statuses returns every breaker snapshot sorted by name.
func (s *BreakerService) Statuses(_ context.Context) []resilience.BreakerSnapshot {
	return s.registry.Snapshots()
}

// ForceOpen pins the named breaker open for maintenance or manual isolation.
func (s *BreakerService) ForceOpen(ctx context.Context, name, reason string) (resilience.BreakerSnapshot, error) {
	b, ok := s.registry.Get(strings.TrimSpace(name))
	if !ok {
		return resilience.BreakerSnapshot{}, fmt.Errorf("%w: breaker %s", ErrNotFound, name)
	}

	b.ForceOpen(forcedReason(reason, "forced open by operator"))
	s.logger.WarnContext(ctx, "circuit breaker forced open", "breaker", b.Name(), "reason", reason)

	return b.Snapshot(), nil
}

// ForceClose lifts a forced-open pin.
func (s *BreakerService) ForceClose(ctx context.Context, name, reason string) (resilience.BreakerSnapshot, error) {
	b, ok := s.registry.Get(strings.TrimSpace(name))
	if !ok {
		return resilience.BreakerSnapshot{}, fmt.Errorf("%w: breaker %s", ErrNotFound, name)
	}

	b.ForceClose(forcedReason(reason, "forced closed by operator"))
	s.logger.InfoContext(ctx, "circuit breaker forced closed", "breaker", b.Name(), "reason", reason)

	return b.Snapshot(), nil
}

// Remove drops the breaker. Reports whether anything was removed.
func (s *BreakerService) Remove(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if _, ok := s.registry.Get(name); !ok {
		return false
	}

	s.registry.Remove(name)
	s.metrics.RemoveBreaker(name)
	s.logger.InfoContext(ctx, "circuit breaker removed", "breaker", name)

	return true
}

func (s *BreakerService) Aggregate(_ context.Context) resilience.BreakerAggregate {
	return s.registry.Aggregate()
}

// onStateChange fans one transition out to metrics, logs, audit, and alerts.
// It runs on the goroutine that caused the transition, so the durable write
// is handed off.
func (s *BreakerService) onStateChange(change resilience.StateChange) {
	s.metrics.SetBreakerState(change.Name, breakerStateMetric(change.To))
	s.metrics.ObserveBreakerTransition(change.Name, change.To.String())

	ctx := context.Background()
	if change.To == resilience.StateOpen {
		s.logger.WarnContext(ctx, "circuit breaker state changed",
			"breaker", change.Name, "from", change.From.String(), "to", change.To.String(), "reason", change.Reason)
	} else {
		s.logger.InfoContext(ctx, "circuit breaker state changed",
			"breaker", change.Name, "from", change.From.String(), "to", change.To.String(), "reason", change.Reason)
	}

	go s.recordAudit(ctx, change)

	if change.To == resilience.StateOpen && s.alerts != nil {
		s.alerts.Dispatch(ctx, Alert{
			Kind:     "breaker_opened",
			Severity: SeverityWarning,
			Subject:  change.Name,
			Message:  fmt.Sprintf("circuit breaker %s opened: %s", change.Name, change.Reason),
			Fields: map[string]string{
				"from":   change.From.String(),
				"to":     change.To.String(),
				"reason": change.Reason,
			},
			At: change.At,
		})
	}
}

func (s *BreakerService) recordAudit(ctx context.Context, change resilience.StateChange) {
	if s.auditRepo == nil {
		return
	}

	eventID, err := s.ids.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate audit event id failed", "breaker", change.Name, "error", err)
		return
	}

	event := audit.Event{
		ID:         eventID,
		Source:     audit.SourceBreaker,
		Subject:    change.Name,
		EventType:  "state_change",
		FromState:  change.From.String(),
		ToState:    change.To.String(),
		Reason:     change.Reason,
		OccurredAt: change.At.UTC(),
	}
	if err := s.auditRepo.Insert(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record breaker audit event failed",
			"breaker", change.Name, "to", change.To.String(), "error", err)
	}
}

func callOutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "rejected"
	default:
		return "failure"
	}
}

func breakerStateMetric(state resilience.State) int {
	switch state {
	case resilience.StateOpen:
		return 1
	case resilience.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func forcedReason(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}
	return strings.TrimSpace(reason)
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/audit"
	"github.com/riskibarqy/faultline/internal/observability"
	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/platform/id"
	"github.com/riskibarqy/faultline/internal/platform/logging"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
)

// MetricsSource supplies one system pressure sample per evaluation cycle.
type MetricsSource interface {
	GetSystemMetrics(ctx context.Context) (degradation.SystemMetrics, error)
}

type DegradationConfig struct {
	EvalInterval   time.Duration
	RecoveryCycles int
	HistorySize    int
	RecentHistory  int
}

// DegradationStatus is the externally visible controller state.
type DegradationStatus struct {
	Level            degradation.Level
	LevelName        string
	Pinned           bool
	PinReason        string
	ActiveStrategies []string
	ConsecutiveClean int
	RecentHistory    []degradation.Event
}

// DegradationService owns the global degradation level. An evaluation loop
// escalates on fired rules and recovers one step at a time after enough
// consecutive clean cycles; operators can pin the level manually, which
// suspends automatic control until Recover.
type DegradationService struct {
	engine   *degradation.Engine
	gate     *degradation.Gate
	history  *degradation.History
	source   MetricsSource
	registry *resilience.Registry

	auditRepo audit.Repository
	alerts    *AlertDispatcher
	metrics   *observability.Metrics
	logger    *logging.Logger
	ids       id.Generator
	now       func() time.Time

	level atomic.Int32

	mu             sync.Mutex
	pinned         bool
	pinReason      string
	cleanStreak    int
	recoveryCycles int
	evalInterval   time.Duration

	loopMu   sync.Mutex
	loopStop context.CancelFunc
	loopDone chan struct{}

	recentHistory int
}

func NewDegradationService(
	engine *degradation.Engine,
	gate *degradation.Gate,
	source MetricsSource,
	registry *resilience.Registry,
	cfg DegradationConfig,
	auditRepo audit.Repository,
	alerts *AlertDispatcher,
	metrics *observability.Metrics,
	logger *logging.Logger,
) (*DegradationService, error) {
	if engine == nil {
		var err error
		engine, err = degradation.NewEngine(nil)
		if err != nil {
			return nil, err
		}
	}
	if gate == nil {
		gate = degradation.NewGate(nil)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: metrics source is required", ErrInvalidInput)
	}
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = 10 * time.Second
	}
	if cfg.RecoveryCycles <= 0 {
		cfg.RecoveryCycles = 3
	}
	if cfg.RecentHistory <= 0 {
		cfg.RecentHistory = 10
	}

	return &DegradationService{
		engine:         engine,
		gate:           gate,
		history:        degradation.NewHistory(cfg.HistorySize),
		source:         source,
		registry:       registry,
		auditRepo:      auditRepo,
		alerts:         alerts,
		metrics:        metrics,
		logger:         logger,
		ids:            id.NewRandomGenerator(),
		now:            time.Now,
		recoveryCycles: cfg.RecoveryCycles,
		evalInterval:   cfg.EvalInterval,
		recentHistory:  cfg.RecentHistory,
	}, nil
}

// Start launches the evaluation loop. Starting a running service is a no-op.
func (s *DegradationService) Start(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.loopStop != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.loopStop = cancel
	s.loopDone = make(chan struct{})

	go s.run(loopCtx, s.loopDone)
	s.logger.InfoContext(ctx, "degradation loop started", "eval_interval", s.currentInterval().String())
}

// Stop halts the loop and waits for the in-flight cycle, bounded by ctx.
// Stopping a stopped service is a no-op.
func (s *DegradationService) Stop(ctx context.Context) {
	s.loopMu.Lock()
	cancel, done := s.loopStop, s.loopDone
	s.loopStop, s.loopDone = nil, nil
	s.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "degradation loop stop timed out", "error", ctx.Err())
	}
}

func (s *DegradationService) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.runCycle(ctx)
		// Re-arm with the current interval so policy reloads take effect.
		timer.Reset(s.currentInterval())
	}
}

func (s *DegradationService) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evalInterval
}

func (s *DegradationService) runCycle(ctx context.Context) {
	sample, err := s.source.GetSystemMetrics(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "system metrics sample failed, skipping cycle", "error", err)
		return
	}

	input := degradation.Input{
		Metrics:  sample,
		Breakers: s.registry.Aggregate(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	decision := s.engine.Evaluate(input, s.now())
	for i := range decision.Conflicts {
		s.logger.WarnContext(ctx, "degradation rule conflict", "conflict", &decision.Conflicts[i])
	}

	current := degradation.Level(s.level.Load())

	if s.pinned {
		s.logger.InfoContext(ctx, "degradation decision shadowed by pin",
			"pin_reason", s.pinReason,
			"current_level", current.String(),
			"decision_target", decision.Target.String(),
			"fired", strings.Join(decision.Fired, ","))
		return
	}

	if !decision.Clean {
		s.cleanStreak = 0
		if decision.Target > current {
			s.applyLevel(ctx, decision.Target,
				fmt.Sprintf("rules fired: %s", strings.Join(decision.Fired, ", ")),
				strings.Join(decision.Fired, ","), "escalate")
		}
		return
	}

	s.cleanStreak++
	if current > degradation.LevelNormal && s.cleanStreak >= s.recoveryCycles {
		s.cleanStreak = 0
		s.applyLevel(ctx, current-1,
			fmt.Sprintf("%d consecutive clean cycles", s.recoveryCycles), "", "recover")
	}
}

// applyLevel moves the level and fans out the side effects. Held-lock helper.
func (s *DegradationService) applyLevel(ctx context.Context, to degradation.Level, reason, rule, direction string) {
	from := degradation.Level(s.level.Load())
	s.level.Store(int32(to))

	event := degradation.Event{
		At:     s.now().UTC(),
		From:   from,
		To:     to,
		Reason: reason,
		Rule:   rule,
	}
	s.history.Append(event)

	s.metrics.SetDegradationLevel(int(to))
	s.metrics.ObserveDegradationTransition(direction)

	if to > from {
		s.logger.WarnContext(ctx, "degradation level raised",
			"from", from.String(), "to", to.String(), "reason", reason, "rule", rule)
	} else {
		s.logger.InfoContext(ctx, "degradation level lowered",
			"from", from.String(), "to", to.String(), "reason", reason)
	}

	go s.recordAudit(context.WithoutCancel(ctx), event, direction)

	if s.alerts != nil {
		severity := SeverityInfo
		if to >= degradation.LevelHeavy {
			severity = SeverityCritical
		} else if to > from {
			severity = SeverityWarning
		}
		s.alerts.Dispatch(ctx, Alert{
			Kind:     "degradation_" + direction,
			Severity: severity,
			Subject:  "degradation",
			Message:  fmt.Sprintf("degradation level %s -> %s: %s", from, to, reason),
			Fields: map[string]string{
				"from": from.String(),
				"to":   to.String(),
				"rule": rule,
			},
			At: event.At,
		})
	}
}

func (s *DegradationService) recordAudit(ctx context.Context, event degradation.Event, eventType string) {
	if s.auditRepo == nil {
		return
	}

	eventID, err := s.ids.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate audit event id failed", "error", err)
		return
	}

	record := audit.Event{
		ID:         eventID,
		Source:     audit.SourceDegradation,
		Subject:    "degradation",
		EventType:  eventType,
		FromState:  event.From.String(),
		ToState:    event.To.String(),
		Reason:     event.Reason,
		OccurredAt: event.At,
	}
	if event.Rule != "" {
		record.Detail = map[string]any{"rule": event.Rule}
	}
	if err := s.auditRepo.Insert(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "record degradation audit event failed",
			"to", event.To.String(), "error", err)
	}
}

// SetLevel pins the level manually. Automatic control stays suspended until
// Recover; pinning to the current level still pins.
func (s *DegradationService) SetLevel(ctx context.Context, level degradation.Level, reason string) (DegradationStatus, error) {
	if !level.Valid() {
		return DegradationStatus{}, fmt.Errorf("%w: degradation level %d out of range", ErrInvalidInput, level)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "pinned by operator"
	}

	s.mu.Lock()
	s.pinned = true
	s.pinReason = reason
	s.cleanStreak = 0
	current := degradation.Level(s.level.Load())
	direction := "pin"
	if level > current {
		direction = "escalate"
	} else if level < current {
		direction = "recover"
	}
	s.applyLevel(ctx, level, reason, "", direction)
	s.mu.Unlock()

	return s.Status(), nil
}

// Recover lifts the pin and resets the clean streak; the loop takes over from
// the current level.
func (s *DegradationService) Recover(ctx context.Context, reason string) DegradationStatus {
	if strings.TrimSpace(reason) == "" {
		reason = "automatic control restored by operator"
	}

	s.mu.Lock()
	wasPinned := s.pinned
	s.pinned = false
	s.pinReason = ""
	s.cleanStreak = 0
	s.mu.Unlock()

	if wasPinned {
		current := degradation.Level(s.level.Load())
		event := degradation.Event{At: s.now().UTC(), From: current, To: current, Reason: reason}
		s.history.Append(event)
		go s.recordAudit(context.WithoutCancel(ctx), event, "unpin")
		s.logger.InfoContext(ctx, "degradation pin lifted", "level", current.String(), "reason", reason)
	}

	return s.Status()
}

// Level is the current degradation level, lock-free.
func (s *DegradationService) Level() degradation.Level {
	return degradation.Level(s.level.Load())
}

func (s *DegradationService) Status() DegradationStatus {
	level := s.Level()

	s.mu.Lock()
	pinned, pinReason, cleanStreak := s.pinned, s.pinReason, s.cleanStreak
	s.mu.Unlock()

	disabled := s.gate.DisabledAt(level)
	strategies := make([]string, 0, len(disabled))
	for _, service := range disabled {
		strategies = append(strategies, "disable:"+string(service))
	}

	return DegradationStatus{
		Level:            level,
		LevelName:        level.String(),
		Pinned:           pinned,
		PinReason:        pinReason,
		ActiveStrategies: strategies,
		ConsecutiveClean: cleanStreak,
		RecentHistory:    s.history.Recent(s.recentHistory),
	}
}

func (s *DegradationService) History(limit int) []degradation.Event {
	return s.history.Recent(limit)
}

// IsAvailable reports whether the service class runs at the current level.
func (s *DegradationService) IsAvailable(service degradation.ServiceType) bool {
	return s.gate.Available(s.Level(), service)
}

// Guard executes fn when the service class is available; otherwise the
// fallback runs, or the typed unavailability error is returned.
func (s *DegradationService) Guard(
	ctx context.Context,
	service degradation.ServiceType,
	fn func(context.Context) error,
	fallback func(context.Context) error,
) error {
	if s.IsAvailable(service) {
		return fn(ctx)
	}
	if fallback != nil {
		return fallback(ctx)
	}
	return &degradation.ServiceUnavailableError{Service: service, Level: s.Level()}
}

// Reconfigure swaps rules, gate overrides, and loop tuning in one step. The
// hot-reload path from policy updates.
func (s *DegradationService) Reconfigure(
	rules []degradation.Rule,
	overrides map[degradation.ServiceType]degradation.Level,
	evalInterval time.Duration,
	recoveryCycles int,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetRules(rules); err != nil {
		return err
	}
	s.gate.SetOverrides(overrides)
	if evalInterval > 0 {
		s.evalInterval = evalInterval
	}
	if recoveryCycles > 0 {
		s.recoveryCycles = recoveryCycles
	}

	return nil
}

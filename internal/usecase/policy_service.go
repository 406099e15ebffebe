package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/audit"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
	"github.com/riskibarqy/faultline/internal/platform/id"
	"github.com/riskibarqy/faultline/internal/platform/logging"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
)

// PolicySource provides the runtime policy and notifies on verified changes.
// Watch blocks until ctx ends.
type PolicySource interface {
	Load(ctx context.Context) (faultpolicy.Policy, error)
	Watch(ctx context.Context, onChange func(faultpolicy.Policy)) error
}

// PolicyService applies fault policies to the running registry and
// degradation controller, and keeps them in sync with the policy source.
type PolicyService struct {
	source      PolicySource
	registry    *resilience.Registry
	degradation *DegradationService
	auditRepo   audit.Repository
	logger      *logging.Logger
	ids         id.Generator
	now         func() time.Time
}

func NewPolicyService(
	source PolicySource,
	registry *resilience.Registry,
	degradation *DegradationService,
	auditRepo audit.Repository,
	logger *logging.Logger,
) *PolicyService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PolicyService{
		source:      source,
		registry:    registry,
		degradation: degradation,
		auditRepo:   auditRepo,
		logger:      logger,
		ids:         id.NewRandomGenerator(),
		now:         time.Now,
	}
}

// Apply validates the policy and swaps it in: breakers are created or
// reconfigured in place, rules and gate overrides replace the active set.
func (s *PolicyService) Apply(ctx context.Context, policy faultpolicy.Policy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for _, b := range policy.Breakers {
		if err := s.registry.Configure(b.Name, b.Config()); err != nil {
			return fmt.Errorf("configure breaker %s: %w", b.Name, err)
		}
	}

	if s.degradation != nil {
		rules, err := policy.DegradationRules()
		if err != nil {
			return fmt.Errorf("convert degradation rules: %w", err)
		}
		if err := s.degradation.Reconfigure(rules, policy.GateOverrides(), policy.EvalInterval(), policy.RecoveryCycles()); err != nil {
			return fmt.Errorf("apply degradation policy: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "fault policy applied",
		"breakers", len(policy.Breakers),
		"rules", len(policy.Rules),
		"gate_overrides", len(policy.Gate),
		"eval_interval", policy.EvalInterval().String(),
		"recovery_cycles", policy.RecoveryCycles())

	go s.recordAudit(context.WithoutCancel(ctx), policy)

	return nil
}

// Boot loads and applies the initial policy. A failure here should stop the
// process from starting.
func (s *PolicyService) Boot(ctx context.Context) error {
	policy, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load initial fault policy: %w", err)
	}
	if err := s.Apply(ctx, policy); err != nil {
		return fmt.Errorf("apply initial fault policy: %w", err)
	}
	return nil
}

// Watch follows the source until ctx ends. An invalid change is rejected and
// the previous policy stays active.
func (s *PolicyService) Watch(ctx context.Context) error {
	return s.source.Watch(ctx, func(changed faultpolicy.Policy) {
		if err := s.Apply(ctx, changed); err != nil {
			s.logger.ErrorContext(ctx, "fault policy change rejected, previous policy stays active", "error", err)
		}
	})
}

// Run is Boot followed by Watch.
func (s *PolicyService) Run(ctx context.Context) error {
	if err := s.Boot(ctx); err != nil {
		return err
	}
	return s.Watch(ctx)
}

func (s *PolicyService) recordAudit(ctx context.Context, policy faultpolicy.Policy) {
	if s.auditRepo == nil {
		return
	}

	eventID, err := s.ids.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate audit event id failed", "error", err)
		return
	}

	event := audit.Event{
		ID:        eventID,
		Source:    audit.SourcePolicy,
		Subject:   "policy",
		EventType: "policy_applied",
		Detail: map[string]any{
			"breakers":       len(policy.Breakers),
			"rules":          len(policy.Rules),
			"gate_overrides": len(policy.Gate),
		},
		OccurredAt: s.now().UTC(),
	}
	if err := s.auditRepo.Insert(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record policy audit event failed", "error", err)
	}
}

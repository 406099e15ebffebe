package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
	usecasemock "github.com/riskibarqy/faultline/internal/mocks/usecase"
	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
	"github.com/riskibarqy/faultline/internal/usecase"
	"github.com/stretchr/testify/mock"
)

type policyFixture struct {
	registry *resilience.Registry
	engine   *degradation.Engine
	gate     *degradation.Gate
	svc      *usecase.DegradationService
}

func newPolicyFixture(t *testing.T) *policyFixture {
	t.Helper()

	engine, err := degradation.NewEngine(nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	gate := degradation.NewGate(nil)
	registry := resilience.NewRegistry()

	svc, err := usecase.NewDegradationService(engine, gate, usecasemock.NewMetricsSource(t), registry,
		usecase.DegradationConfig{}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("new degradation service: %v", err)
	}

	return &policyFixture{registry: registry, engine: engine, gate: gate, svc: svc}
}

func validPolicy() faultpolicy.Policy {
	return faultpolicy.Policy{
		Breakers: []faultpolicy.BreakerPolicy{
			{Name: "payments", FailureThreshold: 40, OpenTimeout: faultpolicy.Duration(15 * time.Second)},
		},
		Rules: []faultpolicy.RulePolicy{
			{Name: "cpu-high", Metric: "cpu", Threshold: 80, TargetLevel: degradation.LevelModerate, Priority: 10},
		},
		Gate: []faultpolicy.GateOverride{
			{Service: "SEARCH", DisableAt: degradation.LevelLight},
		},
		Engine: faultpolicy.EnginePolicy{
			EvalInterval:   faultpolicy.Duration(5 * time.Second),
			RecoveryCycles: 4,
		},
	}
}

func TestPolicyService_Apply_ConfiguresBreakersRulesAndGate(t *testing.T) {
	t.Parallel()

	f := newPolicyFixture(t)
	svc := usecase.NewPolicyService(nil, f.registry, f.svc, nil, nil)

	if err := svc.Apply(context.Background(), validPolicy()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, ok := f.registry.Get("payments"); !ok {
		t.Fatal("expected breaker created from policy")
	}

	rules := f.engine.Rules()
	if len(rules) != 1 || rules[0].Name != "cpu-high" {
		t.Fatalf("unexpected rules: %v", rules)
	}

	if f.gate.Available(degradation.LevelLight, degradation.ServiceSearch) {
		t.Fatal("expected SEARCH disabled at LIGHT under the override")
	}
}

func TestPolicyService_Apply_RejectsInvalidPolicyUntouched(t *testing.T) {
	t.Parallel()

	f := newPolicyFixture(t)
	svc := usecase.NewPolicyService(nil, f.registry, f.svc, nil, nil)

	bad := faultpolicy.Policy{
		Breakers: []faultpolicy.BreakerPolicy{{Name: "ghost", FailureThreshold: 40}},
		Rules:    []faultpolicy.RulePolicy{{Name: "broken", Metric: "nope", Threshold: 1, TargetLevel: degradation.LevelLight}},
	}

	if err := svc.Apply(context.Background(), bad); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, ok := f.registry.Get("ghost"); ok {
		t.Fatal("rejected policy must leave the registry untouched")
	}
}

func TestPolicyService_Run_InitialLoadFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newPolicyFixture(t)
	source := usecasemock.NewPolicySource(t)
	svc := usecase.NewPolicyService(source, f.registry, f.svc, nil, nil)

	errBoom := errors.New("source down")
	source.On("Load", mock.Anything).Return(faultpolicy.Policy{}, errBoom).Once()

	if err := svc.Run(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected load error surfaced, got %v", err)
	}
}

func TestPolicyService_Run_AppliesChangesAndRejectsBadOnes(t *testing.T) {
	t.Parallel()

	f := newPolicyFixture(t)
	source := usecasemock.NewPolicySource(t)
	svc := usecase.NewPolicyService(source, f.registry, f.svc, nil, nil)

	initial := faultpolicy.Policy{
		Breakers: []faultpolicy.BreakerPolicy{{Name: "alpha", FailureThreshold: 40}},
	}
	changed := faultpolicy.Policy{
		Breakers: []faultpolicy.BreakerPolicy{{Name: "beta", FailureThreshold: 60}},
	}
	bad := faultpolicy.Policy{
		Breakers: []faultpolicy.BreakerPolicy{{Name: "ghost", FailureThreshold: 40}},
		Rules:    []faultpolicy.RulePolicy{{Name: "broken", Metric: "nope", Threshold: 1, TargetLevel: degradation.LevelLight}},
	}

	source.On("Load", mock.Anything).Return(initial, nil).Once()
	source.
		On("Watch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			onChange := args.Get(1).(func(faultpolicy.Policy))
			onChange(changed)
			onChange(bad)
		}).
		Return(nil).
		Once()

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, ok := f.registry.Get("alpha"); !ok {
		t.Fatal("initial policy breaker missing")
	}
	if _, ok := f.registry.Get("beta"); !ok {
		t.Fatal("changed policy breaker missing")
	}
	if _, ok := f.registry.Get("ghost"); ok {
		t.Fatal("rejected change must not reach the registry")
	}
}

package faultpolicy

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
)

// Duration carries time.Duration through JSON and YAML policy documents as a
// Go duration string ("30s", "2m").
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// BreakerPolicy declares one named circuit breaker. Zero fields fall back to
// resilience defaults when the breaker is built.
type BreakerPolicy struct {
	Name                  string   `json:"name" yaml:"name"`
	FailureThreshold      float64  `json:"failureThreshold" yaml:"failureThreshold"`
	ThresholdKind         string   `json:"thresholdKind,omitempty" yaml:"thresholdKind,omitempty"`
	SuccessThreshold      int      `json:"successThreshold,omitempty" yaml:"successThreshold,omitempty"`
	OpenTimeout           Duration `json:"openTimeout,omitempty" yaml:"openTimeout,omitempty"`
	MonitoringPeriod      Duration `json:"monitoringPeriod,omitempty" yaml:"monitoringPeriod,omitempty"`
	MinimumCalls          int      `json:"minimumCalls,omitempty" yaml:"minimumCalls,omitempty"`
	SlowCallThreshold     Duration `json:"slowCallThreshold,omitempty" yaml:"slowCallThreshold,omitempty"`
	SlowCallRateThreshold float64  `json:"slowCallRateThreshold,omitempty" yaml:"slowCallRateThreshold,omitempty"`
	WindowSize            int      `json:"windowSize,omitempty" yaml:"windowSize,omitempty"`
}

func (b BreakerPolicy) Config() resilience.Config {
	return resilience.Config{
		FailureThreshold:      b.FailureThreshold,
		FailureThresholdKind:  resilience.ThresholdKind(b.ThresholdKind),
		SuccessThreshold:      b.SuccessThreshold,
		OpenTimeout:           b.OpenTimeout.Std(),
		MonitoringPeriod:      b.MonitoringPeriod.Std(),
		MinimumCalls:          b.MinimumCalls,
		SlowCallThreshold:     b.SlowCallThreshold.Std(),
		SlowCallRateThreshold: b.SlowCallRateThreshold,
		WindowSize:            b.WindowSize,
	}
}

// RulePolicy declares one degradation rule.
type RulePolicy struct {
	Name        string            `json:"name" yaml:"name"`
	Metric      string            `json:"metric" yaml:"metric"`
	Threshold   float64           `json:"threshold" yaml:"threshold"`
	TargetLevel degradation.Level `json:"targetLevel" yaml:"targetLevel"`
	Priority    int               `json:"priority,omitempty" yaml:"priority,omitempty"`
	Cooldown    Duration          `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
}

func (r RulePolicy) Rule() (degradation.Rule, error) {
	metric, err := degradation.ParseMetric(r.Metric)
	if err != nil {
		return degradation.Rule{}, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	rule := degradation.Rule{
		Name:        r.Name,
		Metric:      metric,
		Threshold:   r.Threshold,
		TargetLevel: r.TargetLevel,
		Priority:    r.Priority,
		Cooldown:    r.Cooldown.Std(),
	}
	if err := rule.Validate(); err != nil {
		return degradation.Rule{}, err
	}
	return rule, nil
}

// GateOverride raises or lowers the level at which a service class is shed.
type GateOverride struct {
	Service   string            `json:"service" yaml:"service"`
	DisableAt degradation.Level `json:"disableAt" yaml:"disableAt"`
}

// EnginePolicy tunes the evaluation loop.
type EnginePolicy struct {
	EvalInterval   Duration `json:"evalInterval,omitempty" yaml:"evalInterval,omitempty"`
	RecoveryCycles int      `json:"recoveryCycles,omitempty" yaml:"recoveryCycles,omitempty"`
}

// Policy is the hot-reloadable runtime configuration for the whole fault
// layer: breakers, degradation rules, gate overrides, and loop tuning.
type Policy struct {
	Breakers []BreakerPolicy `json:"breakers,omitempty" yaml:"breakers,omitempty"`
	Rules    []RulePolicy    `json:"rules,omitempty" yaml:"rules,omitempty"`
	Gate     []GateOverride  `json:"gate,omitempty" yaml:"gate,omitempty"`
	Engine   EnginePolicy    `json:"engine,omitempty" yaml:"engine,omitempty"`
}

const (
	DefaultEvalInterval   = 10 * time.Second
	DefaultRecoveryCycles = 3
)

// Default is the baseline policy applied when no source is configured.
func Default() Policy {
	return Policy{
		Rules: []RulePolicy{
			{Name: "cpu-high", Metric: "cpu", Threshold: 80, TargetLevel: degradation.LevelLight, Priority: 10, Cooldown: Duration(time.Minute)},
			{Name: "cpu-critical", Metric: "cpu", Threshold: 92, TargetLevel: degradation.LevelHeavy, Priority: 40, Cooldown: Duration(time.Minute)},
			{Name: "memory-high", Metric: "memory", Threshold: 85, TargetLevel: degradation.LevelModerate, Priority: 20, Cooldown: Duration(time.Minute)},
			{Name: "error-rate-high", Metric: "error_rate", Threshold: 25, TargetLevel: degradation.LevelModerate, Priority: 30, Cooldown: Duration(2 * time.Minute)},
			{Name: "latency-high", Metric: "p95_latency_ms", Threshold: 1500, TargetLevel: degradation.LevelLight, Priority: 10, Cooldown: Duration(time.Minute)},
			{Name: "breakers-open", Metric: "breaker_open_count", Threshold: 3, TargetLevel: degradation.LevelHeavy, Priority: 50, Cooldown: Duration(time.Minute)},
		},
		Engine: EnginePolicy{
			EvalInterval:   Duration(DefaultEvalInterval),
			RecoveryCycles: DefaultRecoveryCycles,
		},
	}
}

// Validate checks the whole document so a bad reload can be rejected without
// touching the running configuration.
func (p Policy) Validate() error {
	breakerNames := make(map[string]struct{}, len(p.Breakers))
	for _, b := range p.Breakers {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("breaker policy: name cannot be empty")
		}
		if _, dup := breakerNames[b.Name]; dup {
			return fmt.Errorf("breaker policy: duplicate name %q", b.Name)
		}
		breakerNames[b.Name] = struct{}{}
		if _, err := resilience.NewCircuitBreaker(b.Name, b.Config()); err != nil {
			return fmt.Errorf("breaker policy %q: %w", b.Name, err)
		}
	}

	ruleNames := make(map[string]struct{}, len(p.Rules))
	for _, r := range p.Rules {
		if _, dup := ruleNames[r.Name]; dup {
			return fmt.Errorf("rule policy: duplicate name %q", r.Name)
		}
		ruleNames[r.Name] = struct{}{}
		if _, err := r.Rule(); err != nil {
			return err
		}
	}

	for _, o := range p.Gate {
		service, err := degradation.ParseServiceType(o.Service)
		if err != nil {
			return fmt.Errorf("gate override: %w", err)
		}
		if service == degradation.ServiceCore {
			return fmt.Errorf("gate override: %s cannot be disabled", degradation.ServiceCore)
		}
		if !o.DisableAt.Valid() {
			return fmt.Errorf("gate override %q: invalid level %d", o.Service, o.DisableAt)
		}
	}

	if p.Engine.EvalInterval < 0 {
		return fmt.Errorf("engine policy: eval interval must be >= 0")
	}
	if p.Engine.RecoveryCycles < 0 {
		return fmt.Errorf("engine policy: recovery cycles must be >= 0")
	}

	return nil
}

// DegradationRules converts the rule policies. Validate first; conversion
// errors here mean an unvalidated policy slipped through.
func (p Policy) DegradationRules() ([]degradation.Rule, error) {
	rules := make([]degradation.Rule, 0, len(p.Rules))
	for _, r := range p.Rules {
		rule, err := r.Rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// GateOverrides converts the override list into the gate's threshold form.
func (p Policy) GateOverrides() map[degradation.ServiceType]degradation.Level {
	if len(p.Gate) == 0 {
		return nil
	}
	out := make(map[degradation.ServiceType]degradation.Level, len(p.Gate))
	for _, o := range p.Gate {
		service, err := degradation.ParseServiceType(o.Service)
		if err != nil {
			continue
		}
		out[service] = o.DisableAt
	}
	return out
}

// EvalInterval returns the loop interval with the default applied.
func (p Policy) EvalInterval() time.Duration {
	if p.Engine.EvalInterval <= 0 {
		return DefaultEvalInterval
	}
	return p.Engine.EvalInterval.Std()
}

// RecoveryCycles returns the clean-cycle count with the default applied.
func (p Policy) RecoveryCycles() int {
	if p.Engine.RecoveryCycles <= 0 {
		return DefaultRecoveryCycles
	}
	return p.Engine.RecoveryCycles
}

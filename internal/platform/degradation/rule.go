package degradation

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/faultline/internal/platform/resilience"
)

// Metric names one observable the rule engine can threshold on.
type Metric string

const (
	MetricCPU                Metric = "cpu"
	MetricMemory             Metric = "memory"
	MetricP95LatencyMs       Metric = "p95_latency_ms"
	MetricErrorRate          Metric = "error_rate"
	MetricQueueLength        Metric = "queue_length"
	MetricBreakerOpenCount   Metric = "breaker_open_count"
	MetricBreakerFailureRate Metric = "breaker_failure_rate"
)

func ParseMetric(v string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(v)))
	switch m {
	case MetricCPU, MetricMemory, MetricP95LatencyMs, MetricErrorRate,
		MetricQueueLength, MetricBreakerOpenCount, MetricBreakerFailureRate:
		return m, nil
	default:
		return "", fmt.Errorf("unknown degradation metric %q", v)
	}
}

// SystemMetrics is one sample of externally observed system pressure.
type SystemMetrics struct {
	CPUPercent       float64
	MemoryPercent    float64
	P95LatencyMs     float64
	ErrorRatePercent float64
	QueueLength      float64
	Goroutines       int
	SampledAt        time.Time
}

// Rule escalates to TargetLevel while its metric stays above Threshold.
// Cooldown suppresses re-firing to keep the level from flapping.
type Rule struct {
	Name        string
	Metric      Metric
	Threshold   float64
	TargetLevel Level
	Priority    int
	Cooldown    time.Duration
}

func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("degradation rule name cannot be empty")
	}
	if _, err := ParseMetric(string(r.Metric)); err != nil {
		return fmt.Errorf("degradation rule %q: %w", r.Name, err)
	}
	if !r.TargetLevel.Valid() {
		return fmt.Errorf("degradation rule %q: invalid target level %d", r.Name, r.TargetLevel)
	}
	if r.TargetLevel == LevelNormal {
		return fmt.Errorf("degradation rule %q: target level must be above NORMAL", r.Name)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("degradation rule %q: cooldown must be >= 0", r.Name)
	}
	return nil
}

// Input is everything one evaluation cycle looks at.
type Input struct {
	Metrics  SystemMetrics
	Breakers resilience.BreakerAggregate
}

func (in Input) value(m Metric) float64 {
	switch m {
	case MetricCPU:
		return in.Metrics.CPUPercent
	case MetricMemory:
		return in.Metrics.MemoryPercent
	case MetricP95LatencyMs:
		return in.Metrics.P95LatencyMs
	case MetricErrorRate:
		return in.Metrics.ErrorRatePercent
	case MetricQueueLength:
		return in.Metrics.QueueLength
	case MetricBreakerOpenCount:
		return float64(in.Breakers.OpenCount)
	case MetricBreakerFailureRate:
		return in.Breakers.OverallFailureRate
	default:
		return 0
	}
}

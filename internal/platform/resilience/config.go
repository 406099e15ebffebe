package resilience

import (
	"fmt"
	"time"
)

// ThresholdKind selects how FailureThreshold is interpreted.
type ThresholdKind string

const (
	// ThresholdRate treats FailureThreshold as a failure percentage over the
	// window.
	ThresholdRate ThresholdKind = "rate"
	// ThresholdCount treats FailureThreshold as an absolute failure count.
	ThresholdCount ThresholdKind = "count"
)

// Config describes one circuit breaker. A breaker holds its config behind an
// atomic pointer; replacing it goes through UpdateConfig, never field writes.
type Config struct {
	FailureThreshold      float64
	FailureThresholdKind  ThresholdKind
	SuccessThreshold      int
	OpenTimeout           time.Duration
	MonitoringPeriod      time.Duration
	MinimumCalls          int
	SlowCallThreshold     time.Duration
	SlowCallRateThreshold float64
	WindowSize            int
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold:      50,
		FailureThresholdKind:  ThresholdRate,
		SuccessThreshold:      3,
		OpenTimeout:           30 * time.Second,
		MonitoringPeriod:      time.Minute,
		MinimumCalls:          10,
		SlowCallThreshold:     2 * time.Second,
		SlowCallRateThreshold: 0,
		WindowSize:            100,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = defaults.FailureThreshold
	}
	if c.FailureThresholdKind == "" {
		c.FailureThresholdKind = defaults.FailureThresholdKind
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = defaults.SuccessThreshold
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = defaults.OpenTimeout
	}
	if c.MonitoringPeriod == 0 {
		c.MonitoringPeriod = defaults.MonitoringPeriod
	}
	if c.MinimumCalls == 0 {
		c.MinimumCalls = defaults.MinimumCalls
	}
	if c.SlowCallThreshold == 0 {
		c.SlowCallThreshold = defaults.SlowCallThreshold
	}
	if c.WindowSize == 0 {
		c.WindowSize = defaults.WindowSize
	}
	return c
}

// Validate rejects configs that cannot drive a breaker. Zero values are
// filled by defaults before construction, so explicit negatives and
// out-of-range rates are the errors here.
func (c Config) Validate() error {
	if c.FailureThreshold <= 0 {
		return &ConfigError{Field: "FailureThreshold", Reason: "must be > 0"}
	}
	switch c.FailureThresholdKind {
	case ThresholdRate:
		if c.FailureThreshold > 100 {
			return &ConfigError{Field: "FailureThreshold", Reason: "rate must be <= 100"}
		}
	case ThresholdCount:
	default:
		return &ConfigError{Field: "FailureThresholdKind", Reason: fmt.Sprintf("unknown kind %q", c.FailureThresholdKind)}
	}
	if c.SuccessThreshold < 1 {
		return &ConfigError{Field: "SuccessThreshold", Reason: "must be >= 1"}
	}
	if c.OpenTimeout <= 0 {
		return &ConfigError{Field: "OpenTimeout", Reason: "must be > 0"}
	}
	if c.MonitoringPeriod <= 0 {
		return &ConfigError{Field: "MonitoringPeriod", Reason: "must be > 0"}
	}
	if c.MinimumCalls < 1 {
		return &ConfigError{Field: "MinimumCalls", Reason: "must be >= 1"}
	}
	if c.SlowCallThreshold < 0 {
		return &ConfigError{Field: "SlowCallThreshold", Reason: "must be >= 0"}
	}
	if c.SlowCallRateThreshold < 0 || c.SlowCallRateThreshold > 100 {
		return &ConfigError{Field: "SlowCallRateThreshold", Reason: "must be within [0, 100]"}
	}
	if c.SlowCallRateThreshold > 0 && c.SlowCallThreshold <= 0 {
		return &ConfigError{Field: "SlowCallThreshold", Reason: "must be > 0 when a slow call rate threshold is set"}
	}
	if c.WindowSize < 1 {
		return &ConfigError{Field: "WindowSize", Reason: "must be >= 1"}
	}
	return nil
}

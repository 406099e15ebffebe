package sysmetrics

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/faultline/internal/platform/degradation"
)

// ProbeFunc supplies one externally sourced gauge, e.g. host CPU utilization
// or a broker queue depth. Probes run on every sample, so keep them cheap.
type ProbeFunc func(ctx context.Context) (float64, error)

const reservoirSize = 1024

type sample struct {
	durationMs float64
	failed     bool
}

// Collector builds degradation.SystemMetrics samples from the Go runtime plus
// optional probes, and keeps a bounded reservoir of observed request outcomes
// for the latency and error-rate gauges.
type Collector struct {
	cpuProbe   ProbeFunc
	queueProbe ProbeFunc
	logger     *slog.Logger
	now        func() time.Time

	cpuWarnOnce   sync.Once
	queueWarnOnce sync.Once

	mu      sync.Mutex
	samples []sample
	head    int
	count   int
}

type Option func(*Collector)

func WithCPUProbe(probe ProbeFunc) Option {
	return func(c *Collector) { c.cpuProbe = probe }
}

func WithQueueProbe(probe ProbeFunc) Option {
	return func(c *Collector) { c.queueProbe = probe }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		now:     time.Now,
		samples: make([]sample, reservoirSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Observe records one request outcome. Old samples are overwritten once the
// reservoir fills, so the gauges always reflect recent traffic.
func (c *Collector) Observe(duration time.Duration, failed bool) {
	c.mu.Lock()
	c.samples[c.head] = sample{
		durationMs: float64(duration) / float64(time.Millisecond),
		failed:     failed,
	}
	c.head = (c.head + 1) % len(c.samples)
	if c.count < len(c.samples) {
		c.count++
	}
	c.mu.Unlock()
}

// GetSystemMetrics assembles one sample. Probe errors zero the gauge rather
// than failing the cycle; a dead probe must not stall degradation decisions.
// The first failure per probe is logged at WARN so a blind gauge is visible.
func (c *Collector) GetSystemMetrics(ctx context.Context) (degradation.SystemMetrics, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	metrics := degradation.SystemMetrics{
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  c.now(),
	}
	if ms.Sys > 0 {
		metrics.MemoryPercent = float64(ms.HeapAlloc) / float64(ms.Sys) * 100
	}

	if c.cpuProbe != nil {
		if v, err := c.cpuProbe(ctx); err == nil {
			metrics.CPUPercent = v
		} else {
			c.cpuWarnOnce.Do(func() {
				c.logger.WarnContext(ctx, "cpu probe failed, gauge reads zero", "error", err)
			})
		}
	}
	if c.queueProbe != nil {
		if v, err := c.queueProbe(ctx); err == nil {
			metrics.QueueLength = v
		} else {
			c.queueWarnOnce.Do(func() {
				c.logger.WarnContext(ctx, "queue probe failed, gauge reads zero", "error", err)
			})
		}
	}

	metrics.P95LatencyMs, metrics.ErrorRatePercent = c.reservoirGauges()

	return metrics, nil
}

func (c *Collector) reservoirGauges() (p95Ms, errorRate float64) {
	c.mu.Lock()
	durations := make([]float64, 0, c.count)
	failures := 0
	for i := 0; i < c.count; i++ {
		s := c.samples[i]
		durations = append(durations, s.durationMs)
		if s.failed {
			failures++
		}
	}
	c.mu.Unlock()

	if len(durations) == 0 {
		return 0, 0
	}

	sort.Float64s(durations)
	idx := (len(durations)*95 + 99) / 100
	if idx > 0 {
		idx--
	}
	p95Ms = durations[idx]
	errorRate = float64(failures) / float64(len(durations)) * 100

	return p95Ms, errorRate
}

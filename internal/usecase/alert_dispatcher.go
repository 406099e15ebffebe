package usecase

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/faultline/internal/observability"
	"github.com/riskibarqy/faultline/internal/platform/id"
	"github.com/riskibarqy/faultline/internal/platform/logging"
)

const defaultAlertPoolSize = 8

// AlertDispatcher fans alerts out to the sink on a bounded worker pool.
// Dispatch never blocks the caller: when every worker is busy the alert is
// dropped and counted, because a slow alert channel must not slow the fault
// layer itself.
type AlertDispatcher struct {
	sink    AlertSink
	pool    *ants.Pool
	ids     id.Generator
	metrics *observability.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewAlertDispatcher(
	sink AlertSink,
	poolSize int,
	metrics *observability.Metrics,
	logger *logging.Logger,
) (*AlertDispatcher, error) {
	if poolSize <= 0 {
		poolSize = defaultAlertPoolSize
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &AlertDispatcher{
		sink:    sink,
		pool:    pool,
		ids:     id.NewRandomGenerator(),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Dispatch hands the alert to a worker. A missing ID or timestamp is filled
// in here so callers only describe the event.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert Alert) {
	if d == nil || d.sink == nil {
		return
	}

	if alert.ID == "" {
		generated, err := d.ids.NewID()
		if err != nil {
			d.logger.WarnContext(ctx, "generate alert id failed", "kind", alert.Kind, "error", err)
			return
		}
		alert.ID = generated
	}
	if alert.At.IsZero() {
		alert.At = d.now().UTC()
	}

	// The delivery must survive the caller's request lifetime.
	sendCtx := context.WithoutCancel(ctx)

	err := d.pool.Submit(func() {
		if sendErr := d.sink.Send(sendCtx, alert); sendErr != nil {
			d.logger.WarnContext(sendCtx, "alert delivery failed",
				"alert_id", alert.ID, "kind", alert.Kind, "error", sendErr)
			return
		}
		d.metrics.AlertDelivered()
	})
	if err != nil {
		d.metrics.AlertDropped()
		d.logger.WarnContext(ctx, "alert dropped: dispatch pool full",
			"alert_id", alert.ID, "kind", alert.Kind, "error", err)
	}
}

func (d *AlertDispatcher) Close() {
	if d == nil || d.pool == nil {
		return
	}
	d.pool.Release()
}

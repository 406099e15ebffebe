package alerting

import (
	"context"

	"github.com/riskibarqy/faultline/internal/usecase"
)

// NoopSink swallows alerts when no webhook is configured.
type NoopSink struct{}

func (NoopSink) Send(_ context.Context, _ usecase.Alert) error {
	return nil
}

package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/faultline/internal/domain/audit"
	"github.com/riskibarqy/faultline/internal/platform/logging"
	"github.com/robfig/cron/v3"
)

const (
	defaultRetentionSchedule = "@hourly"
	defaultRetention         = 720 * time.Hour
)

// RetentionService prunes old audit events on a cron schedule.
type RetentionService struct {
	repo      audit.Repository
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *logging.Logger
	now       func() time.Time
}

func NewRetentionService(repo audit.Repository, retention time.Duration, schedule string, logger *logging.Logger) *RetentionService {
	if retention <= 0 {
		retention = defaultRetention
	}
	if schedule == "" {
		schedule = defaultRetentionSchedule
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &RetentionService{
		repo:      repo,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *RetentionService) Start() error {
	if s.repo == nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		s.Prune(context.Background())
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c

	s.logger.Info("audit retention started", "schedule", s.schedule, "retention", s.retention.String())
	return nil
}

// Stop halts the schedule and waits for a running prune, bounded by ctx.
func (s *RetentionService) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "audit retention stop timed out", "error", ctx.Err())
	}
	s.cron = nil
}

func (s *RetentionService) Prune(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.retention)

	pruned, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WarnContext(ctx, "prune audit events failed", "cutoff", cutoff, "error", err)
		return
	}
	if pruned > 0 {
		s.logger.InfoContext(ctx, "audit events pruned", "count", pruned, "cutoff", cutoff)
	}
}

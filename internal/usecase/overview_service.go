package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/faultline/internal/platform/cache"
	"github.com/riskibarqy/faultline/internal/platform/degradation"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
	"github.com/sourcegraph/conc/pool"
)

const overviewCacheKey = "ops:overview"

// Overview is one combined snapshot of the fault layer for dashboards.
type Overview struct {
	Breakers    []resilience.BreakerSnapshot
	Aggregate   resilience.BreakerAggregate
	Degradation DegradationStatus
	System      degradation.SystemMetrics
	GeneratedAt time.Time
}

// OverviewService assembles the snapshot concurrently and memoises it for a
// short TTL so dashboard poll storms do not hammer the sources.
type OverviewService struct {
	registry    *resilience.Registry
	degradation *DegradationService
	source      MetricsSource
	store       *cache.Store
	now         func() time.Time
}

func NewOverviewService(
	registry *resilience.Registry,
	degradationSvc *DegradationService,
	source MetricsSource,
	cacheTTL time.Duration,
) *OverviewService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Second
	}

	return &OverviewService{
		registry:    registry,
		degradation: degradationSvc,
		source:      source,
		store:       cache.NewStore(cacheTTL),
		now:         time.Now,
	}
}

func (s *OverviewService) Overview(ctx context.Context) (Overview, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OverviewService.Overview")
	defer span.End()

	value, err := s.store.GetOrLoad(ctx, overviewCacheKey, func(ctx context.Context) (any, error) {
		return s.build(ctx)
	})
	if err != nil {
		return Overview{}, err
	}

	overview, ok := value.(Overview)
	if !ok {
		return Overview{}, fmt.Errorf("unexpected overview cache entry %T", value)
	}

	return overview, nil
}

func (s *OverviewService) build(ctx context.Context) (Overview, error) {
	overview := Overview{GeneratedAt: s.now().UTC()}

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		overview.Breakers = s.registry.Snapshots()
		overview.Aggregate = s.registry.Aggregate()
		return nil
	})
	p.Go(func(ctx context.Context) error {
		overview.Degradation = s.degradation.Status()
		return nil
	})
	p.Go(func(ctx context.Context) error {
		sample, err := s.source.GetSystemMetrics(ctx)
		if err != nil {
			return fmt.Errorf("sample system metrics for overview: %w", err)
		}
		overview.System = sample
		return nil
	})

	if err := p.Wait(); err != nil {
		return Overview{}, err
	}

	return overview, nil
}

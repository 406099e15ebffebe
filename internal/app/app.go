package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/faultline/external/alerting"
	"github.com/riskibarqy/faultline/external/policysource"
	"github.com/riskibarqy/faultline/internal/config"
	"github.com/riskibarqy/faultline/internal/domain/audit"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
	"github.com/riskibarqy/faultline/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/faultline/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/faultline/internal/interfaces/httpapi"
	"github.com/riskibarqy/faultline/internal/observability"
	"github.com/riskibarqy/faultline/internal/platform/logging"
	"github.com/riskibarqy/faultline/internal/platform/resilience"
	"github.com/riskibarqy/faultline/internal/platform/sysmetrics"
	"github.com/riskibarqy/faultline/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// App owns every long-lived component: the audit store, the breaker registry,
// the degradation controller, the policy watcher and the HTTP router.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	slogger *slog.Logger

	db          *sqlx.DB
	redisClient *redis.Client

	registry  *resilience.Registry
	collector *sysmetrics.Collector
	metrics   *observability.Metrics
	auditRepo audit.Repository

	alerts      *usecase.AlertDispatcher
	breakers    *usecase.BreakerService
	degradation *usecase.DegradationService
	policy      *usecase.PolicyService
	overview    *usecase.OverviewService
	retention   *usecase.RetentionService

	router http.Handler

	policyStop context.CancelFunc
	policyDone chan struct{}
}

func New(cfg config.Config, logger *logging.Logger, slogger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if slogger == nil {
		slogger = slog.Default()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		slogger:   slogger,
		registry:  resilience.NewRegistry(),
		collector: sysmetrics.NewCollector(sysmetrics.WithLogger(slogger)),
		metrics:   observability.NewMetrics(),
	}

	if cfg.DBEnabled {
		db, err := openDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("open audit database: %w", err)
		}
		a.db = db
		a.auditRepo = postgres.NewAuditRepository(db)
		logger.Info("audit store ready", "backend", "postgres", "db", dbNameFromURL(cfg.DBURL))
	} else {
		a.auditRepo = memory.NewAuditRepository(0)
		logger.Info("audit store ready", "backend", "memory")
	}

	sink, err := newAlertSink(cfg, slogger)
	if err != nil {
		return nil, err
	}
	a.alerts, err = usecase.NewAlertDispatcher(sink, cfg.AlertPoolSize, a.metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("build alert dispatcher: %w", err)
	}

	a.breakers = usecase.NewBreakerService(
		a.registry,
		resilience.DefaultConfig(),
		a.auditRepo,
		a.alerts,
		a.metrics,
		logger,
	)

	a.degradation, err = usecase.NewDegradationService(
		nil,
		nil,
		a.collector,
		a.registry,
		usecase.DegradationConfig{
			EvalInterval:   cfg.DegradationEvalInterval,
			RecoveryCycles: cfg.DegradationRecoveryCycles,
		},
		a.auditRepo,
		a.alerts,
		a.metrics,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build degradation service: %w", err)
	}

	source, err := a.newPolicySource(cfg, slogger)
	if err != nil {
		return nil, fmt.Errorf("build policy source: %w", err)
	}
	a.policy = usecase.NewPolicyService(source, a.registry, a.degradation, a.auditRepo, logger)

	a.overview = usecase.NewOverviewService(a.registry, a.degradation, a.collector, cfg.OverviewCacheTTL)
	a.retention = usecase.NewRetentionService(a.auditRepo, cfg.AuditRetention, cfg.AuditRetentionSchedule, logger)

	handler := httpapi.NewHandler(a.breakers, a.degradation, a.overview, logger)
	a.router = httpapi.NewRouter(handler, slogger, cfg.CORSAllowedOrigins, cfg.OperatorToken, a.collector, a.metrics)

	return a, nil
}

// Start applies the boot policy and launches the background workers: the
// degradation evaluation loop, the retention cron and the policy watcher.
// Start does not block.
func (a *App) Start(ctx context.Context) error {
	if err := a.policy.Boot(ctx); err != nil {
		return err
	}

	a.degradation.Start(ctx)

	if err := a.retention.Start(); err != nil {
		return fmt.Errorf("start audit retention: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.policyStop = cancel
	done := make(chan struct{})
	a.policyDone = done
	go func() {
		defer close(done)
		if err := a.policy.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.ErrorContext(watchCtx, "fault policy watcher stopped", "error", err)
		}
	}()

	return nil
}

// Stop shuts the workers down in reverse dependency order, bounded by ctx.
func (a *App) Stop(ctx context.Context) {
	if a.policyStop != nil {
		a.policyStop()
		select {
		case <-a.policyDone:
		case <-ctx.Done():
			a.logger.WarnContext(ctx, "policy watcher stop timed out", "error", ctx.Err())
		}
		a.policyStop = nil
		a.policyDone = nil
	}

	a.retention.Stop(ctx)
	a.degradation.Stop(ctx)
	a.alerts.Close()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.WarnContext(ctx, "close policy redis client failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WarnContext(ctx, "close audit database failed", "error", err)
		}
	}
}

func (a *App) Router() http.Handler {
	return a.router
}

func NewHTTPServer(cfg config.Config, router http.Handler) (*http.Server, error) {
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	return otelsqlx.Connect("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
}

func newAlertSink(cfg config.Config, slogger *slog.Logger) (usecase.AlertSink, error) {
	if !cfg.AlertWebhookEnabled {
		return alerting.NoopSink{}, nil
	}

	sink, err := alerting.NewWebhookSink(alerting.WebhookConfig{
		Endpoint:  cfg.AlertWebhookURL,
		AuthToken: cfg.AlertWebhookAuthToken,
		Timeout:   cfg.AlertWebhookTimeout,
		RetryMax:  cfg.AlertWebhookRetryMax,
		CircuitBreaker: resilience.Config{
			FailureThreshold:     float64(cfg.AlertWebhookCircuitFailureCount),
			FailureThresholdKind: resilience.ThresholdCount,
			OpenTimeout:          cfg.AlertWebhookCircuitOpenTimeout,
			MinimumCalls:         1,
		},
	}, slogger)
	if err != nil {
		return nil, fmt.Errorf("build alert webhook sink: %w", err)
	}

	return sink, nil
}

func (a *App) newPolicySource(cfg config.Config, slogger *slog.Logger) (usecase.PolicySource, error) {
	switch cfg.PolicySource {
	case config.PolicySourceFile:
		return policysource.NewFileSource(cfg.PolicyFilePath, cfg.PolicyFilePollInterval, slogger)
	case config.PolicySourceRedis:
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.PolicyRedisAddr,
			Password: cfg.PolicyRedisPassword,
			DB:       cfg.PolicyRedisDB,
		})
		return policysource.NewRedisSource(a.redisClient, cfg.PolicyRedisKey, cfg.PolicyRedisChannel, slogger)
	case config.PolicySourceHTTP:
		return policysource.NewHTTPSource(policysource.HTTPSourceConfig{
			URL:          cfg.PolicyHTTPURL,
			BearerToken:  cfg.PolicyHTTPBearerToken,
			Timeout:      cfg.PolicyHTTPTimeout,
			PollInterval: cfg.PolicyHTTPPollInterval,
		}, slogger)
	default:
		return policysource.NewStaticSource(faultpolicy.Default())
	}
}

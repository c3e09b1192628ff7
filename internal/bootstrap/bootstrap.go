package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/google/uuid"

	httpadapter "github.com/railsewa/grievance-service/internal/adapters/http"
	"github.com/railsewa/grievance-service/internal/config"
	"github.com/railsewa/grievance-service/internal/core/ports"
	"github.com/railsewa/grievance-service/internal/core/usecase"
	"github.com/railsewa/grievance-service/internal/exporting"
	"github.com/railsewa/grievance-service/internal/infrastructure/ai/ollama"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore/localfs"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore/memory"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore/postgres"
	"github.com/railsewa/grievance-service/internal/infrastructure/blobstore/redisstore"
	natsnotify "github.com/railsewa/grievance-service/internal/infrastructure/notify/nats"
	"github.com/railsewa/grievance-service/internal/infrastructure/resilience"
	"github.com/railsewa/grievance-service/internal/observability/metrics"
)

const serviceName = "grievance-api"

type App struct {
	Config config.Config

	Store     ports.SnapshotStore
	Lifecycle *usecase.Lifecycle
	Enricher  *usecase.Enricher
	Notifier  *usecase.ChangeNotifier
	Handler   http.Handler

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	var broadcaster ports.ChangeBroadcaster
	var closeBroadcaster func()
	if cfg.NATSEnabled {
		b, err := natsnotify.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsnotify.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("init change broadcaster: %w", err)
		}
		broadcaster = b
		closeBroadcaster = b.Close
	}

	client := ollama.New(cfg.OllamaURL, cfg.OllamaModel).WithExecutor(executor)
	analyzer := ollama.NewAnalyzer(client)
	extractor := ollama.NewExtractor(client)

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	enrichMetrics := metrics.NewEnrichmentMetrics(serviceName, httpMetrics.Registry())

	enricher := usecase.NewEnricher(store, analyzer, cfg.EnrichDelay, cfg.AnalyzeTimeout, logger, uuid.NewString)
	enricher.OnScheduled = enrichMetrics.StartTask
	enricher.Observe = enrichMetrics.Observer(serviceName)

	lifecycle := usecase.NewLifecycle(store, extractor, enricher, broadcaster, logger)
	enricher.OnApplied = lifecycle.ApplyEnriched

	notifier := usecase.NewChangeNotifier(store, broadcaster, lifecycle.Reload, logger)

	router := httpadapter.NewRouter(lifecycle, httpadapter.RouterOptions{
		Exporter:       exporting.NewXLSXExporter(),
		MetricsHandler: httpMetrics.Handler(),
		Events: httpadapter.LifecycleEvents{
			ComplaintCreated: func(source string) { httpMetrics.RecordComplaintCreated(serviceName, source) },
			StatusOverridden: func(status string) { httpMetrics.RecordStatusOverride(serviceName, status) },
			Exported:         func(err error) { httpMetrics.RecordExport(serviceName, err) },
		},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxInFlight:    cfg.MaxInFlight,
		MaxWait:        cfg.MaxWait,
	})

	return &App{
		Config:    cfg,
		Store:     store,
		Lifecycle: lifecycle,
		Enricher:  enricher,
		Notifier:  notifier,
		Handler:   httpMetrics.Middleware(serviceName, router.Handler()),

		closeFn: func() {
			if closeBroadcaster != nil {
				closeBroadcaster()
			}
			closeStore()
		},
	}, nil
}

func openStore(ctx context.Context, cfg config.Config) (ports.SnapshotStore, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "memory":
		return memory.NewStore(memory.NewBucket()), noop, nil
	case "file", "":
		store, err := localfs.New(cfg.StorePath, cfg.StorePollInterval)
		if err != nil {
			return nil, nil, fmt.Errorf("init file store: %w", err)
		}
		return store, noop, nil
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewStore(db, "complaints", cfg.StorePollInterval)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		store := redisstore.NewStore(client, cfg.RedisKey, cfg.RedisChannel)
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

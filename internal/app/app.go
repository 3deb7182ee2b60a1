package app

import (
	"context"
	"fmt"

	"binarybets/internal/ai"
	"binarybets/internal/cache"
	"binarybets/internal/config"
	"binarybets/internal/database"
	"binarybets/internal/events"
	"binarybets/internal/evidence"
	"binarybets/internal/httpx"
	"binarybets/internal/jobs"
	"binarybets/internal/metrics"
	"binarybets/internal/repository"
	"binarybets/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockPrefix = "binarybets:resolver:"

// App holds the wired components shared by the API server and the resolver CLI
type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Repo       *repository.Repository
	Metrics    *metrics.Metrics
	Settlement *services.SettlementService
	Bets       *services.BetService
	Evidence   *evidence.Service
	Resolvers  []*jobs.MarketResolver

	log       *zap.Logger
	redis     *redis.Client
	publisher *events.SettlementPublisher
}

// New connects the stores and builds every service. Redis and Kafka are
// optional; without them the resolver runs unlocked and no events are published.
func New(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*App, error) {
	db, err := database.Connect(cfg.Database, cfg.GetDSN(), log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Repo:    repository.NewRepository(db),
		Metrics: metrics.New(reg),
		log:     log,
	}

	var locker cache.Locker = cache.NoopLocker{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, resolver runs without a lock", zap.Error(err))
		} else {
			a.redis = rdb
			locker = cache.NewRedisLocker(rdb, lockPrefix)
		}
	}

	a.Settlement = services.NewSettlementService(a.Repo, a.Metrics, log, services.NewNotificationHook(a.Repo))
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		a.publisher = events.NewSettlementPublisher(
			events.NewWriter(brokers, cfg.Kafka.TopicSettlements),
			events.NewWriter(brokers, cfg.Kafka.TopicNotification),
		)
		a.Settlement.AddHook(a.publisher)
		log.Info("settlement events enabled", zap.Strings("brokers", brokers))
	}
	a.Bets = services.NewBetService(a.Repo, cfg.App.RefundFraction, log)

	a.Evidence = newEvidence(cfg.Evidence, log)
	var gatherer jobs.EvidenceGatherer
	if cfg.Resolver.UseEvidence {
		gatherer = a.Evidence
	}

	continuous, deadline := newEvaluators(cfg.AI, a.Metrics, log)
	base := jobs.ResolverOptions{
		ConfidenceThreshold: cfg.Resolver.ConfidenceThreshold,
		MaxMarketsPerRun:    cfg.Resolver.MaxMarketsPerRun,
		LockTTL:             cfg.Resolver.LockTTL,
	}

	contOpts := base
	contOpts.Policy = jobs.PolicyContinuous
	contOpts.Interval = cfg.Resolver.ContinuousInterval

	deadOpts := base
	deadOpts.Policy = jobs.PolicyDeadline
	deadOpts.Interval = cfg.Resolver.DeadlineInterval
	deadOpts.RunOnStart = true

	a.Resolvers = []*jobs.MarketResolver{
		jobs.NewMarketResolver(a.Repo, continuous, a.Settlement, gatherer, locker, a.Metrics, log, contOpts),
		jobs.NewMarketResolver(a.Repo, deadline, a.Settlement, gatherer, locker, a.Metrics, log, deadOpts),
	}
	return a, nil
}

// Resolver returns the resolver running the given policy, or nil
func (a *App) Resolver(p jobs.Policy) *jobs.MarketResolver {
	for _, r := range a.Resolvers {
		if r.Policy() == p {
			return r
		}
	}
	return nil
}

// Ping checks the ledger database, used by /healthz
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the external connections
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("failed to close kafka writers", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newEvaluators builds the two provider chains. The continuous chain is
// weather (weather markets only), then primary, then secondary. The deadline
// chain is a single provider. Providers without an API key are left out.
func newEvaluators(cfg config.AIConfig, m *metrics.Metrics, log *zap.Logger) (*ai.Client, *ai.Client) {
	opts := httpx.Options{Timeout: cfg.Timeout, RatePerSec: 1, Burst: 2, Logger: log.Named("ai_http")}

	var weather ai.Provider
	if cfg.Weather.APIKey != "" {
		weather = ai.NewChatProvider(cfg.Weather.Name, cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Model, opts)
	}

	var general []ai.Provider
	if cfg.Primary.APIKey != "" {
		general = append(general, ai.NewChatProvider(cfg.Primary.Name, cfg.Primary.BaseURL, cfg.Primary.APIKey, cfg.Primary.Model, opts))
	}
	if cfg.Secondary.APIKey != "" {
		general = append(general, ai.NewAnthropicProvider(cfg.Secondary.Name, cfg.Secondary.BaseURL, cfg.Secondary.APIKey, cfg.Secondary.Model, opts))
	}
	if weather == nil && len(general) == 0 {
		log.Warn("no AI provider configured, continuous resolver will keep every market open")
	}

	var deadline []ai.Provider
	if cfg.Deadline.APIKey != "" {
		deadline = append(deadline, ai.NewChatProvider(cfg.Deadline.Name, cfg.Deadline.BaseURL, cfg.Deadline.APIKey, cfg.Deadline.Model, opts))
	}

	return ai.NewClient(log, m, weather, general...), ai.NewClient(log, m, nil, deadline...)
}

func newEvidence(cfg config.EvidenceConfig, log *zap.Logger) *evidence.Service {
	client := httpx.New(httpx.Options{
		RatePerSec: cfg.RequestsPerSec,
		Burst:      1,
		Logger:     log.Named("evidence_http"),
	})
	return evidence.NewService(log,
		evidence.NewNewsSource(cfg.NewsAPIURL, cfg.NewsAPIKey, client),
		evidence.NewEarthquakeSource(cfg.EarthquakeURL, client),
		evidence.NewPolymarketSource(cfg.PolymarketURL, client),
	)
}

package api

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/config"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/db"
	"infinite-experiment/fmsuplink/internal/db/repositories"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/navdata"
	"infinite-experiment/fmsuplink/internal/providers"
	"infinite-experiment/fmsuplink/internal/services"
)

type Repositories struct {
	NavDB   *gorm.DB
	History *repositories.UplinkHistoryRepo // nil when history is disabled
}

type Services struct {
	Cache    common.CacheInterface
	NavCache *navdata.CachedDatabase
	Provider providers.OFPProvider
	Uplink   *services.UplinkService
	Jobs     *services.UplinkJobService
	Queue    *common.RedisQueueService // nil without Redis
	Signer   *common.TokenSigner       // nil when auth is disabled
}

type Dependencies struct {
	Config   *config.Config
	Metrics  *metrics.MetricsRegistry
	Repo     *Repositories
	Services *Services

	redis     *redis.Client
	historyDB *sqlx.DB
}

// InitDependencies opens every backing store named by cfg and wires the
// services on top of them.
func InitDependencies(ctx context.Context, cfg *config.Config, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Metrics: metricsReg, Repo: &Repositories{}, Services: &Services{}}

	navDB, err := db.OpenNavDB(cfg.NavDB.Driver, cfg.NavDB.DSN, cfg.NavDB.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	deps.Repo.NavDB = navDB

	if cfg.NavDB.AutoMigrate {
		if err := navdata.NewImporter(navDB).Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate nav database: %w", err)
		}
	}
	if cfg.NavDB.ImportDir != "" {
		stats, err := navdata.NewImporter(navDB).ImportDir(ctx, cfg.NavDB.ImportDir)
		if err != nil {
			return nil, fmt.Errorf("failed to import nav data: %w", err)
		}
		logging.Info("Nav data imported", "dir", cfg.NavDB.ImportDir, "stats", stats)
	}

	var history services.HistoryRecorder
	if cfg.History.Enabled {
		historyDB, err := db.InitPostgres(cfg.History.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to history database: %w", err)
		}
		deps.historyDB = historyDB
		repo := repositories.NewUplinkHistoryRepo(historyDB)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to create history schema: %w", err)
		}
		deps.Repo.History = repo
		history = repo
	}

	if cfg.Redis.Enabled {
		deps.redis = common.NewRedisClient(common.RedisOptions{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.Services.Cache = common.NewRedisCacheService(deps.redis)
		deps.Services.Queue = common.NewRedisQueueService(deps.redis, constants.UplinkStream, constants.UplinkConsumerGroup)
	} else {
		deps.Services.Cache = common.NewMemoryCache(cfg.Uplink.OFPCacheTTL, 10*time.Minute)
	}

	if cfg.AuthEnabled() {
		deps.Services.Signer = common.NewTokenSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	} else {
		logging.Warn("API authentication is disabled")
	}

	deps.Services.NavCache = navdata.NewCachedDatabase(navdata.NewStore(navDB, metricsReg), cfg.NavDB.CacheSize, cfg.NavDB.CacheTTL, metricsReg)
	deps.Services.Provider = providers.NewSimBriefProvider(cfg.SimBrief.BaseURL, cfg.SimBrief.Timeout, metricsReg)
	deps.Services.Uplink = services.NewUplinkService(
		deps.Services.Provider,
		deps.Services.NavCache,
		deps.Services.Cache,
		history,
		metricsReg,
		cfg.Uplink.OFPCacheTTL,
		cfg.Uplink.Procedures,
	)

	var queue services.JobEnqueuer
	if deps.Services.Queue != nil {
		queue = deps.Services.Queue
	}
	deps.Services.Jobs = services.NewUplinkJobService(queue, deps.Services.Cache, cfg.Uplink.JobTTL)

	return deps, nil
}

// HistoryReader returns the history repository, or an untyped nil
func (d *Dependencies) HistoryReader() HistoryReader {
	if d.Repo.History == nil {
		return nil
	}
	return d.Repo.History
}

// HealthChecks lists a probe per configured backing service
func (d *Dependencies) HealthChecks() map[string]HealthCheck {
	checks := map[string]HealthCheck{
		"navdb": func(ctx context.Context) error { return navdata.Ping(ctx, d.Repo.NavDB) },
	}
	if d.Repo.History != nil {
		checks["postgres"] = d.Repo.History.Ping
	}
	if d.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return d.redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases every connection opened by InitDependencies
func (d *Dependencies) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if d.Services.Cache != nil {
		keep(d.Services.Cache.Close())
	}
	if d.historyDB != nil {
		keep(d.historyDB.Close())
	}
	if d.Repo.NavDB != nil {
		if sqlDB, err := d.Repo.NavDB.DB(); err == nil {
			keep(sqlDB.Close())
		}
	}
	return firstErr
}

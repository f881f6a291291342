package commands

import (
	"fmt"

	"github.com/Honey-Rajput/Stocks/internal/acquisition"
	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/history"
	"github.com/Honey-Rajput/Stocks/internal/provider"
	"github.com/Honey-Rajput/Stocks/internal/scan"
	"github.com/Honey-Rajput/Stocks/internal/sink"
	"github.com/Honey-Rajput/Stocks/internal/universe"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/database"
	"github.com/Honey-Rajput/Stocks/pkg/httputil"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
	"github.com/Honey-Rajput/Stocks/pkg/redis"
)

// pipeline wires the full scan stack once per process. Commands pick
// the pieces they need.
type pipeline struct {
	cfg      *config.Config
	log      *logger.Logger
	redis    *redis.Client
	db       *database.DB
	registry *evaluator.Registry
	universe universe.Provider
	engine   *acquisition.Engine
	sink     sink.Sink
	history  history.Store
}

// newPipeline loads config and wires every shared dependency. Without
// a DATABASE_URL the sink and history fall back to in-memory stores,
// which is enough for one-shot scans.
func newPipeline() (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var cache *redis.Cache
	httpClient := httputil.New(log, cfg.Provider.SingleTimeout)
	if redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "scanner")
		httpClient = httpClient.WithRateLimiter(redis.NewRateLimiter(redisClient, "scanner"), redis.ProviderRateLimit)
	}

	chartClient := provider.NewChartClient(cfg, httpClient, cache, log)
	engine := acquisition.NewEngine(cfg, chartClient, log)

	registry := evaluator.NewRegistry()
	for _, e := range []evaluator.Evaluator{
		evaluator.NewBreakout(cfg.Breakout),
		evaluator.NewVolumePattern(cfg.Volume),
		evaluator.NewSeasonality(cfg.Seasonality),
		evaluator.NewStageClassifier(cfg.Stage),
	} {
		if err := registry.Register(e); err != nil {
			return nil, fmt.Errorf("register evaluator: %w", err)
		}
	}

	p := &pipeline{
		cfg:      cfg,
		log:      log,
		redis:    redisClient,
		registry: registry,
		universe: universe.NewExchangeList(cfg, httpClient, cache, log),
		engine:   engine,
	}

	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		p.db = db
		p.sink = sink.NewPostgres(db.Pool)
		p.history = history.NewPostgres(db.Pool, cfg.History.Retention)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory result stores")
		p.sink = sink.NewMemory()
		p.history = history.NewMemory(cfg.History.Retention)
	}

	return p, nil
}

// orchestratorFor builds an orchestrator for one registered scanner type.
func (p *pipeline) orchestratorFor(scannerType string) (*scan.Orchestrator, error) {
	eval, ok := p.registry.Get(scannerType)
	if !ok {
		return nil, fmt.Errorf("unknown scanner type %q (known: %v)", scannerType, p.registry.Names())
	}
	return scan.NewOrchestrator(p.cfg, p.engine, eval, p.log)
}

// close releases pooled resources.
func (p *pipeline) close() {
	if p.db != nil {
		p.db.Close()
	}
	if p.redis != nil {
		_ = p.redis.Close()
	}
}

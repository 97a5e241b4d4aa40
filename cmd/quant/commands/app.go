package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/external/fundamentals"
	"github.com/wonny/indexbeta/internal/metrics"
	"github.com/wonny/indexbeta/internal/rebalance"
	"github.com/wonny/indexbeta/internal/store"
	"github.com/wonny/indexbeta/internal/strategy"
	"github.com/wonny/indexbeta/internal/strategyconfig"
	"github.com/wonny/indexbeta/internal/valuation"
	"github.com/wonny/indexbeta/pkg/config"
	"github.com/wonny/indexbeta/pkg/database"
	"github.com/wonny/indexbeta/pkg/httputil"
	"github.com/wonny/indexbeta/pkg/logger"
	"github.com/wonny/indexbeta/pkg/redis"
)

// app holds the wired components every command draws from
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	metrics      *metrics.Registry
	strategyCfg  *strategyconfig.Config
	snapshot     *strategyconfig.DecisionSnapshot
	location     *time.Location
	db           *database.DB // nil unless DATABASE_URL is set
	redis        *redis.Client
	market       contracts.MarketData
	sampler      *valuation.Sampler
	history      valuation.HistorySource
	indexBeta    *strategy.IndexBeta
	decisionRepo *store.DecisionRepository // nil without a database
}

// newApp loads configuration and wires the valuation stack
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile != "" {
		cfg.Valuation.StrategyConfig = strategyFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// 3. Load strategy config
	if err := a.loadStrategy(); err != nil {
		return nil, err
	}

	// 4. Connect to database
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.decisionRepo = store.NewDecisionRepository(db.Pool)
		log.Info("Connected to database")
	}

	// 5. Connect to redis
	rc, err := redis.New(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	// 6. Market data source
	switch cfg.Provider.Source {
	case config.SourceHTTP:
		a.market = fundamentals.NewClient(httputil.New(cfg.Provider, log), cfg.Provider.BaseURL, log)
	default:
		a.market = store.NewMarketRepository(a.db.Pool)
	}

	// 7. Valuation stack
	if err := a.wireValuation(); err != nil {
		a.close()
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"strategy":    a.snapshot.StrategyID,
		"config_hash": a.snapshot.ConfigHash,
		"provider":    cfg.Provider.Source,
		"redis":       rc.Enabled(),
		"git_commit":  gitCommit,
	}).Debug("Application wired")

	return a, nil
}

func (a *app) loadStrategy() error {
	sc, raw, err := strategyconfig.Load(a.cfg.Valuation.StrategyConfig)
	if err != nil {
		return fmt.Errorf("load strategy config: %w", err)
	}
	if err := strategyconfig.Validate(sc); err != nil {
		return fmt.Errorf("validate strategy config: %w", err)
	}
	for _, w := range strategyconfig.Warn(sc) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}

	snapshot, err := strategyconfig.NewDecisionSnapshot(sc, raw, gitCommit)
	if err != nil {
		return fmt.Errorf("snapshot strategy config: %w", err)
	}

	loc, err := time.LoadLocation(sc.Meta.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", sc.Meta.Timezone, err)
	}

	a.strategyCfg = sc
	a.snapshot = snapshot
	a.location = loc
	return nil
}

func (a *app) wireValuation() error {
	sc := a.strategyCfg

	weighting, err := valuation.ParseWeighting(sc.History.Weighting)
	if err != nil {
		return err
	}

	a.sampler = valuation.NewSampler(a.market, a.market, weighting, a.log)

	builder := valuation.NewHistoryBuilder(a.sampler, a.market, valuation.HistoryOptions{
		Concurrency:  a.cfg.Valuation.HistoryConcurrency,
		FetchTimeout: a.cfg.Valuation.FetchTimeout,
	}, a.metrics, a.log)

	a.history = builder
	if a.redis.Enabled() {
		cache := redis.NewCache(a.redis, "indexbeta")
		a.history = valuation.NewHistoryCache(builder, cache, weighting, a.cfg.Valuation.HistoryCacheTTL, a.metrics, a.log)
	}

	names := make(map[string]string, len(sc.Universe.Indices))
	for _, f := range sc.Universe.Indices {
		names[f.Index] = f.Name
	}

	riskFree := sc.Sizing.RiskFreeRate
	if riskFree <= 0 {
		riskFree = a.cfg.Valuation.RiskFreeRate
	}

	a.indexBeta = strategy.NewIndexBeta(a.sampler, a.history, strategy.Params{
		LookbackDays:       sc.History.LookbackDays,
		ReportLookbackDays: sc.History.ReportLookbackDays,
		Interval:           sc.History.Interval,
		RiskFreeRate:       riskFree,
		Names:              names,
	}, a.metrics, a.log)

	return nil
}

// newRebalancer wires the rebalancer; it needs the portfolio tables. A dry
// run plans orders without persisting them.
func (a *app) newRebalancer(dryRun bool) (*rebalance.Rebalancer, error) {
	if a.db == nil {
		return nil, fmt.Errorf("rebalance needs DATABASE_URL for cash and holdings")
	}

	sc := a.strategyCfg
	planner := rebalance.NewPlanner(sc.UnitCash(), sc.Sizing.MinCash)
	portfolio := store.NewPortfolioRepository(a.db.Pool, a.cfg.Valuation.AccountID)

	var recorder rebalance.Recorder
	if !dryRun {
		recorder = a.decisionRepo
	}

	return rebalance.NewRebalancer(a.indexBeta, portfolio, recorder, planner, sc.Universe.Indices, a.log), nil
}

// baseDate parses a YYYY-MM-DD flag in the strategy timezone; empty means today
func (a *app) baseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().In(a.location), nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, a.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", raw, err)
	}
	return d, nil
}

// indices returns args, or the whole universe when args is empty
func (a *app) indices(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return a.strategyCfg.Universe.IndexIDs()
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// withTimeout bounds one-shot CLI commands
func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

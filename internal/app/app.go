// Package app wires every component from a config.Config and owns their
// start and shutdown order.
package app

import (
	"context"

	"github.com/rxtech-lab/autotrader/internal/advisor"
	"github.com/rxtech-lab/autotrader/internal/backtest"
	"github.com/rxtech-lab/autotrader/internal/config"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/connector/binance"
	"github.com/rxtech-lab/autotrader/internal/connector/paper"
	"github.com/rxtech-lab/autotrader/internal/connector/polygon"
	"github.com/rxtech-lab/autotrader/internal/execution"
	"github.com/rxtech-lab/autotrader/internal/indicator"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/marketdata"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/store/relational"
	"github.com/rxtech-lab/autotrader/internal/store/timeseries"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/strategy/builtin"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Container holds the wired components. Build it once with New.
type Container struct {
	Config     config.Config
	Logger     *logger.Logger
	Repository store.Repository
	TimeSeries store.TimeSeries
	Venues     *connector.Registry
	Collector  *marketdata.Collector
	Strategies *strategy.Registry
	Advisor    advisor.Advisor
	Risk       *risk.Manager
	Executor   *execution.Executor
	Monitor    *execution.Monitor
	Engine     *strategy.Engine
	Backtest   *backtest.Engine

	groups  []string
	closers []func() error
}

// VenueFactory builds the live connector for a venue config. Tests replace it.
type VenueFactory func(cfg config.VenueConfig) (connector.Connector, error)

// DefaultVenueFactory builds Binance and Polygon connectors.
func DefaultVenueFactory(cfg config.VenueConfig) (connector.Connector, error) {
	switch cfg.Kind {
	case config.VenueBinance:
		venue := cfg.Binance
		venue.Name = cfg.Name()

		return binance.New(venue)
	case config.VenuePolygon:
		venue := cfg.Polygon
		venue.Name = cfg.Name()

		return polygon.New(venue)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupported, "unsupported venue kind %s", cfg.Kind)
	}
}

// New builds the container. On error every store opened so far is closed.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*Container, error) {
	return NewWithVenueFactory(ctx, cfg, log, DefaultVenueFactory)
}

// NewWithVenueFactory is New with a custom venue factory.
func NewWithVenueFactory(ctx context.Context, cfg config.Config, log *logger.Logger, factory VenueFactory) (c *Container, err error) {
	c = &Container{
		Config:  cfg,
		Logger:  log,
		groups:  nil,
		closers: nil,
	}

	defer func() {
		if err != nil {
			c.close()
			c = nil
		}
	}()

	repo, err := relational.Open(cfg.Database, log)
	if err != nil {
		return c, err
	}

	c.Repository = repo
	c.closers = append(c.closers, repo.Close)

	series, err := timeseries.NewDuckDBStore(cfg.TimeSeries.Path, log)
	if err != nil {
		return c, err
	}

	c.TimeSeries = series
	c.closers = append(c.closers, series.Close)

	if c.Venues, err = buildVenues(cfg.Venues, factory, log); err != nil {
		return c, err
	}

	if c.Collector, err = marketdata.NewCollector(cfg.Collector.Config, c.Venues, series, repo, log); err != nil {
		return c, err
	}

	if c.Strategies, err = builtin.NewRegistry(); err != nil {
		return c, err
	}

	safe, err := advisor.New(cfg.Advisor, log)
	if err != nil {
		return c, err
	}

	if safe != nil {
		c.Advisor = safe
	}

	params, err := risk.NewParameterStore(cfg.Risk.Defaults, repo)
	if err != nil {
		return c, err
	}

	if err := params.Load(ctx); err != nil {
		return c, err
	}

	c.Risk, err = risk.NewManager(cfg.Risk, params, c.Collector, risk.NewVenueCapital(c.Venues), c.Venues, repo, log)
	if err != nil {
		return c, err
	}

	if c.Executor, err = execution.NewExecutor(cfg.Execution, c.Venues, repo, c.Risk, log); err != nil {
		return c, err
	}

	if c.Monitor, err = execution.NewMonitor(cfg.Execution, repo, c.Collector, c.Risk, c.Executor, log); err != nil {
		return c, err
	}

	c.Engine, err = strategy.NewEngine(cfg.Engine, strategy.EngineDeps{
		Registry:   c.Strategies,
		Repository: repo,
		Market:     c.Collector,
		Risk:       c.Risk,
		Executor:   c.Executor,
		Venues:     c.Venues,
		Indicators: indicator.NewDefaultRegistry(),
		Advisor:    c.Advisor,
		Logger:     log,
	})
	if err != nil {
		return c, err
	}

	c.Risk.SetStopper(c.Engine)
	c.Executor.SetRecorder(c.Engine)

	c.Backtest = backtest.NewEngine(c.Strategies, c.Collector, repo, log)

	return c, nil
}

func buildVenues(configs []config.VenueConfig, factory VenueFactory, log *logger.Logger) (*connector.Registry, error) {
	venues := connector.NewRegistry(log)

	for _, cfg := range configs {
		live, err := factory(cfg)
		if err != nil {
			return nil, errors.Wrapf(errors.GetCode(err), err, "failed to build venue %s", cfg.Name())
		}

		policy := cfg.Resilience
		if policy == (connector.Policy{}) {
			policy = connector.DefaultPolicy()
		}

		resilient := connector.WithResilience(live, policy, log)
		if err := venues.Register(resilient); err != nil {
			return nil, err
		}

		if !cfg.Paper.Enabled {
			continue
		}

		simulated, err := paper.New(cfg.PaperConnectorConfig(), resilient)
		if err != nil {
			return nil, err
		}

		if err := venues.Register(simulated); err != nil {
			return nil, err
		}
	}

	return venues, nil
}

// Start loads persisted risk state, registers the configured strategy
// files, restores active strategies and starts every scheduler.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Risk.Load(ctx); err != nil {
		return err
	}

	if err := c.StartCollector(ctx); err != nil {
		return err
	}

	if err := c.RegisterStrategyFiles(ctx); err != nil {
		return err
	}

	if err := c.Monitor.Start(); err != nil {
		return err
	}

	c.Engine.Run()

	restored, err := c.Engine.Restore(ctx)
	if err != nil {
		return err
	}

	c.Logger.Info("trader started",
		zap.Strings("venues", c.Venues.Names()),
		zap.Int("strategies", restored),
		zap.Int("collection_groups", len(c.groups)),
	)

	return nil
}

// StartCollector starts the collector and every configured collection group.
func (c *Container) StartCollector(ctx context.Context) error {
	c.Collector.Start()

	for _, group := range c.Config.Collector.Groups {
		id, err := c.Collector.StartCollection(ctx, group.Exchange, group.Symbols, group.Interval)
		if err != nil {
			return err
		}

		c.groups = append(c.groups, id)
	}

	return nil
}

// RegisterStrategyFiles registers every configured strategy file not yet
// known to the engine. Files marked active are persisted as active so
// Restore starts them.
func (c *Container) RegisterStrategyFiles(ctx context.Context) error {
	configs, err := config.LoadStrategyFiles(c.Config.StrategyFiles)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if _, err := c.Engine.Instance(cfg.ID); err == nil {
			continue
		}

		if _, err := c.Repository.GetStrategy(ctx, cfg.ID); err == nil {
			c.Logger.Debug("strategy file already stored", zap.String("strategy_id", cfg.ID))

			continue
		}

		if _, err := c.Engine.Register(ctx, cfg); err != nil {
			return err
		}

		if cfg.IsActive {
			if err := c.Repository.SetStrategyActive(ctx, cfg.ID, true); err != nil {
				return err
			}
		}
	}

	return nil
}

// Shutdown stops the schedulers in reverse start order and closes the stores.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(c.Engine.Shutdown(ctx))
	record(c.Monitor.Stop(ctx))
	record(c.Collector.Stop(ctx))

	for _, venue := range c.Venues.All() {
		if c.Venues.RefCount(venue.Name()) > 0 {
			record(venue.Disconnect(ctx))
		}
	}

	record(c.close())

	c.Logger.Info("trader stopped")

	return firstErr
}

// ShutdownCollector stops only the collector and closes the stores.
func (c *Container) ShutdownCollector(ctx context.Context) error {
	err := c.Collector.Stop(ctx)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}

	return err
}

func (c *Container) close() error {
	var firstErr error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.closers = nil

	return firstErr
}

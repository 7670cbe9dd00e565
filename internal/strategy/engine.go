package strategy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/autotrader/internal/advisor"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/indicator"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Config tunes the engine.
type Config struct {
	// DefaultLookback is the candle count fetched for strategies that do not declare one.
	DefaultLookback int           `mapstructure:"default_lookback" validate:"gt=0"`
	OrderBookDepth  int           `mapstructure:"order_book_depth" validate:"gt=0"`
	CycleTimeout    time.Duration `mapstructure:"cycle_timeout" validate:"gt=0"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout" validate:"gt=0"`
	DispatchBuffer  int           `mapstructure:"dispatch_buffer" validate:"gt=0"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLookback: 100,
		OrderBookDepth:  10,
		CycleTimeout:    2 * time.Minute,
		StopTimeout:     30 * time.Second,
		DispatchBuffer:  64,
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy engine config", err)
	}

	return nil
}

// RiskValidator is the part of the risk manager the engine drives.
type RiskValidator interface {
	Validate(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal) (risk.Assessment, error)
	WithTradingGate(ctx context.Context, fn func(ctx context.Context) error) error
	Release(ownerID, reservationID string) error
	OnTradeClosed(trade types.Trade)
}

// Executor places the order for an approved signal.
type Executor interface {
	Execute(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal, assessment risk.Assessment) (types.Trade, error)
}

// Engine owns strategy instances, runs their analysis cycles on a cron
// scheduler and routes every non-hold signal through risk to execution.
type Engine struct {
	config     Config
	registry   *Registry
	repo       store.Repository
	market     MarketData
	risk       RiskValidator
	executor   Executor
	venues     *connector.Registry
	indicators indicator.IndicatorRegistry
	advisor    advisor.Advisor
	logger     *logger.Logger
	dispatcher *Dispatcher
	cron       *cron.Cron
	cronLog    logger.CronLogger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	instances map[string]*Instance
	started   bool
}

// EngineDeps groups the collaborators of an engine. Advisor and Venues may be nil.
type EngineDeps struct {
	Registry   *Registry
	Repository store.Repository
	Market     MarketData
	Risk       RiskValidator
	Executor   Executor
	Venues     *connector.Registry
	Indicators indicator.IndicatorRegistry
	Advisor    advisor.Advisor
	Logger     *logger.Logger
}

// NewEngine creates an engine. Call Run to begin scheduling.
func NewEngine(config Config, deps EngineDeps) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if deps.Registry == nil || deps.Repository == nil || deps.Market == nil || deps.Risk == nil || deps.Executor == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "strategy engine requires a registry, repository, market data, risk manager and executor")
	}

	if deps.Indicators == nil {
		deps.Indicators = indicator.NewDefaultRegistry()
	}

	log := deps.Logger.Named("engine")
	cronLog := logger.NewCronLogger(log)
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		config:     config,
		registry:   deps.Registry,
		repo:       deps.Repository,
		market:     deps.Market,
		risk:       deps.Risk,
		executor:   deps.Executor,
		venues:     deps.Venues,
		indicators: deps.Indicators,
		advisor:    deps.Advisor,
		logger:     log,
		dispatcher: NewDispatcher(config.DispatchBuffer, log),
		cron:       cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog))),
		cronLog:    cronLog,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		mu:         sync.RWMutex{},
		instances:  make(map[string]*Instance),
		started:    false,
	}, nil
}

// Dispatcher returns the signal fan-out.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// Registry returns the implementation registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Run starts the scheduler.
func (e *Engine) Run() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return
	}

	e.cron.Start()
	e.started = true
}

// Shutdown stops every running instance without deactivating it, so Restore
// brings it back on the next start, then stops the scheduler.
func (e *Engine) Shutdown(ctx context.Context) error {
	var firstErr error

	for _, inst := range e.Instances() {
		if err := e.stop(ctx, inst, false, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.cancel()

	e.mu.Lock()
	started := e.started
	e.started = false
	e.mu.Unlock()

	if started {
		select {
		case <-e.cron.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.dispatcher.Close()

	return firstErr
}

// Register validates cfg, builds its implementation and persists it. The
// instance starts stopped.
func (e *Engine) Register(ctx context.Context, cfg types.StrategyConfig) (*Instance, error) {
	return e.register(ctx, cfg, true)
}

func (e *Engine) register(ctx context.Context, cfg types.StrategyConfig, persist bool) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.instances[cfg.ID]; exists {
		return nil, errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %s already registered", cfg.ID)
	}

	definition, err := e.registry.Lookup(cfg.Type, cfg.Version)
	if err != nil {
		return nil, err
	}

	impl, err := definition.Factory(Dependencies{
		Config:     cfg,
		Market:     e.market,
		Venues:     e.venues,
		Indicators: e.indicators,
		Advisor:    e.advisor,
		Logger:     e.logger.With(zap.String("strategy_id", cfg.ID)),
	})
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknown {
			return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to build strategy %s", cfg.ID)
		}

		return nil, err
	}

	if persist {
		now := e.now()
		if cfg.CreatedAt.IsZero() {
			cfg.CreatedAt = now
		}

		cfg.UpdatedAt = now
		cfg.IsActive = false

		if err := e.repo.SaveStrategy(ctx, cfg); err != nil {
			return nil, err
		}
	}

	inst := newInstance(cfg, definition, impl)
	e.instances[cfg.ID] = inst

	e.logger.Info("strategy registered",
		zap.String("strategy_id", cfg.ID),
		zap.String("type", cfg.Type),
		zap.String("version", definition.Version),
	)

	return inst, nil
}

// Unregister stops and deactivates the instance and forgets it.
func (e *Engine) Unregister(ctx context.Context, id string) error {
	inst, err := e.instance(id)
	if err != nil {
		return err
	}

	if err := e.stop(ctx, inst, true, false); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.instances, id)
	e.mu.Unlock()

	return nil
}

// Restore registers and starts every strategy persisted as active. It
// returns how many started; failures are logged and skipped.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	configs, err := e.repo.ListStrategies(ctx, true)
	if err != nil {
		return 0, err
	}

	started := 0

	for _, cfg := range configs {
		inst, err := e.instance(cfg.ID)
		if err != nil {
			inst, err = e.register(ctx, cfg, false)
			if err != nil {
				e.logger.Error("failed to restore strategy", zap.String("strategy_id", cfg.ID), zap.Error(err))

				continue
			}
		}

		if err := e.StartStrategy(ctx, inst.Config().ID); err != nil {
			e.logger.Error("failed to start restored strategy", zap.String("strategy_id", cfg.ID), zap.Error(err))

			continue
		}

		started++
	}

	return started, nil
}

// StartStrategy initializes the instance, schedules its cycles and marks it
// active. Starting an instance that is running or already starting is a no-op.
func (e *Engine) StartStrategy(ctx context.Context, id string) error {
	inst, err := e.instance(id)
	if err != nil {
		return err
	}

	if err := inst.transition(types.StrategyStateStarting, types.StrategyStateStopped); err != nil {
		if state := inst.State(); state == types.StrategyStateRunning || state == types.StrategyStateStarting {
			return nil
		}

		return err
	}

	if err := inst.strategy.Initialize(ctx); err != nil {
		inst.setState(types.StrategyStateStopped)

		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "failed to initialize strategy %s", id)
	}

	if err := e.repo.SetStrategyActive(ctx, id, true); err != nil {
		e.cleanup(ctx, inst)
		inst.setState(types.StrategyStateStopped)

		return err
	}

	inst.setActive(true)

	entryID, err := e.schedule(inst)
	if err != nil {
		e.cleanup(ctx, inst)
		inst.setActive(false)
		inst.setState(types.StrategyStateStopped)

		if perr := e.repo.SetStrategyActive(ctx, id, false); perr != nil {
			e.logger.Warn("failed to persist deactivation", zap.String("strategy_id", id), zap.Error(perr))
		}

		return err
	}

	inst.setEntry(entryID)
	inst.setState(types.StrategyStateRunning)

	e.logger.Info("strategy started", zap.String("strategy_id", id))

	return nil
}

// StopStrategy unschedules the instance, waits for its cycle in flight,
// cleans it up and marks it inactive.
func (e *Engine) StopStrategy(ctx context.Context, id string) error {
	inst, err := e.instance(id)
	if err != nil {
		return err
	}

	return e.stop(ctx, inst, true, false)
}

// DeactivateAll stops every running instance and marks it inactive. It does
// not wait for cycles in flight, so it is safe to call from inside one.
func (e *Engine) DeactivateAll(ctx context.Context, reason string) (int, error) {
	var (
		stopped  int
		firstErr error
	)

	for _, inst := range e.Instances() {
		if inst.State() != types.StrategyStateRunning {
			continue
		}

		if err := e.stop(ctx, inst, true, true); err != nil {
			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		stopped++
	}

	e.logger.Warn("strategies deactivated", zap.String("reason", reason), zap.Int("count", stopped))

	return stopped, firstErr
}

func (e *Engine) stop(ctx context.Context, inst *Instance, deactivate, async bool) error {
	id := inst.Config().ID

	if inst.State() == types.StrategyStateStopped {
		if deactivate && inst.Config().IsActive {
			inst.setActive(false)

			return e.repo.SetStrategyActive(ctx, id, false)
		}

		return nil
	}

	if err := inst.transition(types.StrategyStateStopping, types.StrategyStateRunning); err != nil {
		return err
	}

	if entryID, ok := inst.takeEntry(); ok {
		e.cron.Remove(entryID)
	}

	var persistErr error

	if deactivate {
		inst.setActive(false)
		persistErr = e.repo.SetStrategyActive(ctx, id, false)
	}

	finish := func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), e.config.StopTimeout)
		defer cancel()

		if err := inst.wait(waitCtx); err != nil {
			e.logger.Warn("cycle still running after stop timeout", zap.String("strategy_id", id))
		}

		e.cleanup(waitCtx, inst)
		inst.setState(types.StrategyStateStopped)
		e.logger.Info("strategy stopped", zap.String("strategy_id", id))
	}

	if async {
		go finish()
	} else {
		finish()
	}

	return persistErr
}

func (e *Engine) cleanup(ctx context.Context, inst *Instance) {
	if err := inst.strategy.Cleanup(ctx); err != nil {
		e.logger.Warn("strategy cleanup failed", zap.String("strategy_id", inst.Config().ID), zap.Error(err))
	}
}

func (e *Engine) schedule(inst *Instance) (cron.EntryID, error) {
	job := cron.FuncJob(func() { e.trigger(inst) })
	cfg := inst.Config()

	if self, ok := inst.strategy.(SelfScheduled); ok && self.Interval() > 0 {
		return e.cron.Schedule(cron.Every(self.Interval()), cron.NewChain(cron.SkipIfStillRunning(e.cronLog)).Then(job)), nil
	}

	spec := cfg.Schedule
	if spec == "" {
		spec = "@every " + cfg.EffectiveTimeframe().Duration().String()
	}

	entryID, err := e.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(e.cronLog)).Then(job))
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid schedule %q for strategy %s", spec, cfg.ID)
	}

	return entryID, nil
}

func (e *Engine) trigger(inst *Instance) {
	if !inst.begin() {
		e.logger.Debug("cycle skipped", zap.String("strategy_id", inst.Config().ID))

		return
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.config.CycleTimeout)
	defer cancel()

	err := e.runCycle(ctx, inst)
	inst.end(e.now(), err)
}

// RunCycle runs one analysis cycle now. It reports false when the instance
// is not running or a cycle is already in flight.
func (e *Engine) RunCycle(ctx context.Context, id string) (bool, error) {
	inst, err := e.instance(id)
	if err != nil {
		return false, err
	}

	if !inst.begin() {
		return false, nil
	}

	err = e.runCycle(ctx, inst)
	inst.end(e.now(), err)

	return true, err
}

func (e *Engine) runCycle(ctx context.Context, inst *Instance) error {
	cfg := inst.Config()

	var firstErr error

	for _, symbol := range cfg.Symbols {
		if err := e.runSymbol(ctx, inst, cfg, symbol); err != nil {
			e.logger.Error("analysis cycle failed",
				zap.String("strategy_id", cfg.ID),
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (e *Engine) runSymbol(ctx context.Context, inst *Instance, cfg types.StrategyConfig, symbol string) error {
	data, err := e.marketData(ctx, inst, cfg, symbol)
	if err != nil {
		return err
	}

	result, err := e.analyze(ctx, inst, cfg.Exchange, symbol, data)
	if errors.IsInsufficientData(err) {
		e.logger.Debug("not enough data for analysis", zap.String("strategy_id", cfg.ID), zap.String("symbol", symbol))

		return nil
	}

	if err != nil {
		return err
	}

	if result.IsNone() {
		return nil
	}

	signal := result.Unwrap()
	signal.StrategyID = cfg.ID

	if err := signal.Validate(); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s emitted an invalid signal", cfg.ID)
	}

	if err := e.repo.SaveSignal(ctx, signal); err != nil {
		e.logger.Warn("failed to persist signal", zap.String("signal_id", signal.ID), zap.Error(err))
	}

	e.dispatcher.Publish(signal)

	if signal.Action == types.SignalActionHold {
		return nil
	}

	return e.route(ctx, inst, cfg, signal)
}

func (e *Engine) marketData(ctx context.Context, inst *Instance, cfg types.StrategyConfig, symbol string) (types.MarketData, error) {
	lookback := e.config.DefaultLookback
	if provider, ok := inst.strategy.(LookbackProvider); ok && provider.Lookback() > 0 {
		lookback = provider.Lookback()
	}

	candles, err := e.market.GetOHLCV(ctx, cfg.Exchange, symbol, cfg.EffectiveTimeframe(), time.Time{}, lookback)
	if err != nil {
		return types.MarketData{}, err
	}

	data := types.MarketData{
		Candles:   candles,
		Ticker:    optional.None[types.Ticker](),
		OrderBook: optional.None[types.OrderBook](),
	}

	if ticker, err := e.market.GetTicker(ctx, cfg.Exchange, symbol); err == nil {
		data.Ticker = optional.Some(ticker)
	}

	if book, err := e.market.GetOrderBook(ctx, cfg.Exchange, symbol, e.config.OrderBookDepth); err == nil {
		data.OrderBook = optional.Some(book)
	}

	return data, nil
}

func (e *Engine) analyze(ctx context.Context, inst *Instance, exchange, symbol string, data types.MarketData) (result optional.Option[types.TradingSignal], err error) {
	defer func() {
		if r := recover(); r != nil {
			result = optional.None[types.TradingSignal]()
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s panicked: %v", inst.strategy.Name(), r)
		}
	}()

	return inst.strategy.Analyze(ctx, exchange, symbol, data)
}

func (e *Engine) route(ctx context.Context, inst *Instance, cfg types.StrategyConfig, signal types.TradingSignal) error {
	assessment, err := e.risk.Validate(ctx, cfg, signal)
	if err != nil {
		return err
	}

	if !assessment.Approved {
		return nil
	}

	executor, ok := inst.strategy.(SignalExecutor)
	if !ok {
		_, err := e.executor.Execute(ctx, cfg, signal, assessment)

		return err
	}

	var trades []types.Trade

	execErr := e.risk.WithTradingGate(ctx, func(ctx context.Context) error {
		var err error
		trades, err = executor.ExecuteSignal(ctx, signal, assessment)

		return err
	})

	if assessment.ReservationID != "" {
		if err := e.risk.Release(cfg.OwnerID, assessment.ReservationID); err != nil {
			e.logger.Debug("reservation already gone", zap.String("reservation_id", assessment.ReservationID))
		}
	}

	for _, trade := range trades {
		if err := e.repo.SaveTrade(ctx, trade); err != nil {
			e.logger.Error("failed to persist trade", zap.String("trade_id", trade.ID), zap.Error(err))
		}

		e.risk.OnTradeClosed(trade)

		if err := e.RecordTrade(ctx, trade); err != nil {
			e.logger.Warn("failed to record trade", zap.String("trade_id", trade.ID), zap.Error(err))
		}
	}

	return execErr
}

// RecordTrade folds a confirmed trade into its strategy's performance,
// persists the counters and notifies the strategy.
func (e *Engine) RecordTrade(ctx context.Context, trade types.Trade) error {
	inst, err := e.instance(trade.StrategyID)
	if err != nil {
		return err
	}

	performance := inst.recordTrade(trade)

	if observer, ok := inst.strategy.(ExecutionObserver); ok {
		observer.OnTrade(trade)
	}

	return e.repo.UpdatePerformance(ctx, trade.StrategyID, performance)
}

func (e *Engine) instance(id string) (*Instance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	inst, ok := e.instances[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", id)
	}

	return inst, nil
}

// Status reports the instance with id.
func (e *Engine) Status(id string) (Status, error) {
	inst, err := e.instance(id)
	if err != nil {
		return Status{}, err
	}

	return inst.Status(), nil
}

// Instance returns the registered instance with id.
func (e *Engine) Instance(id string) (*Instance, error) {
	return e.instance(id)
}

// Instances returns every registered instance, sorted by id.
func (e *Engine) Instances() []*Instance {
	e.mu.RLock()
	instances := make([]*Instance, 0, len(e.instances))

	for _, inst := range e.instances {
		instances = append(instances, inst)
	}
	e.mu.RUnlock()

	sort.Slice(instances, func(i, j int) bool { return instances[i].Config().ID < instances[j].Config().ID })

	return instances
}

// Statuses reports every instance, sorted by id.
func (e *Engine) Statuses() []Status {
	instances := e.Instances()
	statuses := make([]Status, 0, len(instances))

	for _, inst := range instances {
		statuses = append(statuses, inst.Status())
	}

	return statuses
}

// Package marketdata polls venues on a schedule, fans normalized snapshots
// out to the time-series and relational stores, and serves cached price and
// candle queries to the rest of the pipeline.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// GroupStatus describes one running collection group.
type GroupStatus struct {
	ID        string
	Exchange  string
	Symbols   []string
	Interval  time.Duration
	LastRun   time.Time
	Collected int
	Failures  int
}

type group struct {
	id       string
	exchange string
	symbols  []string
	interval time.Duration
	conn     connector.Connector
	entryID  cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	running   bool
	stopped   bool
	inflight  sync.WaitGroup
	lastRun   time.Time
	collected int
	failures  int
}

// begin marks a tick in flight. It refuses when the group is stopped or a
// previous tick has not finished.
func (g *group) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped || g.running {
		return false
	}

	g.running = true
	g.inflight.Add(1)

	return true
}

func (g *group) end(at time.Time, collected, failures int) {
	g.mu.Lock()
	g.running = false
	g.lastRun = at
	g.collected += collected
	g.failures += failures
	g.mu.Unlock()

	g.inflight.Done()
}

// halt stops new ticks, cancels the in-flight one and waits for it.
func (g *group) halt() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()

	g.cancel()
	g.inflight.Wait()
}

func (g *group) status() GroupStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	return GroupStatus{
		ID:        g.id,
		Exchange:  g.exchange,
		Symbols:   append([]string(nil), g.symbols...),
		Interval:  g.interval,
		LastRun:   g.lastRun,
		Collected: g.collected,
		Failures:  g.failures,
	}
}

// Collector owns the collection schedules and the price and candle caches.
type Collector struct {
	config  Config
	venues  *connector.Registry
	series  store.TimeSeries
	repo    store.Repository
	logger  *logger.Logger
	cron    *cron.Cron
	prices  *TTLCache[string, types.MarketSnapshot]
	candles *TTLCache[string, []types.Candle]
	now     func() time.Time
	mu      sync.Mutex
	groups  map[string]*group
	started bool
	cronLog logger.CronLogger
}

// NewCollector creates a collector. repo may be nil when only the
// time-series store is wanted.
func NewCollector(config Config, venues *connector.Registry, series store.TimeSeries, repo store.Repository, log *logger.Logger) (*Collector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if venues == nil || series == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "collector requires a venue registry and a time-series store")
	}

	log = log.Named("collector")
	cronLog := logger.NewCronLogger(log)

	c := &Collector{
		config:  config,
		venues:  venues,
		series:  series,
		repo:    repo,
		logger:  log,
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog))),
		prices:  NewTTLCache[string, types.MarketSnapshot](config.PriceTTL),
		candles: NewTTLCache[string, []types.Candle](config.CandleTTL),
		now:     time.Now,
		mu:      sync.Mutex{},
		groups:  make(map[string]*group),
		started: false,
		cronLog: cronLog,
	}

	return c, nil
}

// Start runs the scheduler. Groups started before Start begin ticking now.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}

	c.cron.Schedule(cron.Every(c.config.CandleTTL), cron.FuncJob(c.purge))
	c.cron.Start()
	c.started = true
}

// Stop halts every group, releases their venues and stops the scheduler.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.groups))

	for id := range c.groups {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var firstErr error

	for _, id := range ids {
		if err := c.StopCollection(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()

	if started {
		select {
		case <-c.cron.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return firstErr
}

// StartCollection acquires the venue and schedules a collection tick for
// symbols every interval. The first tick runs immediately.
func (c *Collector) StartCollection(ctx context.Context, exchange string, symbols []string, interval time.Duration) (string, error) {
	if len(symbols) == 0 {
		return "", errors.New(errors.ErrCodeInvalidParameter, "collection group needs at least one symbol")
	}

	for _, symbol := range symbols {
		if _, _, err := types.ParseSymbol(symbol); err != nil {
			return "", err
		}
	}

	if interval <= 0 {
		interval = c.config.DefaultInterval
	}

	conn, err := c.venues.Acquire(ctx, exchange)
	if err != nil {
		return "", err
	}

	groupCtx, cancel := context.WithCancel(context.Background())

	g := &group{ //nolint:exhaustruct
		id:       uuid.New().String(),
		exchange: exchange,
		symbols:  append([]string(nil), symbols...),
		interval: interval,
		conn:     conn,
		ctx:      groupCtx,
		cancel:   cancel,
	}

	job := cron.NewChain(cron.SkipIfStillRunning(c.cronLog)).Then(cron.FuncJob(func() { c.tick(g) }))

	c.mu.Lock()
	g.entryID = c.cron.Schedule(cron.Every(interval), job)
	c.groups[g.id] = g
	c.mu.Unlock()

	c.logger.Info("collection started",
		zap.String("group", g.id),
		zap.String("exchange", exchange),
		zap.Strings("symbols", symbols),
		zap.Duration("interval", interval),
	)

	go job.Run()

	return g.id, nil
}

// StopCollection removes the group's schedule, waits for an in-flight tick
// and releases the venue.
func (c *Collector) StopCollection(ctx context.Context, groupID string) error {
	c.mu.Lock()
	g, ok := c.groups[groupID]

	if ok {
		c.cron.Remove(g.entryID)
		delete(c.groups, groupID)
	}
	c.mu.Unlock()

	if !ok {
		return errors.Newf(errors.ErrCodeCollectionNotFound, "collection group %s not found", groupID)
	}

	g.halt()

	c.logger.Info("collection stopped", zap.String("group", groupID), zap.String("exchange", g.exchange))

	return c.venues.Release(ctx, g.exchange)
}

// Groups lists running groups ordered by exchange then id.
func (c *Collector) Groups() []GroupStatus {
	c.mu.Lock()
	groups := make([]*group, 0, len(c.groups))

	for _, g := range c.groups {
		groups = append(groups, g)
	}
	c.mu.Unlock()

	statuses := make([]GroupStatus, 0, len(groups))
	for _, g := range groups {
		statuses = append(statuses, g.status())
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Exchange != statuses[j].Exchange {
			return statuses[i].Exchange < statuses[j].Exchange
		}

		return statuses[i].ID < statuses[j].ID
	})

	return statuses
}

// CollectOnce runs one tick for the group synchronously. It reports false
// when a tick was already in flight.
func (c *Collector) CollectOnce(groupID string) (bool, error) {
	c.mu.Lock()
	g, ok := c.groups[groupID]
	c.mu.Unlock()

	if !ok {
		return false, errors.Newf(errors.ErrCodeCollectionNotFound, "collection group %s not found", groupID)
	}

	return c.tick(g), nil
}

func (c *Collector) tick(g *group) bool {
	if !g.begin() {
		c.logger.Debug("collection tick skipped, previous tick still running", zap.String("group", g.id))

		return false
	}

	collected, failures := c.collect(g)
	g.end(c.now(), collected, failures)

	return true
}

// collect fetches every symbol of the group. A failing symbol is logged and
// skipped; the remaining symbols are still collected.
func (c *Collector) collect(g *group) (int, int) {
	snapshots := make([]types.MarketSnapshot, 0, len(g.symbols))
	failures := 0

	for _, symbol := range g.symbols {
		if g.ctx.Err() != nil {
			break
		}

		snap, err := c.fetchSnapshot(g.ctx, g.conn, g.exchange, symbol)
		if err != nil {
			failures++

			c.logger.Warn("failed to collect ticker",
				zap.String("exchange", g.exchange),
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		snapshots = append(snapshots, snap)

		if err := c.collectCandles(g, symbol); err != nil {
			c.logger.Warn("failed to collect candles",
				zap.String("exchange", g.exchange),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}

	if len(snapshots) == 0 {
		return 0, failures
	}

	c.persist(g.ctx, snapshots)

	return len(snapshots), failures
}

func (c *Collector) fetchSnapshot(ctx context.Context, conn connector.Connector, exchange, symbol string) (types.MarketSnapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	ticker, err := conn.GetTicker(callCtx, symbol)
	if err != nil {
		return types.MarketSnapshot{}, err
	}

	ticker.Exchange = exchange
	ticker.Symbol = symbol
	snap := types.SnapshotFromTicker(ticker)

	c.prices.Set(cacheKey(exchange, symbol), snap)

	return snap, nil
}

func (c *Collector) collectCandles(g *group, symbol string) error {
	callCtx, cancel := context.WithTimeout(g.ctx, c.config.CallTimeout)
	defer cancel()

	candles, err := g.conn.GetOHLCV(callCtx, symbol, c.config.Timeframe, time.Time{}, c.config.CandleLimit)
	if err != nil {
		return err
	}

	if len(candles) == 0 {
		return nil
	}

	_, err = c.series.WriteCandles(g.ctx, g.exchange, symbol, c.config.Timeframe, candles)

	// cached windows are stale now
	c.candles.Delete(candleKey(g.exchange, symbol, c.config.Timeframe))

	return err
}

func (c *Collector) persist(ctx context.Context, snapshots []types.MarketSnapshot) {
	written, err := c.series.WriteSnapshots(ctx, snapshots)
	if err != nil {
		c.logger.Error("failed to write snapshots to time-series store", zap.Error(err))
	}

	inserted := 0
	if c.repo != nil {
		inserted, err = c.repo.SaveSnapshots(ctx, snapshots)
		if err != nil {
			c.logger.Error("failed to write snapshots to relational store", zap.Error(err))
		}
	}

	c.logger.Debug("snapshots persisted",
		zap.Int("snapshots", len(snapshots)),
		zap.Int("timeseries", written),
		zap.Int("relational", inserted),
	)
}

func (c *Collector) purge() {
	prices := c.prices.Purge()
	candles := c.candles.Purge()

	if prices+candles > 0 {
		c.logger.Debug("cache purged", zap.Int("prices", prices), zap.Int("candles", candles))
	}
}

// venue returns the connector without taking a reference; queries are
// served for registered venues whether or not a group holds them.
func (c *Collector) venue(exchange string) (connector.Connector, error) {
	return c.venues.Get(exchange)
}

// GetOHLCV returns candles from the cache, then the time-series store, then
// the venue. Venue results are written through to the store.
func (c *Collector) GetOHLCV(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error) {
	if !timeframe.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", timeframe)
	}

	key := candleKey(exchange, symbol, timeframe)
	wanted := max(limit, 1)

	if since.IsZero() {
		if cached, ok := c.candles.Get(key); ok && len(cached) >= wanted {
			return tail(cached, limit), nil
		}
	}

	stored, err := c.series.Candles(ctx, exchange, symbol, timeframe, since, limit)
	if err != nil {
		c.logger.Warn("failed to read candles from store", zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
	}

	if err == nil && len(stored) >= wanted && c.fresh(stored, timeframe, since) {
		if since.IsZero() {
			c.candles.Set(key, slices.Clone(stored))
		}

		return stored, nil
	}

	conn, err := c.venue(exchange)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	candles, err := conn.GetOHLCV(callCtx, symbol, timeframe, since, limit)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s %s candles from %s", symbol, timeframe, exchange)
	}

	if len(candles) > 0 {
		if _, err := c.series.WriteCandles(ctx, exchange, symbol, timeframe, candles); err != nil {
			c.logger.Warn("failed to write candles through to store", zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
		}

		if since.IsZero() {
			c.candles.Set(key, slices.Clone(candles))
		}
	}

	return candles, nil
}

// fresh reports whether a most-recent window from the store still reaches
// the current candle. Ranges anchored at since are historical and always
// fresh.
func (c *Collector) fresh(candles []types.Candle, timeframe types.Timeframe, since time.Time) bool {
	if !since.IsZero() {
		return true
	}

	last := candles[len(candles)-1].Timestamp

	return c.now().Sub(last) < 2*timeframe.Duration()
}

// GetLatestPrice returns the cached price, then a fresh stored snapshot,
// then a live ticker.
func (c *Collector) GetLatestPrice(ctx context.Context, exchange, symbol string) (float64, error) {
	key := cacheKey(exchange, symbol)

	if snap, ok := c.prices.Get(key); ok {
		return snap.Price, nil
	}

	latest, err := c.series.LatestSnapshot(ctx, exchange, symbol)
	if err != nil {
		c.logger.Warn("failed to read latest snapshot", zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
	}

	if err == nil && latest.IsSome() {
		snap := latest.Unwrap()
		if c.now().Sub(snap.Timestamp) <= c.config.PriceMaxAge {
			c.prices.Set(key, snap)

			return snap.Price, nil
		}
	}

	ticker, err := c.GetTicker(ctx, exchange, symbol)
	if err != nil {
		return 0, err
	}

	return ticker.Last, nil
}

// GetTicker fetches a live ticker and refreshes the price cache.
func (c *Collector) GetTicker(ctx context.Context, exchange, symbol string) (types.Ticker, error) {
	conn, err := c.venue(exchange)
	if err != nil {
		return types.Ticker{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	ticker, err := conn.GetTicker(callCtx, symbol)
	if err != nil {
		return types.Ticker{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s ticker from %s", symbol, exchange)
	}

	ticker.Exchange = exchange
	ticker.Symbol = symbol
	c.prices.Set(cacheKey(exchange, symbol), types.SnapshotFromTicker(ticker))

	return ticker, nil
}

// GetOrderBook fetches a live order book.
func (c *Collector) GetOrderBook(ctx context.Context, exchange, symbol string, depth int) (types.OrderBook, error) {
	conn, err := c.venue(exchange)
	if err != nil {
		return types.OrderBook{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	book, err := conn.GetOrderBook(callCtx, symbol, depth)
	if err != nil {
		return types.OrderBook{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s order book from %s", symbol, exchange)
	}

	return book, nil
}

// GetMarketStats aggregates the last period of snapshots. Without stored
// snapshots it falls back to candles covering the period.
func (c *Collector) GetMarketStats(ctx context.Context, exchange, symbol string, period time.Duration) (types.MarketStats, error) {
	if period <= 0 {
		return types.MarketStats{}, errors.New(errors.ErrCodeInvalidParameter, "stats period must be positive")
	}

	since := c.now().Add(-period)

	stats, err := c.series.Stats(ctx, exchange, symbol, since)
	if err != nil {
		c.logger.Warn("failed to aggregate stored snapshots", zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
	}

	if err == nil && stats.IsSome() {
		result := stats.Unwrap()
		result.Exchange = exchange
		result.Symbol = symbol
		result.Period = period

		return result, nil
	}

	timeframe := statsTimeframe(period)
	limit := int(math.Ceil(float64(period) / float64(timeframe.Duration())))

	candles, err := c.GetOHLCV(ctx, exchange, symbol, timeframe, time.Time{}, limit)
	if err != nil {
		return types.MarketStats{}, err
	}

	if len(candles) == 0 {
		return types.MarketStats{}, errors.Newf(errors.ErrCodeDataNotFound, "no market data for %s on %s", symbol, exchange)
	}

	result := StatsFromCandles(candles)
	result.Exchange = exchange
	result.Symbol = symbol
	result.Period = period

	return result, nil
}

// StatsFromCandles aggregates close prices, extremes and volume.
func StatsFromCandles(candles []types.Candle) types.MarketStats {
	if len(candles) == 0 {
		return types.MarketStats{} //nolint:exhaustruct
	}

	stats := types.MarketStats{ //nolint:exhaustruct
		Min:     candles[0].Low,
		Max:     candles[0].High,
		Samples: len(candles),
	}

	sum := 0.0

	for _, candle := range candles {
		sum += candle.Close
		stats.Volume += candle.Volume
		stats.Min = math.Min(stats.Min, candle.Low)
		stats.Max = math.Max(stats.Max, candle.High)
	}

	stats.Mean = sum / float64(len(candles))

	if first := candles[0].Open; first > 0 {
		stats.ChangePct = (candles[len(candles)-1].Close - first) / first * 100
	}

	return stats
}

// statsTimeframe picks the coarsest timeframe that still yields a useful
// number of candles for the period.
func statsTimeframe(period time.Duration) types.Timeframe {
	switch {
	case period <= 2*time.Hour:
		return types.Timeframe1m
	case period <= 12*time.Hour:
		return types.Timeframe5m
	case period <= 7*24*time.Hour:
		return types.Timeframe1h
	default:
		return types.Timeframe1d
	}
}

func cacheKey(exchange, symbol string) string {
	return exchange + "|" + symbol
}

func candleKey(exchange, symbol string, timeframe types.Timeframe) string {
	return fmt.Sprintf("%s|%s|%s", exchange, symbol, timeframe)
}

// tail copies the last limit candles so callers never share the cached slice.
func tail(candles []types.Candle, limit int) []types.Candle {
	if limit <= 0 || len(candles) <= limit {
		return slices.Clone(candles)
	}

	return slices.Clone(candles[len(candles)-limit:])
}

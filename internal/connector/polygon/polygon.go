// Package polygon exposes Polygon.io aggregates as a read-only connector.
// Trading operations fail with ErrCodeUnsupported.
package polygon

import (
	"context"
	"strings"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

const defaultName = "polygon"

type span struct {
	multiplier int
	timespan   models.Timespan
}

var timeframeSpans = map[types.Timeframe]span{
	types.Timeframe1m:  {1, models.Minute},
	types.Timeframe5m:  {5, models.Minute},
	types.Timeframe15m: {15, models.Minute},
	types.Timeframe30m: {30, models.Minute},
	types.Timeframe1h:  {1, models.Hour},
	types.Timeframe4h:  {4, models.Hour},
	types.Timeframe1d:  {1, models.Day},
	types.Timeframe1w:  {1, models.Week},
}

// Connector implements connector.Connector over Polygon aggregates.
type Connector struct {
	name   string
	market Market
	client AggregatesClient
	now    func() time.Time
}

func New(config Config) (*Connector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return newWithClient(config, newRestClient(config.APIKey)), nil
}

func newWithClient(config Config, client AggregatesClient) *Connector {
	name := config.Name
	if name == "" {
		name = defaultName
	}

	market := config.Market
	if market == "" {
		market = MarketCrypto
	}

	return &Connector{name: name, market: market, client: client, now: time.Now}
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Connect(_ context.Context) error {
	return nil
}

func (c *Connector) Disconnect(_ context.Context) error {
	return nil
}

// toTicker converts BTC/USD to X:BTCUSD for crypto and AAPL/USD to AAPL for stocks.
func (c *Connector) toTicker(symbol string) (string, error) {
	base, quote, err := types.ParseSymbol(symbol)
	if err != nil {
		return "", err
	}

	if c.market == MarketStocks {
		return base, nil
	}

	return "X:" + base + quote, nil
}

func (c *Connector) GetOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error) {
	ticker, err := c.toTicker(symbol)
	if err != nil {
		return nil, err
	}

	s, ok := timeframeSpans[timeframe]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "timeframe %q not supported by polygon", timeframe)
	}

	to := c.now().UTC()
	from := since

	if from.IsZero() {
		n := limit
		if n <= 0 {
			n = 500
		}

		from = to.Add(-time.Duration(n) * timeframe.Duration())
	}

	candles, err := c.client.ListAggs(ctx, ticker, s.multiplier, s.timespan, from, to, limit)
	if err != nil {
		return nil, classifyError(err, "failed to list polygon aggregates")
	}

	// A zero since asks for the most recent candles.
	if since.IsZero() && limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

// GetTicker derives a quote from the latest minute bar of the past day.
func (c *Connector) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	ticker, err := c.toTicker(symbol)
	if err != nil {
		return types.Ticker{}, err
	}

	to := c.now().UTC()

	candles, err := c.client.ListAggs(ctx, ticker, 1, models.Hour, to.Add(-24*time.Hour), to, 0)
	if err != nil {
		return types.Ticker{}, classifyError(err, "failed to get polygon ticker")
	}

	if len(candles) == 0 {
		return types.Ticker{}, errors.Newf(errors.ErrCodeDataNotFound, "no recent aggregates for %s", symbol)
	}

	first := candles[0]
	last := candles[len(candles)-1]

	volume := 0.0
	for _, candle := range candles {
		volume += candle.Volume
	}

	change := 0.0
	if first.Open > 0 {
		change = (last.Close - first.Open) / first.Open * 100
	}

	return types.Ticker{
		Exchange:  c.name,
		Symbol:    symbol,
		Last:      last.Close,
		Bid:       0,
		Ask:       0,
		Volume24h: volume,
		Change24h: change,
		Timestamp: last.Timestamp,
	}, nil
}

func (c *Connector) unsupported(op string) error {
	return errors.Newf(errors.ErrCodeUnsupported, "%s is read-only: %s is not supported", c.name, op)
}

func (c *Connector) GetBalance(_ context.Context) (types.Balance, error) {
	return types.Balance{}, c.unsupported("balances")
}

func (c *Connector) GetOrderBook(_ context.Context, _ string, _ int) (types.OrderBook, error) {
	return types.OrderBook{}, c.unsupported("order books")
}

func (c *Connector) CreateOrder(_ context.Context, _ types.OrderRequest) (types.Order, error) {
	return types.Order{}, c.unsupported("order placement")
}

func (c *Connector) CancelOrder(_ context.Context, _ string, _ string) error {
	return c.unsupported("order cancellation")
}

func (c *Connector) GetOrder(_ context.Context, _ string, _ string) (types.Order, error) {
	return types.Order{}, c.unsupported("order queries")
}

func (c *Connector) GetOpenOrders(_ context.Context, _ string) ([]types.Order, error) {
	return nil, c.unsupported("order queries")
}

func (c *Connector) GetPositions(_ context.Context) ([]types.Position, error) {
	return nil, c.unsupported("positions")
}

func (c *Connector) SetLeverage(_ context.Context, _ string, _ int) error {
	return c.unsupported("leverage")
}

func (c *Connector) SetMarginMode(_ context.Context, _ string, _ types.MarginMode) error {
	return c.unsupported("margin mode")
}

func (c *Connector) Fees() types.FeeSchedule {
	return types.FeeSchedule{MakerPercentage: 0, TakerPercentage: 0}
}

// classifyError maps HTTP status text in SDK errors onto connector codes.
func classifyError(err error, message string) error {
	text := err.Error()

	switch {
	case strings.Contains(text, "401"), strings.Contains(text, "403"):
		return errors.Wrap(errors.ErrCodeAuthFailed, message, err)
	case strings.Contains(text, "429"):
		return errors.Wrap(errors.ErrCodeRateLimited, message, err)
	default:
		return errors.Wrap(errors.ErrCodeConnectivity, message, err)
	}
}

var _ connector.Connector = (*Connector)(nil)

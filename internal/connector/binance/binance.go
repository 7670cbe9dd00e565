// Package binance adapts the Binance spot REST API to connector.Connector.
package binance

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

const (
	// DecimalPrecision is the fallback quantity precision. Symbol-specific
	// LOT_SIZE filters from exchange info would be more exact.
	DecimalPrecision = 8
	// DefaultFeePercentage is Binance's base spot taker fee.
	DefaultFeePercentage = 0.1
	defaultName          = "binance"
	maxKlines            = 1000
)

// Connector implements connector.Connector for Binance spot.
// It is stateless; every call goes to the API.
type Connector struct {
	name             string
	client           Client
	decimalPrecision int
	fees             types.FeeSchedule
}

// New creates a Binance connector.
// If config.BaseURL is set, it takes precedence over config.Testnet.
func New(config Config) (*Connector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newWithClient(config, &realClient{client: client}), nil
}

// newWithClient creates a connector with a custom client. Used by tests.
func newWithClient(config Config, client Client) *Connector {
	name := config.Name
	if name == "" {
		name = defaultName
	}

	fee := config.FeePercentage
	if fee == 0 {
		fee = DefaultFeePercentage
	}

	return &Connector{
		name:             name,
		client:           client,
		decimalPrecision: DecimalPrecision,
		fees:             types.FeeSchedule{MakerPercentage: fee, TakerPercentage: fee},
	}
}

func (c *Connector) Name() string {
	return c.name
}

// Connect pings the API and verifies the credentials with an account read.
func (c *Connector) Connect(ctx context.Context) error {
	if err := c.client.NewPingService().Do(ctx); err != nil {
		return classifyError(err, "failed to reach binance")
	}

	if _, err := c.client.NewGetAccountService().Do(ctx); err != nil {
		return classifyError(err, "failed to authenticate with binance")
	}

	return nil
}

// Disconnect is a no-op; the REST client holds no session.
func (c *Connector) Disconnect(_ context.Context) error {
	return nil
}

func (c *Connector) GetBalance(ctx context.Context) (types.Balance, error) {
	account, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.Balance{}, classifyError(err, "failed to get account info from binance")
	}

	balance := types.Balance{Exchange: c.name, Assets: make(map[string]types.AssetBalance, len(account.Balances))}

	for _, b := range account.Balances {
		free := parseFloat(b.Free)
		locked := parseFloat(b.Locked)

		if free+locked == 0 {
			continue
		}

		balance.Assets[b.Asset] = types.AssetBalance{Asset: b.Asset, Free: free, Locked: locked}
	}

	return balance, nil
}

func (c *Connector) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	native, err := toNativeSymbol(symbol)
	if err != nil {
		return types.Ticker{}, err
	}

	stats, err := c.client.NewListPriceChangeStatsService().Symbol(native).Do(ctx)
	if err != nil {
		return types.Ticker{}, classifyError(err, "failed to get ticker from binance")
	}

	if len(stats) == 0 {
		return types.Ticker{}, errors.Newf(errors.ErrCodeDataNotFound, "no ticker for %s", symbol)
	}

	s := stats[0]
	ts := time.UnixMilli(s.CloseTime)

	if s.CloseTime == 0 {
		ts = time.Now()
	}

	return types.Ticker{
		Exchange:  c.name,
		Symbol:    symbol,
		Last:      parseFloat(s.LastPrice),
		Bid:       parseFloat(s.BidPrice),
		Ask:       parseFloat(s.AskPrice),
		Volume24h: parseFloat(s.Volume),
		Change24h: parseFloat(s.PriceChangePercent),
		Timestamp: ts.UTC(),
	}, nil
}

func (c *Connector) GetOrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error) {
	native, err := toNativeSymbol(symbol)
	if err != nil {
		return types.OrderBook{}, err
	}

	service := c.client.NewDepthService().Symbol(native)
	if depth > 0 {
		service = service.Limit(depth)
	}

	res, err := service.Do(ctx)
	if err != nil {
		return types.OrderBook{}, classifyError(err, "failed to get order book from binance")
	}

	book := types.OrderBook{
		Exchange:  c.name,
		Symbol:    symbol,
		Bids:      make([]types.PriceLevel, 0, len(res.Bids)),
		Asks:      make([]types.PriceLevel, 0, len(res.Asks)),
		Timestamp: time.Now().UTC(),
	}

	for _, bid := range res.Bids {
		book.Bids = append(book.Bids, types.PriceLevel{Price: parseFloat(bid.Price), Quantity: parseFloat(bid.Quantity)})
	}

	for _, ask := range res.Asks {
		book.Asks = append(book.Asks, types.PriceLevel{Price: parseFloat(ask.Price), Quantity: parseFloat(ask.Quantity)})
	}

	return book, nil
}

func (c *Connector) GetOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error) {
	native, err := toNativeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	interval, err := toInterval(timeframe)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > maxKlines {
		limit = maxKlines
	}

	service := c.client.NewKlinesService().Symbol(native).Interval(interval).Limit(limit)
	if !since.IsZero() {
		service = service.StartTime(since.UnixMilli())
	}

	klines, err := service.Do(ctx)
	if err != nil {
		return nil, classifyError(err, "failed to get klines from binance")
	}

	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		})
	}

	return candles, nil
}

func (c *Connector) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	native, err := toNativeSymbol(req.Symbol)
	if err != nil {
		return types.Order{}, err
	}

	side, err := toSide(req.Side)
	if err != nil {
		return types.Order{}, err
	}

	orderType, err := toOrderType(req.Type)
	if err != nil {
		return types.Order{}, err
	}

	quantity := formatFloat(req.Amount, c.decimalPrecision)
	if parseFloat(quantity) <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidOrder,
			"order quantity %.8f is too small after rounding to %d decimal places", req.Amount, c.decimalPrecision)
	}

	service := c.client.NewCreateOrderService().
		Symbol(native).
		Side(side).
		Type(orderType).
		Quantity(quantity)

	if req.Type == types.OrderTypeLimit {
		service = service.
			Price(formatFloat(req.Price.Unwrap(), -1)).
			TimeInForce(binance.TimeInForceTypeGTC)
	}

	if req.StopPrice.IsSome() {
		service = service.StopPrice(formatFloat(req.StopPrice.Unwrap(), -1))
	}

	if req.ClientOrderID != "" {
		service = service.NewClientOrderID(req.ClientOrderID)
	}

	res, err := service.Do(ctx)
	if err != nil {
		return types.Order{}, classifyError(err, "failed to place order on binance")
	}

	return c.convertCreateOrderResponse(req, res), nil
}

func (c *Connector) convertCreateOrderResponse(req types.OrderRequest, res *binance.CreateOrderResponse) types.Order {
	filled := parseFloat(res.ExecutedQuantity)
	cost := parseFloat(res.CummulativeQuoteQuantity)

	fee := 0.0
	feeCurrency := ""

	for _, fill := range res.Fills {
		commission := parseFloat(fill.Commission)
		// Commission charged in the base asset is converted to quote at the fill price.
		if fill.CommissionAsset == types.BaseAsset(req.Symbol) {
			commission *= parseFloat(fill.Price)
		}

		fee += commission
		feeCurrency = types.QuoteAsset(req.Symbol)
	}

	average := 0.0
	if filled > 0 {
		average = cost / filled
	}

	created := time.UnixMilli(res.TransactTime).UTC()

	return types.Order{
		ID:            strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Exchange:      c.name,
		Symbol:        req.Symbol,
		Type:          fromOrderType(res.Type),
		Side:          fromSide(res.Side),
		Status:        mapOrderStatus(res.Status),
		Amount:        parseFloat(res.OrigQuantity),
		Price:         parseFloat(res.Price),
		StopPrice:     req.StopPrice.TakeOr(0),
		Filled:        filled,
		AveragePrice:  average,
		Cost:          cost,
		Fee:           fee,
		FeeCurrency:   feeCurrency,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func (c *Connector) convertOrder(o *binance.Order) types.Order {
	filled := parseFloat(o.ExecutedQuantity)
	cost := parseFloat(o.CummulativeQuoteQuantity)

	average := 0.0
	if filled > 0 {
		average = cost / filled
	}

	return types.Order{
		ID:            strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Exchange:      c.name,
		Symbol:        fromNativeSymbol(o.Symbol),
		Type:          fromOrderType(o.Type),
		Side:          fromSide(o.Side),
		Status:        mapOrderStatus(o.Status),
		Amount:        parseFloat(o.OrigQuantity),
		Price:         parseFloat(o.Price),
		StopPrice:     parseFloat(o.StopPrice),
		Filled:        filled,
		AveragePrice:  average,
		Cost:          cost,
		Fee:           0,
		FeeCurrency:   "",
		CreatedAt:     time.UnixMilli(o.Time).UTC(),
		UpdatedAt:     time.UnixMilli(o.UpdateTime).UTC(),
	}
}

func parseOrderID(id string) (int64, error) {
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order ID format", err)
	}

	return orderID, nil
}

func (c *Connector) CancelOrder(ctx context.Context, id string, symbol string) error {
	native, err := toNativeSymbol(symbol)
	if err != nil {
		return err
	}

	orderID, err := parseOrderID(id)
	if err != nil {
		return err
	}

	if _, err := c.client.NewCancelOrderService().Symbol(native).OrderID(orderID).Do(ctx); err != nil {
		return classifyError(err, "failed to cancel order on binance")
	}

	return nil
}

func (c *Connector) GetOrder(ctx context.Context, id string, symbol string) (types.Order, error) {
	native, err := toNativeSymbol(symbol)
	if err != nil {
		return types.Order{}, err
	}

	orderID, err := parseOrderID(id)
	if err != nil {
		return types.Order{}, err
	}

	order, err := c.client.NewGetOrderService().Symbol(native).OrderID(orderID).Do(ctx)
	if err != nil {
		return types.Order{}, classifyError(err, "failed to get order from binance")
	}

	return c.convertOrder(order), nil
}

func (c *Connector) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	service := c.client.NewListOpenOrdersService()

	if symbol != "" {
		native, err := toNativeSymbol(symbol)
		if err != nil {
			return nil, err
		}

		service = service.Symbol(native)
	}

	binanceOrders, err := service.Do(ctx)
	if err != nil {
		return nil, classifyError(err, "failed to get open orders from binance")
	}

	orders := make([]types.Order, 0, len(binanceOrders))
	for _, o := range binanceOrders {
		orders = append(orders, c.convertOrder(o))
	}

	return orders, nil
}

// GetPositions is unsupported: spot balances are not positions.
func (c *Connector) GetPositions(_ context.Context) ([]types.Position, error) {
	return nil, errors.Newf(errors.ErrCodeUnsupported, "%s spot does not expose positions", c.name)
}

// SetLeverage is unsupported on spot.
func (c *Connector) SetLeverage(_ context.Context, symbol string, _ int) error {
	return errors.Newf(errors.ErrCodeUnsupported, "%s spot does not support leverage for %s", c.name, symbol)
}

// SetMarginMode is unsupported on spot.
func (c *Connector) SetMarginMode(_ context.Context, symbol string, _ types.MarginMode) error {
	return errors.Newf(errors.ErrCodeUnsupported, "%s spot does not support margin mode for %s", c.name, symbol)
}

func (c *Connector) Fees() types.FeeSchedule {
	return c.fees
}

var _ connector.Connector = (*Connector)(nil)

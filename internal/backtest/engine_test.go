package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/mocks"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EngineTestSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	market   *mocks.MockMarketView
	repo     *mocks.MockRepository
	strategy *mocks.MockStrategy
	engine   *Engine
	start    time.Time
	// actions maps a candle close to the signal the strategy emits on it.
	actions map[float64]types.SignalAction
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.market = mocks.NewMockMarketView(suite.ctrl)
	suite.repo = mocks.NewMockRepository(suite.ctrl)
	suite.strategy = mocks.NewMockStrategy(suite.ctrl)
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.actions = map[float64]types.SignalAction{}

	suite.strategy.EXPECT().Name().Return("scripted").AnyTimes()
	suite.strategy.EXPECT().Initialize(gomock.Any()).Return(nil).AnyTimes()
	suite.strategy.EXPECT().Cleanup(gomock.Any()).Return(nil).AnyTimes()
	suite.strategy.EXPECT().Analyze(gomock.Any(), "binance", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, exchange, symbol string, data types.MarketData) (optional.Option[types.TradingSignal], error) {
			last := data.Candles[len(data.Candles)-1]
			suite.Equal(last.Close, data.Ticker.Unwrap().Last)

			action, ok := suite.actions[last.Close]
			if !ok {
				return optional.None[types.TradingSignal](), nil
			}

			return optional.Some(types.NewSignal("bt", exchange, symbol, action, 0.8, last.Timestamp)), nil
		}).AnyTimes()

	registry := strategy.NewRegistry()
	suite.Require().NoError(registry.Register(strategy.Definition{
		Type:         "scripted",
		Version:      "1.0.0",
		Description:  "replays fixed signals",
		Params:       nil,
		Factory:      func(strategy.Dependencies) (strategy.Strategy, error) { return suite.strategy, nil },
		Backtestable: true,
	}))
	suite.Require().NoError(registry.Register(strategy.Definition{
		Type:         "live-only",
		Version:      "1.0.0",
		Description:  "needs venues",
		Params:       nil,
		Factory:      func(strategy.Dependencies) (strategy.Strategy, error) { return suite.strategy, nil },
		Backtestable: false,
	}))

	suite.engine = NewEngine(registry, suite.market, suite.repo, logger.NewNopLogger())
	suite.engine.now = func() time.Time { return suite.start.Add(1000 * time.Hour) }
}

func (suite *EngineTestSuite) config(closes ...float64) Config {
	cfg := DefaultConfig()
	//nolint:exhaustruct
	cfg.Strategy = types.StrategyConfig{
		ID:        "bt",
		OwnerID:   "u1",
		Name:      "scripted",
		Type:      "scripted",
		Exchange:  "binance",
		Symbols:   []string{"BTC/USDT"},
		Timeframe: types.Timeframe1h,
	}
	cfg.Start = suite.start
	cfg.End = suite.start.Add(time.Duration(len(closes)-1) * time.Hour)
	cfg.WarmupPeriod = 2

	return cfg
}

func (suite *EngineTestSuite) expectCandles(closes ...float64) {
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{Timestamp: suite.start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}

	suite.market.EXPECT().GetOHLCV(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, suite.start, len(closes)).Return(candles, nil)
}

func (suite *EngineTestSuite) TestStopLossExit() {
	closes := []float64{100, 100.5, 100, 101, 94, 96}
	suite.expectCandles(closes...)
	suite.actions[100] = types.SignalActionBuy

	cfg := suite.config(closes...)
	cfg.StopLossPercentage = 5

	var saved types.BacktestResult

	suite.repo.EXPECT().SaveBacktestResult(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, result types.BacktestResult) error {
			saved = result

			return nil
		})

	result, err := suite.engine.Run(suite.ctx, cfg, NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Require().NoError(err)
	suite.Equal(result.ID, saved.ID)

	suite.Len(result.EquityCurve, len(closes)-cfg.WarmupPeriod)
	suite.Len(result.DrawdownCurve, len(result.EquityCurve))
	suite.Require().Len(result.Trades, 2)

	entry, exit := result.Trades[0], result.Trades[1]
	suite.Equal(types.OrderSideBuy, entry.Side)
	suite.InDelta(10, entry.Quantity, 1e-9)
	suite.Equal(types.TradeReasonStopLoss, exit.Reason)
	suite.InDelta(94, exit.Price, 1e-9)
	suite.InDelta(-60, exit.PnL, 1e-9)
	suite.Equal(entry.PositionID, exit.PositionID)

	suite.InDelta(10000, result.EquityCurve[0].Equity, 1e-9)
	suite.InDelta(10010, result.EquityCurve[1].Equity, 1e-9)
	suite.InDelta(9940, result.EquityCurve[2].Equity, 1e-9)
	suite.InDelta(9940, result.EquityCurve[3].Equity, 1e-9)

	m := result.Metrics
	suite.Equal(1, m.TotalTrades)
	suite.Equal(1, m.LosingTrades)
	suite.InDelta(9940, m.FinalBalance, 1e-9)
	suite.InDelta(-0.6, m.TotalReturnPercentage, 1e-9)
	suite.InDelta(70, m.MaxDrawdown, 1e-9)
	suite.InDelta(70.0/10010*100, m.MaxDrawdownPercentage, 1e-9)
	suite.Equal("bt", result.StrategyID)
	suite.Equal(float64(5), result.Config["stop_loss_percentage"])
}

func (suite *EngineTestSuite) TestFeesSlippageAndEndOfData() {
	closes := []float64{100.5, 100.5, 100, 110}
	suite.expectCandles(closes...)
	suite.actions[100] = types.SignalActionBuy

	cfg := suite.config(closes...)
	cfg.SlippagePercentage = 1
	cfg.EnableFees = true
	cfg.FeePercentage = 0.1

	result, err := suite.engine.Run(suite.ctx, cfg, nil, optional.None[OnProcessDataCallback]())
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 2)

	qty := 1000 / 101.0
	entry, exit := result.Trades[0], result.Trades[1]
	suite.InDelta(101, entry.Price, 1e-9)
	suite.InDelta(1, entry.Fee, 1e-9)
	suite.InDelta(-1, entry.PnL, 1e-9)

	exitFee := 108.9 * qty * 0.001
	suite.Equal(types.TradeReasonEndOfData, exit.Reason)
	suite.InDelta(108.9, exit.Price, 1e-9)
	suite.InDelta(exitFee, exit.Fee, 1e-9)
	suite.InDelta((108.9-101)*qty-exitFee, exit.PnL, 1e-9)

	suite.Len(result.EquityCurve, 2)
	suite.InDelta(9999+(110-101)*qty, result.EquityCurve[1].Equity, 1e-9)
	suite.InDelta(1+exitFee, result.Metrics.TotalFees, 1e-9)
	suite.InDelta(10000-1+(108.9-101)*qty-exitFee, result.Metrics.FinalBalance, 1e-9)
	suite.Equal(1, result.Metrics.WinningTrades)
}

func (suite *EngineTestSuite) TestSignals() {
	tests := []struct {
		name       string
		allowShort bool
		minimum    float64
		actions    map[float64]types.SignalAction
		sides      []types.OrderSide
		reasons    []string
	}{
		{
			name:    "opposite signal closes the long",
			actions: map[float64]types.SignalAction{100: types.SignalActionBuy, 105: types.SignalActionSell},
			sides:   []types.OrderSide{types.OrderSideBuy, types.OrderSideSell},
			reasons: []string{types.TradeReasonSignal, types.TradeReasonSignal},
		},
		{
			name:    "sell without shorting is ignored",
			actions: map[float64]types.SignalAction{100: types.SignalActionSell},
			sides:   []types.OrderSide{},
			reasons: []string{},
		},
		{
			name:       "sell opens a short when allowed",
			allowShort: true,
			actions:    map[float64]types.SignalAction{100: types.SignalActionSell, 105: types.SignalActionClose},
			sides:      []types.OrderSide{types.OrderSideSell, types.OrderSideBuy},
			reasons:    []string{types.TradeReasonSignal, types.TradeReasonSignal},
		},
		{
			name:    "weak signal is ignored",
			minimum: 0.9,
			actions: map[float64]types.SignalAction{100: types.SignalActionBuy},
			sides:   []types.OrderSide{},
			reasons: []string{},
		},
		{
			name:    "hold does nothing",
			actions: map[float64]types.SignalAction{100: types.SignalActionHold},
			sides:   []types.OrderSide{},
			reasons: []string{},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.SetupTest()

			closes := []float64{99, 99, 100, 102, 105, 103}
			suite.expectCandles(closes...)
			suite.repo.EXPECT().SaveBacktestResult(gomock.Any(), gomock.Any()).Return(nil)
			suite.actions = tc.actions

			cfg := suite.config(closes...)
			cfg.AllowShort = tc.allowShort
			cfg.MinSignalStrength = tc.minimum

			result, err := suite.engine.Run(suite.ctx, cfg, NewHandle(), optional.None[OnProcessDataCallback]())
			suite.Require().NoError(err)
			suite.Require().Len(result.Trades, len(tc.sides))

			for i, trade := range result.Trades {
				suite.Equal(tc.sides[i], trade.Side)
				suite.Equal(tc.reasons[i], trade.Reason)
			}
		})
	}
}

func (suite *EngineTestSuite) TestProgressAndCancel() {
	closes := []float64{100, 100, 100, 101, 102, 103, 104}
	suite.expectCandles(closes...)

	handle := NewHandle()
	calls := 0

	progress := optional.Some[OnProcessDataCallback](func(current, total int) {
		calls++
		suite.Equal(calls, current)
		suite.Equal(5, total)

		if current == 2 {
			handle.Cancel()
		}
	})

	_, err := suite.engine.Run(suite.ctx, suite.config(closes...), handle, progress)
	suite.Equal(errors.ErrCodeBacktestCancelled, errors.GetCode(err))
	suite.Equal(2, calls)
}

func (suite *EngineTestSuite) TestContextCancel() {
	closes := []float64{100, 100, 100, 101}
	suite.expectCandles(closes...)

	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.engine.Run(ctx, suite.config(closes...), NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Equal(errors.ErrCodeBacktestCancelled, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestNotEnoughData() {
	closes := []float64{100, 100}
	suite.expectCandles(closes...)

	_, err := suite.engine.Run(suite.ctx, suite.config(closes...), NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Equal(errors.ErrCodeBacktestNoData, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestRejectsLiveOnlyStrategy() {
	cfg := suite.config(100, 100, 100)
	cfg.Strategy.Type = "live-only"

	_, err := suite.engine.Run(suite.ctx, cfg, NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Equal(errors.ErrCodeUnsupportedStrategy, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestInvalidConfig() {
	cfg := suite.config(100, 100, 100)
	cfg.End = cfg.Start

	_, err := suite.engine.Run(suite.ctx, cfg, NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Equal(errors.ErrCodeBacktestConfigError, errors.GetCode(err))

	cfg = suite.config(100, 100, 100)
	cfg.PositionSizeFraction = 1.5

	_, err = suite.engine.Run(suite.ctx, cfg, NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Equal(errors.ErrCodeBacktestConfigError, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestInsufficientDataIsNoSignal() {
	closes := []float64{100, 100, 100, 101}
	suite.expectCandles(closes...)
	suite.repo.EXPECT().SaveBacktestResult(gomock.Any(), gomock.Any()).Return(nil)

	ctrl := gomock.NewController(suite.T())
	picky := mocks.NewMockStrategy(ctrl)
	picky.EXPECT().Initialize(gomock.Any()).Return(nil)
	picky.EXPECT().Cleanup(gomock.Any()).Return(nil)
	picky.EXPECT().Analyze(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(optional.None[types.TradingSignal](), errors.InsufficientData("trend", 10, 3)).
		Times(2)

	registry := strategy.NewRegistry()
	suite.Require().NoError(registry.Register(strategy.Definition{
		Type:         "scripted",
		Version:      "1.0.0",
		Description:  "",
		Params:       nil,
		Factory:      func(strategy.Dependencies) (strategy.Strategy, error) { return picky, nil },
		Backtestable: true,
	}))

	engine := NewEngine(registry, suite.market, suite.repo, logger.NewNopLogger())

	result, err := engine.Run(suite.ctx, suite.config(closes...), NewHandle(), optional.None[OnProcessDataCallback]())
	suite.Require().NoError(err)
	suite.Empty(result.Trades)
	suite.Len(result.EquityCurve, 2)
}

package relational

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RelationalStoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestRelationalStoreSuite(t *testing.T) {
	suite.Run(t, new(RelationalStoreTestSuite))
}

func (suite *RelationalStoreTestSuite) SetupTest() {
	var err error

	suite.store, err = Open(Config{ //nolint:exhaustruct
		Driver: DriverSQLite,
		DSN:    "file:" + uuid.New().String() + "?mode=memory&cache=shared",
	}, logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.ctx = context.Background()
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *RelationalStoreTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *RelationalStoreTestSuite) strategy(id string, active bool) types.StrategyConfig {
	return types.StrategyConfig{ //nolint:exhaustruct
		ID:         id,
		OwnerID:    "user-1",
		Name:       "trend " + id,
		Type:       "trend_following",
		Exchange:   "binance",
		Symbols:    []string{"BTC/USDT"},
		Timeframe:  types.Timeframe1h,
		Parameters: map[string]any{"short_period": float64(10)},
		IsActive:   active,
	}
}

func (suite *RelationalStoreTestSuite) position(id string, status types.PositionStatus) types.Position {
	return types.Position{
		ID:            id,
		OwnerID:       "user-1",
		StrategyID:    "s1",
		Exchange:      "binance",
		Symbol:        "BTC/USDT",
		Side:          types.PositionSideLong,
		Quantity:      0.5,
		EntryPrice:    40000,
		CurrentPrice:  40000,
		UnrealizedPnl: 0,
		RealizedPnl:   -20,
		StopLoss:      optional.Some(38000.0),
		TakeProfit:    optional.None[float64](),
		Status:        status,
		IsPaper:       true,
		OpenedAt:      suite.now,
		ClosedAt:      optional.None[time.Time](),
		UpdatedAt:     suite.now,
	}
}

func (suite *RelationalStoreTestSuite) trade(id string) types.Trade {
	return types.Trade{
		ID:         id,
		OrderID:    "o-" + id,
		PositionID: "p1",
		OwnerID:    "user-1",
		StrategyID: "s1",
		Exchange:   "binance",
		Symbol:     "BTC/USDT",
		Side:       types.OrderSideBuy,
		Price:      40000,
		Quantity:   0.5,
		Fee:        20,
		PnL:        -20,
		IsClosing:  false,
		Reason:     types.TradeReasonSignal,
		IsPaper:    true,
		ExecutedAt: suite.now,
	}
}

func (suite *RelationalStoreTestSuite) TestOpen_InvalidConfig() {
	_, err := Open(Config{Driver: "oracle"}, logger.NewNopLogger()) //nolint:exhaustruct
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *RelationalStoreTestSuite) TestStrategyRoundTrip() {
	cfg := suite.strategy("s1", true)
	params := types.DefaultRiskParameters()
	cfg.RiskParameters = &params

	suite.Require().NoError(suite.store.SaveStrategy(suite.ctx, cfg))

	loaded, err := suite.store.GetStrategy(suite.ctx, "s1")
	suite.Require().NoError(err)
	suite.Equal("trend s1", loaded.Name)
	suite.Equal([]string{"BTC/USDT"}, loaded.Symbols)
	suite.Equal(float64(10), loaded.Parameters["short_period"])
	suite.Require().NotNil(loaded.RiskParameters)
	suite.Equal(5, loaded.RiskParameters.MaxOpenPositions)
	suite.False(loaded.CreatedAt.IsZero())

	cfg.Name = "renamed"
	suite.Require().NoError(suite.store.SaveStrategy(suite.ctx, cfg))

	loaded, err = suite.store.GetStrategy(suite.ctx, "s1")
	suite.Require().NoError(err)
	suite.Equal("renamed", loaded.Name)
}

func (suite *RelationalStoreTestSuite) TestGetStrategy_NotFound() {
	_, err := suite.store.GetStrategy(suite.ctx, "missing")
	suite.Error(err)
	suite.Equal(errors.ErrCodeStrategyNotFound, errors.GetCode(err))
}

func (suite *RelationalStoreTestSuite) TestListStrategies_ActiveOnly() {
	suite.Require().NoError(suite.store.SaveStrategy(suite.ctx, suite.strategy("s1", true)))
	suite.Require().NoError(suite.store.SaveStrategy(suite.ctx, suite.strategy("s2", false)))

	all, err := suite.store.ListStrategies(suite.ctx, false)
	suite.Require().NoError(err)
	suite.Len(all, 2)

	active, err := suite.store.ListStrategies(suite.ctx, true)
	suite.Require().NoError(err)
	suite.Require().Len(active, 1)
	suite.Equal("s1", active[0].ID)

	suite.Require().NoError(suite.store.SetStrategyActive(suite.ctx, "s1", false))

	active, err = suite.store.ListStrategies(suite.ctx, true)
	suite.Require().NoError(err)
	suite.Empty(active)
}

func (suite *RelationalStoreTestSuite) TestUpdatePerformance() {
	suite.Require().NoError(suite.store.SaveStrategy(suite.ctx, suite.strategy("s1", true)))

	perf := types.StrategyPerformance{TotalTrades: 4, ClosedTrades: 2, WinningTrades: 1, WinRate: 0.5, TotalPnl: 12.5}
	suite.Require().NoError(suite.store.UpdatePerformance(suite.ctx, "s1", perf))

	loaded, err := suite.store.GetStrategy(suite.ctx, "s1")
	suite.Require().NoError(err)
	suite.Equal(perf, loaded.Performance)

	err = suite.store.UpdatePerformance(suite.ctx, "missing", perf)
	suite.Equal(errors.ErrCodeStrategyNotFound, errors.GetCode(err))
}

func (suite *RelationalStoreTestSuite) TestSignals_NewestFirst() {
	for i := range 3 {
		signal := types.NewSignal("s1", "binance", "BTC/USDT", types.SignalActionBuy, 0.8, suite.now.Add(time.Duration(i)*time.Minute))
		signal.StopLoss = optional.Some(39000.0)
		suite.Require().NoError(suite.store.SaveSignal(suite.ctx, signal))
	}

	signals, err := suite.store.ListSignals(suite.ctx, "s1", 2)
	suite.Require().NoError(err)
	suite.Require().Len(signals, 2)
	suite.Equal(suite.now.Add(2*time.Minute), signals[0].Timestamp)
	suite.Equal(39000.0, signals[0].StopLoss.Unwrap())
	suite.True(signals[0].TakeProfit.IsNone())
}

func (suite *RelationalStoreTestSuite) TestRecordExecution_UpsertsPosition() {
	pos := suite.position("p1", types.PositionStatusOpen)
	suite.Require().NoError(suite.store.RecordExecution(suite.ctx, suite.trade("t1"), pos))

	closing := suite.trade("t2")
	closing.Side = types.OrderSideSell
	closing.IsClosing = true
	closing.PnL = 480

	pos.Quantity = 0
	pos.Status = types.PositionStatusClosed
	pos.ClosedAt = optional.Some(suite.now.Add(time.Hour))
	suite.Require().NoError(suite.store.RecordExecution(suite.ctx, closing, pos))

	loaded, err := suite.store.GetPosition(suite.ctx, "p1")
	suite.Require().NoError(err)
	suite.Equal(types.PositionStatusClosed, loaded.Status)
	suite.Equal(suite.now.Add(time.Hour), loaded.ClosedAt.Unwrap())
	suite.Equal(38000.0, loaded.StopLoss.Unwrap())

	trades, err := suite.store.ListTrades(suite.ctx, "s1")
	suite.Require().NoError(err)
	suite.Require().Len(trades, 2)
	suite.True(trades[1].IsClosing)

	open, err := suite.store.OpenPositions(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Empty(open)
}

func (suite *RelationalStoreTestSuite) TestRecordExecution_DuplicateTradeRollsBack() {
	pos := suite.position("p1", types.PositionStatusOpen)
	suite.Require().NoError(suite.store.RecordExecution(suite.ctx, suite.trade("t1"), pos))

	pos.Quantity = 99
	err := suite.store.RecordExecution(suite.ctx, suite.trade("t1"), pos)
	suite.Error(err)
	suite.Equal(errors.ErrCodeStorageFailed, errors.GetCode(err))

	loaded, err := suite.store.GetPosition(suite.ctx, "p1")
	suite.Require().NoError(err)
	suite.Equal(0.5, loaded.Quantity)
}

func (suite *RelationalStoreTestSuite) TestOpenPositions_FiltersOwner() {
	suite.Require().NoError(suite.store.RecordExecution(suite.ctx, suite.trade("t1"), suite.position("p1", types.PositionStatusOpen)))

	other := suite.position("p2", types.PositionStatusOpen)
	other.OwnerID = "user-2"
	trade := suite.trade("t2")
	trade.PositionID = "p2"
	suite.Require().NoError(suite.store.RecordExecution(suite.ctx, trade, other))

	mine, err := suite.store.OpenPositions(suite.ctx, "user-1")
	suite.Require().NoError(err)
	suite.Require().Len(mine, 1)
	suite.Equal("p1", mine[0].ID)

	all, err := suite.store.OpenPositions(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Len(all, 2)
}

func (suite *RelationalStoreTestSuite) TestUpdatePositionMark() {
	pos := suite.position("p1", types.PositionStatusOpen)
	suite.Require().NoError(suite.store.RecordExecution(suite.ctx, suite.trade("t1"), pos))

	pos.Mark(42000, suite.now.Add(time.Minute))
	pos.Quantity = 7
	suite.Require().NoError(suite.store.UpdatePositionMark(suite.ctx, pos))

	loaded, err := suite.store.GetPosition(suite.ctx, "p1")
	suite.Require().NoError(err)
	suite.Equal(42000.0, loaded.CurrentPrice)
	suite.InDelta(1000.0, loaded.UnrealizedPnl, 1e-9)
	suite.Equal(0.5, loaded.Quantity)

	err = suite.store.UpdatePositionMark(suite.ctx, suite.position("missing", types.PositionStatusOpen))
	suite.Equal(errors.ErrCodePositionNotFound, errors.GetCode(err))
}

func (suite *RelationalStoreTestSuite) TestSaveTrade_WithoutPosition() {
	leg := suite.trade("leg-1")
	leg.PositionID = ""
	leg.Reason = types.TradeReasonArbitrage
	suite.Require().NoError(suite.store.SaveTrade(suite.ctx, leg))

	trades, err := suite.store.ListTrades(suite.ctx, leg.StrategyID)
	suite.Require().NoError(err)
	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeReasonArbitrage, trades[0].Reason)

	err = suite.store.SaveTrade(suite.ctx, leg)
	suite.Equal(errors.ErrCodeStorageFailed, errors.GetCode(err))
}

func (suite *RelationalStoreTestSuite) TestSaveSnapshots_SkipsDuplicates() {
	snap := types.MarketSnapshot{
		Exchange:  "binance",
		Symbol:    "BTC/USDT",
		Timestamp: suite.now,
		Price:     40000,
		Bid:       39999,
		Ask:       40001,
		Volume24h: 1000,
		Change24h: 1.5,
	}
	later := snap
	later.Timestamp = suite.now.Add(time.Minute)

	inserted, err := suite.store.SaveSnapshots(suite.ctx, []types.MarketSnapshot{snap, later})
	suite.Require().NoError(err)
	suite.Equal(2, inserted)

	_, err = suite.store.SaveSnapshots(suite.ctx, []types.MarketSnapshot{snap})
	suite.Require().NoError(err)

	var count int64
	suite.Require().NoError(suite.store.db.Model(&marketDataModel{}).Count(&count).Error) //nolint:exhaustruct
	suite.Equal(int64(2), count)

	inserted, err = suite.store.SaveSnapshots(suite.ctx, nil)
	suite.NoError(err)
	suite.Zero(inserted)
}

func (suite *RelationalStoreTestSuite) TestBacktestResult() {
	result := types.BacktestResult{
		ID:            "bt-1",
		StrategyID:    "s1",
		Config:        map[string]any{"initial_balance": float64(10000)},
		Metrics:       types.BacktestMetrics{TotalTrades: 2, FinalBalance: 10100}, //nolint:exhaustruct
		Trades:        []types.Trade{suite.trade("t1")},
		EquityCurve:   []types.EquityPoint{{Timestamp: suite.now, Equity: 10000}},
		DrawdownCurve: []types.DrawdownPoint{{Timestamp: suite.now, Percentage: 0}},
		CompletedAt:   suite.now,
	}
	suite.Require().NoError(suite.store.SaveBacktestResult(suite.ctx, result))

	loaded, err := suite.store.GetBacktestResult(suite.ctx, "bt-1")
	suite.Require().NoError(err)
	suite.Equal(result.Metrics, loaded.Metrics)
	suite.Require().Len(loaded.Trades, 1)
	suite.Equal("t1", loaded.Trades[0].ID)
	suite.Equal(suite.now, loaded.CompletedAt)

	_, err = suite.store.GetBacktestResult(suite.ctx, "missing")
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *RelationalStoreTestSuite) TestRiskOverrides_Upsert() {
	params := types.DefaultRiskParameters()
	suite.Require().NoError(suite.store.SaveRiskOverride(suite.ctx, store.RiskOverride{Scope: store.RiskScopeGlobal, ScopeID: "", Parameters: params}))

	params.MaxOpenPositions = 2
	suite.Require().NoError(suite.store.SaveRiskOverride(suite.ctx, store.RiskOverride{Scope: store.RiskScopeGlobal, ScopeID: "", Parameters: params}))
	suite.Require().NoError(suite.store.SaveRiskOverride(suite.ctx, store.RiskOverride{Scope: store.RiskScopeStrategy, ScopeID: "s1", Parameters: params}))

	overrides, err := suite.store.ListRiskOverrides(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(overrides, 2)

	for _, o := range overrides {
		suite.Equal(2, o.Parameters.MaxOpenPositions)
	}

	params.MaxOpenPositions = 0
	err = suite.store.SaveRiskOverride(suite.ctx, store.RiskOverride{Scope: store.RiskScopeUser, ScopeID: "u", Parameters: params})
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

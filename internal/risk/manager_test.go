package risk_test

import (
	"context"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/mocks"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ManagerTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	market  *mocks.MockMarketData
	capital *mocks.MockCapitalProvider
	stopper *mocks.MockStrategyStopper
	venue   *mocks.MockConnector
	config  risk.Config
	manager *risk.Manager
	now     time.Time
	cfg     types.StrategyConfig
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (suite *ManagerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.market = mocks.NewMockMarketData(suite.ctrl)
	suite.capital = mocks.NewMockCapitalProvider(suite.ctrl)
	suite.stopper = mocks.NewMockStrategyStopper(suite.ctrl)
	suite.venue = mocks.NewMockConnector(suite.ctrl)
	suite.venue.EXPECT().Name().Return("binance").AnyTimes()
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.config = risk.DefaultConfig()

	//nolint:exhaustruct
	suite.cfg = types.StrategyConfig{
		ID:       "s1",
		OwnerID:  "u1",
		Name:     "trend",
		Type:     "trend",
		Exchange: "binance",
		Symbols:  []string{"BTC/USDT"},
		IsActive: true,
	}

	suite.build()
}

func (suite *ManagerTestSuite) build() {
	params, err := risk.NewParameterStore(suite.config.Defaults, nil)
	suite.Require().NoError(err)

	registry := connector.NewRegistry(logger.NewNopLogger())
	suite.Require().NoError(registry.Register(suite.venue))

	suite.manager, err = risk.NewManager(suite.config, params, suite.market, suite.capital, registry, nil, logger.NewNopLogger())
	suite.Require().NoError(err)
	risk.SetNow(suite.manager, func() time.Time { return suite.now })
	suite.manager.SetStopper(suite.stopper)
}

func (suite *ManagerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ManagerTestSuite) signal(action types.SignalAction, strength float64) types.TradingSignal {
	return types.NewSignal("s1", "binance", "BTC/USDT", action, strength, suite.now)
}

// hourly returns 25 closes; swing is the alternating move in percent.
func hourly(swing float64) []types.Candle {
	candles := make([]types.Candle, 25)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := range candles {
		price := 100.0
		if i%2 == 1 {
			price += swing
		}

		//nolint:exhaustruct
		candles[i] = types.Candle{Timestamp: start.Add(time.Duration(i) * time.Hour), Close: price}
	}

	return candles
}

func (suite *ManagerTestSuite) expectInputs(price, capital, swing float64) {
	suite.market.EXPECT().GetLatestPrice(gomock.Any(), "binance", gomock.Any()).Return(price, nil).AnyTimes()
	suite.capital.EXPECT().AvailableCapital(gomock.Any(), gomock.Any(), gomock.Any()).Return(capital, nil).AnyTimes()
	suite.market.EXPECT().
		GetOHLCV(gomock.Any(), "binance", gomock.Any(), types.Timeframe1h, time.Time{}, 25).
		Return(hourly(swing), nil).
		AnyTimes()
}

func (suite *ManagerTestSuite) position(id, strategyID string, side types.PositionSide, quantity, price float64) types.Position {
	//nolint:exhaustruct
	return types.Position{
		ID:           id,
		OwnerID:      "u1",
		StrategyID:   strategyID,
		Exchange:     "binance",
		Symbol:       "BTC/USDT",
		Side:         side,
		Quantity:     quantity,
		EntryPrice:   price,
		CurrentPrice: price,
		Status:       types.PositionStatusOpen,
	}
}

func (suite *ManagerTestSuite) TestApprovesAndSizesEntry() {
	params := types.DefaultRiskParameters()
	params.MaxPositionSizeUSD = 10000
	suite.cfg.RiskParameters = &params
	suite.expectInputs(100, 10000, 0.1)

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)

	suite.True(assessment.Approved)
	suite.Equal(risk.ReasonNone, assessment.Reason)
	suite.Equal(types.PositionSideLong, assessment.Side)
	suite.Equal(types.OrderSideBuy, assessment.OrderSide())
	suite.InDelta(200.0, assessment.RiskAmount, 1e-9)
	suite.InDelta(95.0, assessment.StopLossPrice.Unwrap(), 1e-9)
	suite.InDelta(110.0, assessment.TakeProfitPrice.Unwrap(), 1e-9)
	suite.InDelta(40.0, assessment.PositionSize, 1e-9)
	suite.InDelta(200.0, assessment.MaxLossAmount, 1e-9)
	suite.Less(assessment.RiskScore, 0.6)
	suite.NotEmpty(assessment.ReservationID)
	suite.Empty(assessment.Warnings)

	metrics := suite.manager.Metrics("u1")
	suite.Equal(1, metrics.Reservations)
	suite.InDelta(4000.0, metrics.Reserved, 1e-9)
	suite.InDelta(10000.0, metrics.PeakEquity, 1e-9)
}

func (suite *ManagerTestSuite) TestCapsSizeAtNotionalLimit() {
	suite.expectInputs(100, 10000, 0.1)

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)

	suite.True(assessment.Approved)
	suite.InDelta(10.0, assessment.PositionSize, 1e-9)
	suite.Contains(assessment.Warnings, "position size capped by notional limit")
}

func (suite *ManagerTestSuite) TestUsesSignalStopLoss() {
	suite.expectInputs(100, 10000, 0.1)

	signal := suite.signal(types.SignalActionBuy, 0.9)
	signal.StopLoss = optional.Some(98.0)

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, signal)
	suite.Require().NoError(err)
	suite.InDelta(98.0, assessment.StopLossPrice.Unwrap(), 1e-9)
}

func (suite *ManagerTestSuite) TestRejectsStopOnWrongSide() {
	suite.config.AllowShort = true
	suite.build()
	suite.expectInputs(100, 10000, 0.1)

	tests := []struct {
		name   string
		action types.SignalAction
		stop   float64
	}{
		{name: "long stop above entry", action: types.SignalActionBuy, stop: 102},
		{name: "long stop at entry", action: types.SignalActionBuy, stop: 100},
		{name: "short stop below entry", action: types.SignalActionSell, stop: 98},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signal := suite.signal(tc.action, 0.9)
			signal.StopLoss = optional.Some(tc.stop)

			assessment, err := suite.manager.Validate(context.Background(), suite.cfg, signal)
			suite.Require().NoError(err)
			suite.False(assessment.Approved)
			suite.Equal(risk.ReasonInvalidStop, assessment.Reason)
		})
	}

	signal := suite.signal(types.SignalActionSell, 0.9)
	signal.StopLoss = optional.Some(103.0)

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, signal)
	suite.Require().NoError(err)
	suite.True(assessment.Approved)
	suite.Equal(types.PositionSideShort, assessment.Side)
	suite.InDelta(103.0, assessment.StopLossPrice.Unwrap(), 1e-9)
}

func (suite *ManagerTestSuite) TestRejectionsBeforeMarketData() {
	invalid := suite.signal(types.SignalActionBuy, 0.9)
	invalid.Symbol = ""

	//nolint:exhaustruct
	tests := []struct {
		name   string
		signal types.TradingSignal
		reason risk.RejectReason
	}{
		{name: "hold", signal: suite.signal(types.SignalActionHold, 1), reason: risk.ReasonHoldSignal},
		{name: "invalid", signal: invalid, reason: risk.ReasonInvalidSignal},
		{name: "close without position", signal: suite.signal(types.SignalActionClose, 1), reason: risk.ReasonNoPosition},
		{name: "sell without position", signal: suite.signal(types.SignalActionSell, 1), reason: risk.ReasonNoPosition},
		{name: "low confidence", signal: suite.signal(types.SignalActionBuy, 0.5), reason: risk.ReasonLowConfidence},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			assessment, err := suite.manager.Validate(context.Background(), suite.cfg, tc.signal)
			suite.Require().NoError(err)
			suite.False(assessment.Approved)
			suite.Equal(tc.reason, assessment.Reason)
		})
	}
}

func (suite *ManagerTestSuite) TestReservationsCountTowardOpenPositions() {
	params := types.DefaultRiskParameters()
	params.MaxOpenPositions = 2
	suite.cfg.RiskParameters = &params
	suite.expectInputs(100, 10000, 0.1)

	first, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.True(first.Approved)

	second, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.True(second.Approved)

	third, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.False(third.Approved)
	suite.Equal(risk.ReasonMaxOpenPositions, third.Reason)

	suite.Require().NoError(suite.manager.Release("u1", second.ReservationID))

	fourth, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.True(fourth.Approved)
}

func (suite *ManagerTestSuite) TestConcurrentValidateRespectsOpenPositionLimit() {
	params := types.DefaultRiskParameters()
	params.MaxOpenPositions = 2
	suite.cfg.RiskParameters = &params
	suite.expectInputs(100, 10000, 0.1)

	symbols := []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "ADA/USDT", "XRP/USDT", "DOGE/USDT", "LTC/USDT", "DOT/USDT"}
	assessments := make([]risk.Assessment, len(symbols))
	errs := make([]error, len(symbols))

	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)

		go func() {
			defer wg.Done()

			signal := types.NewSignal("s1", "binance", symbol, types.SignalActionBuy, 0.9, suite.now)
			assessments[i], errs[i] = suite.manager.Validate(context.Background(), suite.cfg, signal)
		}()
	}

	wg.Wait()

	approved := 0

	for i := range symbols {
		suite.Require().NoError(errs[i])

		if assessments[i].Approved {
			approved++

			continue
		}

		suite.Equal(risk.ReasonMaxOpenPositions, assessments[i].Reason)
	}

	suite.Equal(2, approved)
	suite.Equal(2, suite.manager.Metrics("u1").Reservations)
}

func (suite *ManagerTestSuite) TestReservationExpires() {
	suite.expectInputs(100, 10000, 0.1)

	_, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.Equal(1, suite.manager.Metrics("u1").Reservations)

	suite.now = suite.now.Add(suite.config.ReservationTTL)
	suite.Equal(0, suite.manager.Metrics("u1").Reservations)
}

func (suite *ManagerTestSuite) TestCommitAndRelease() {
	suite.expectInputs(100, 10000, 0.1)

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)

	position := suite.position("p1", "s1", types.PositionSideLong, 10, 100)
	suite.Require().NoError(suite.manager.Commit(assessment.ReservationID, position))

	metrics := suite.manager.Metrics("u1")
	suite.Equal(1, metrics.OpenPositions)
	suite.Equal(0, metrics.Reservations)
	suite.InDelta(1000.0, metrics.Exposure, 1e-9)

	err = suite.manager.Commit(assessment.ReservationID, position)
	suite.True(errors.HasCode(err, errors.ErrCodeReservationNotFound))

	err = suite.manager.Release("u1", "missing")
	suite.True(errors.HasCode(err, errors.ErrCodeReservationNotFound))

	position.Mark(110, suite.now)
	suite.manager.OnPositionMarked(position)
	suite.InDelta(1100.0, suite.manager.Metrics("u1").Exposure, 1e-9)

	suite.manager.OnPositionClosed(position)
	suite.Equal(0, suite.manager.Metrics("u1").OpenPositions)
}

func (suite *ManagerTestSuite) TestExitBypassesEntryChecks() {
	suite.manager.OnPositionOpened(suite.position("p1", "s1", types.PositionSideLong, 2, 100))

	sell, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionSell, 0.1))
	suite.Require().NoError(err)
	suite.True(sell.Approved)
	suite.True(sell.IsExit)
	suite.Equal("p1", sell.PositionID)
	suite.InDelta(2.0, sell.PositionSize, 1e-9)
	suite.Equal(types.OrderSideSell, sell.OrderSide())

	closing, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionClose, 0))
	suite.Require().NoError(err)
	suite.True(closing.Approved)
	suite.True(closing.IsExit)
}

func (suite *ManagerTestSuite) TestDailyLossLimit() {
	suite.expectInputs(100, 10000, 0.1)

	//nolint:exhaustruct
	suite.manager.OnTradeClosed(types.Trade{OwnerID: "u1", PnL: -600, IsClosing: true})

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.False(assessment.Approved)
	suite.Equal(risk.ReasonDailyLossLimit, assessment.Reason)

	// the next UTC day starts from zero
	suite.now = suite.now.Add(24 * time.Hour)

	assessment, err = suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.True(assessment.Approved)
}

func (suite *ManagerTestSuite) TestProfitableDayNeverTripsLossLimit() {
	suite.expectInputs(100, 10000, 0.1)

	//nolint:exhaustruct
	suite.manager.OnTradeClosed(types.Trade{OwnerID: "u1", PnL: 5000, IsClosing: true})

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.True(assessment.Approved)
}

func (suite *ManagerTestSuite) TestDrawdownTriggersEmergencyStop() {
	suite.config.AutoStopOnDrawdown = true
	suite.build()

	suite.market.EXPECT().GetLatestPrice(gomock.Any(), "binance", "BTC/USDT").Return(100.0, nil).AnyTimes()
	suite.market.EXPECT().GetOHLCV(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(hourly(0.1), nil).AnyTimes()
	gomock.InOrder(
		suite.capital.EXPECT().AvailableCapital(gomock.Any(), gomock.Any(), "BTC/USDT").Return(10000.0, nil),
		suite.capital.EXPECT().AvailableCapital(gomock.Any(), gomock.Any(), "BTC/USDT").Return(8000.0, nil),
	)

	//nolint:exhaustruct
	open := types.Order{ID: "o1", Symbol: "ETH/USDT"}
	suite.stopper.EXPECT().DeactivateAll(gomock.Any(), gomock.Any()).Return(3, nil)
	suite.venue.EXPECT().GetOpenOrders(gomock.Any(), "").Return([]types.Order{open}, nil)
	suite.venue.EXPECT().CancelOrder(gomock.Any(), "o1", "ETH/USDT").Return(nil)

	first, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.True(first.Approved)

	second, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.False(second.Approved)
	suite.Equal(risk.ReasonMaxDrawdown, second.Reason)

	suite.True(suite.manager.Halted())
	suite.InDelta(20.0, suite.manager.Metrics("u1").DrawdownPercentage, 1e-9)

	third, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.Equal(risk.ReasonEmergencyStop, third.Reason)
}

func (suite *ManagerTestSuite) TestScoreAboveCeilingRejects() {
	params := types.DefaultRiskParameters()
	params.MinConfidenceScore = 0
	suite.cfg.RiskParameters = &params
	suite.expectInputs(100, 10000, 10)

	// another strategy already holds twice the capacity in the same asset
	suite.manager.OnPositionOpened(suite.position("p2", "s2", types.PositionSideLong, 100, 100))

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0))
	suite.Require().NoError(err)
	suite.False(assessment.Approved)
	suite.Equal(risk.ReasonRiskScore, assessment.Reason)
	suite.InDelta(1.0, assessment.RiskScore, 1e-9)
	suite.Contains(assessment.Warnings, "high volatility")
	suite.Contains(assessment.Warnings, "concentrated in the same base asset")
}

func (suite *ManagerTestSuite) TestScoreAboveSoftThresholdScalesSize() {
	params := types.DefaultRiskParameters()
	params.MinConfidenceScore = 0
	suite.cfg.RiskParameters = &params
	suite.expectInputs(100, 10000, 10)

	suite.manager.OnPositionOpened(suite.position("p2", "s2", types.PositionSideLong, 0.01, 100))

	assessment, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0))
	suite.Require().NoError(err)
	suite.True(assessment.Approved)

	// 0.3 strength + 0.3*(1001/5000) utilization + 0.2 correlation + 0.2 volatility
	expectedScore := 0.3 + 0.3*1001.0/5000.0 + 0.2 + 0.2
	suite.InDelta(expectedScore, assessment.RiskScore, 1e-9)
	suite.InDelta(10*(1-expectedScore), assessment.PositionSize, 1e-9)
	suite.Contains(assessment.Warnings, "position size reduced for elevated risk score")
}

func (suite *ManagerTestSuite) TestInputFailureIsAnError() {
	suite.market.EXPECT().GetLatestPrice(gomock.Any(), "binance", "BTC/USDT").Return(0.0, errors.New(errors.ErrCodeConnectivity, "down"))

	_, err := suite.manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.True(errors.HasCode(err, errors.ErrCodeConnectivity))
	suite.Equal(0, suite.manager.Metrics("u1").Reservations)
}

func (suite *ManagerTestSuite) TestTradingGate() {
	ran := false
	err := suite.manager.WithTradingGate(context.Background(), func(context.Context) error {
		ran = true

		return nil
	})
	suite.Require().NoError(err)
	suite.True(ran)

	suite.stopper.EXPECT().DeactivateAll(gomock.Any(), "operator").Return(0, nil)
	suite.venue.EXPECT().GetOpenOrders(gomock.Any(), "").Return(nil, nil)
	suite.Require().NoError(suite.manager.EmergencyStop(context.Background(), "operator"))
	suite.Equal("operator", suite.manager.Metrics("u1").HaltReason)

	err = suite.manager.WithTradingGate(context.Background(), func(context.Context) error {
		suite.Fail("gate must stay closed")

		return nil
	})
	suite.True(errors.HasCode(err, errors.ErrCodeEmergencyStopActive))

	suite.manager.Reactivate()
	suite.False(suite.manager.Halted())
	suite.NoError(suite.manager.WithTradingGate(context.Background(), func(context.Context) error { return nil }))
}

func (suite *ManagerTestSuite) TestEmergencyStopWaitsForInFlightOrder() {
	suite.stopper.EXPECT().DeactivateAll(gomock.Any(), "halt").Return(1, nil)
	suite.venue.EXPECT().GetOpenOrders(gomock.Any(), "").Return(nil, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	placed := make(chan error, 1)

	go func() {
		placed <- suite.manager.WithTradingGate(context.Background(), func(context.Context) error {
			close(entered)
			<-release

			return nil
		})
	}()

	<-entered

	stopped := make(chan error, 1)

	go func() {
		stopped <- suite.manager.EmergencyStop(context.Background(), "halt")
	}()

	suite.Never(func() bool { return len(stopped) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	suite.NoError(<-placed)
	suite.NoError(<-stopped)
	suite.True(suite.manager.Halted())
}

func (suite *ManagerTestSuite) TestEmergencyStopReportsCancelFailures() {
	//nolint:exhaustruct
	open := types.Order{ID: "o1", Symbol: "BTC/USDT"}
	suite.stopper.EXPECT().DeactivateAll(gomock.Any(), "halt").Return(0, nil)
	suite.venue.EXPECT().GetOpenOrders(gomock.Any(), "").Return([]types.Order{open}, nil)
	suite.venue.EXPECT().CancelOrder(gomock.Any(), "o1", "BTC/USDT").Return(errors.New(errors.ErrCodeConnectivity, "timeout"))

	err := suite.manager.EmergencyStop(context.Background(), "halt")
	suite.True(errors.HasCode(err, errors.ErrCodeInternal))
	suite.True(suite.manager.Halted())
}

func (suite *ManagerTestSuite) TestLoadRebuildsState() {
	repo := mocks.NewMockRepository(suite.ctrl)
	params, err := risk.NewParameterStore(types.DefaultRiskParameters(), repo)
	suite.Require().NoError(err)

	manager, err := risk.NewManager(suite.config, params, suite.market, suite.capital, nil, repo, logger.NewNopLogger())
	suite.Require().NoError(err)

	override := types.DefaultRiskParameters()
	override.MaxOpenPositions = 1
	repo.EXPECT().ListRiskOverrides(gomock.Any()).Return([]store.RiskOverride{
		{Scope: store.RiskScopeUser, ScopeID: "u1", Parameters: override},
	}, nil)
	repo.EXPECT().OpenPositions(gomock.Any(), "").Return([]types.Position{
		suite.position("p1", "s2", types.PositionSideLong, 1, 500),
	}, nil)

	suite.Require().NoError(manager.Load(context.Background()))

	metrics := manager.Metrics("u1")
	suite.Equal(1, metrics.OpenPositions)
	suite.InDelta(500.0, metrics.Exposure, 1e-9)

	assessment, err := manager.Validate(context.Background(), suite.cfg, suite.signal(types.SignalActionBuy, 0.9))
	suite.Require().NoError(err)
	suite.Equal(risk.ReasonMaxOpenPositions, assessment.Reason)
}

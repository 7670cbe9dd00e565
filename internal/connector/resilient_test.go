package connector_test

import (
	"context"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"testing"
	"time"

	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/mocks"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ResilientTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	inner *mocks.MockConnector
	conn  *connector.Resilient
}

func TestResilientSuite(t *testing.T) {
	suite.Run(t, new(ResilientTestSuite))
}

func (suite *ResilientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.inner = mocks.NewMockConnector(suite.ctrl)
	suite.inner.EXPECT().Name().Return("binance").AnyTimes()
	suite.conn = connector.WithResilience(suite.inner, connector.Policy{
		Timeout:         50 * time.Millisecond,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, logger.NewNopLogger())
}

func (suite *ResilientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ResilientTestSuite) TestRetriesTransientReadErrors() {
	ticker := types.Ticker{Exchange: "binance", Symbol: "BTC/USDT", Last: 100} //nolint:exhaustruct

	gomock.InOrder(
		suite.inner.EXPECT().GetTicker(gomock.Any(), "BTC/USDT").Return(types.Ticker{}, errors.New(errors.ErrCodeConnectivity, "reset")),
		suite.inner.EXPECT().GetTicker(gomock.Any(), "BTC/USDT").Return(types.Ticker{}, errors.New(errors.ErrCodeRateLimited, "429")),
		suite.inner.EXPECT().GetTicker(gomock.Any(), "BTC/USDT").Return(ticker, nil),
	)

	result, err := suite.conn.GetTicker(context.Background(), "BTC/USDT")
	suite.NoError(err)
	suite.Equal(100.0, result.Last)
}

func (suite *ResilientTestSuite) TestStopsAfterMaxRetries() {
	suite.inner.EXPECT().GetBalance(gomock.Any()).Return(types.Balance{}, errors.New(errors.ErrCodeConnectivity, "down")).Times(3)

	_, err := suite.conn.GetBalance(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeConnectivity))
}

func (suite *ResilientTestSuite) TestPermanentErrorsAreNotRetried() {
	suite.inner.EXPECT().SetLeverage(gomock.Any(), "BTC/USDT", 5).Return(errors.New(errors.ErrCodeUnsupported, "spot only")).Times(1)

	err := suite.conn.SetLeverage(context.Background(), "BTC/USDT", 5)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))
}

func (suite *ResilientTestSuite) TestCreateOrderIsAttemptedOnce() {
	req := types.OrderRequest{Symbol: "BTC/USDT", Type: types.OrderTypeMarket, Side: types.OrderSideBuy, Amount: 1} //nolint:exhaustruct
	suite.inner.EXPECT().CreateOrder(gomock.Any(), req).Return(types.Order{}, errors.New(errors.ErrCodeConnectivity, "reset")).Times(1)

	_, err := suite.conn.CreateOrder(context.Background(), req)
	suite.True(errors.HasCode(err, errors.ErrCodeConnectivity))
}

func (suite *ResilientTestSuite) TestSlowCallTimesOut() {
	suite.inner.EXPECT().GetOrderBook(gomock.Any(), "BTC/USDT", 5).DoAndReturn(
		func(ctx context.Context, _ string, _ int) (types.OrderBook, error) {
			<-ctx.Done()

			return types.OrderBook{}, ctx.Err() //nolint:exhaustruct
		}).Times(3)

	_, err := suite.conn.GetOrderBook(context.Background(), "BTC/USDT", 5)
	suite.True(errors.HasCode(err, errors.ErrCodeTimeout))
}

func (suite *ResilientTestSuite) TestCancelledContextStopsRetrying() {
	ctx, cancel := context.WithCancel(context.Background())
	suite.inner.EXPECT().GetOpenOrders(gomock.Any(), "").DoAndReturn(
		func(context.Context, string) ([]types.Order, error) {
			cancel()

			return nil, errors.New(errors.ErrCodeConnectivity, "reset")
		}).Times(1)

	_, err := suite.conn.GetOpenOrders(ctx, "")
	suite.Error(err)
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/autotrader/internal/config"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/connector/binance"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store/relational"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/mocks"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ContainerTestSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	dir     string
	cfg     config.Config
	factory VenueFactory
}

func TestContainerSuite(t *testing.T) {
	suite.Run(t, new(ContainerTestSuite))
}

func (suite *ContainerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.dir = suite.T().TempDir()

	suite.cfg = config.Default()
	//nolint:exhaustruct
	suite.cfg.Database = relational.Config{Driver: relational.DriverSQLite, DSN: filepath.Join(suite.dir, "trader.db")}
	suite.cfg.TimeSeries.Path = filepath.Join(suite.dir, "market.duckdb")
	//nolint:exhaustruct
	suite.cfg.Venues = []config.VenueConfig{{
		Kind:    config.VenueBinance,
		Binance: binance.Config{Name: "binance", APIKey: "k", SecretKey: "s", FeePercentage: 0.1},
		Paper:   config.PaperConfig{Enabled: true, InitialBalances: map[string]float64{"usdt": 1000}},
	}}

	suite.factory = func(cfg config.VenueConfig) (connector.Connector, error) {
		venue := mocks.NewMockConnector(suite.ctrl)
		venue.EXPECT().Name().Return(cfg.Name()).AnyTimes()
		venue.EXPECT().Fees().Return(types.FeeSchedule{MakerPercentage: 0.1, TakerPercentage: 0.1}).AnyTimes()

		return venue, nil
	}
}

func (suite *ContainerTestSuite) TestNewWiresEveryComponent() {
	c, err := NewWithVenueFactory(suite.ctx, suite.cfg, logger.NewNopLogger(), suite.factory)
	suite.Require().NoError(err)

	suite.Equal([]string{"binance", "paper-binance"}, c.Venues.Names())
	suite.Len(c.Strategies.List(), 4)
	suite.NotNil(c.Advisor)
	suite.NotNil(c.Backtest)
	suite.NotNil(c.Engine)

	paperVenue, err := c.Venues.ForTrading("binance", true)
	suite.Require().NoError(err)
	suite.Equal("paper-binance", paperVenue.Name())

	balance, err := paperVenue.GetBalance(suite.ctx)
	suite.Require().NoError(err)
	suite.InDelta(1000, balance.Free("USDT"), 1e-9)

	suite.NoError(c.Shutdown(suite.ctx))
}

func (suite *ContainerTestSuite) TestStartRegistersActiveStrategyFiles() {
	path := filepath.Join(suite.dir, "trend.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(`
id: trend-btc
owner_id: u1
name: BTC trend
type: trend
exchange: binance
symbols: [BTC/USDT]
schedule: "@every 1h"
is_active: true
is_paper_trading: true
`), 0o600))

	suite.cfg.StrategyFiles = []string{path}

	c, err := NewWithVenueFactory(suite.ctx, suite.cfg, logger.NewNopLogger(), suite.factory)
	suite.Require().NoError(err)
	suite.Require().NoError(c.Start(suite.ctx))

	status, err := c.Engine.Status("trend-btc")
	suite.Require().NoError(err)
	suite.Equal(types.StrategyStateRunning, status.State)

	stored, err := c.Repository.GetStrategy(suite.ctx, "trend-btc")
	suite.Require().NoError(err)
	suite.True(stored.IsActive)

	suite.NoError(c.Shutdown(suite.ctx))

	// A second start restores from the database instead of the file.
	again, err := NewWithVenueFactory(suite.ctx, suite.cfg, logger.NewNopLogger(), suite.factory)
	suite.Require().NoError(err)
	suite.Require().NoError(again.Start(suite.ctx))

	status, err = again.Engine.Status("trend-btc")
	suite.Require().NoError(err)
	suite.Equal(types.StrategyStateRunning, status.State)
	suite.NoError(again.Shutdown(suite.ctx))
}

func (suite *ContainerTestSuite) TestNewFailsOnVenueError() {
	failing := func(config.VenueConfig) (connector.Connector, error) {
		return nil, errors.New(errors.ErrCodeAuthFailed, "bad key")
	}

	c, err := NewWithVenueFactory(suite.ctx, suite.cfg, logger.NewNopLogger(), failing)
	suite.Nil(c)
	suite.Equal(errors.ErrCodeAuthFailed, errors.GetCode(err))
}

func (suite *ContainerTestSuite) TestDefaultVenueFactoryRejectsUnknownKind() {
	//nolint:exhaustruct
	_, err := DefaultVenueFactory(config.VenueConfig{Kind: "kraken"})
	suite.Equal(errors.ErrCodeUnsupported, errors.GetCode(err))
}

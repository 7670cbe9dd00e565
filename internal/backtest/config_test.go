package backtest

import (
	"testing"
	"time"

	"github.com/rxtech-lab/autotrader/internal/backtest/commission_fee"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	cfg Config
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	suite.cfg = DefaultConfig()
	//nolint:exhaustruct
	suite.cfg.Strategy = types.StrategyConfig{
		ID:        "s1",
		OwnerID:   "u1",
		Name:      "trend",
		Type:      "trend",
		Exchange:  "binance",
		Symbols:   []string{"BTC/USDT", "ETH/USDT"},
		Timeframe: types.Timeframe4h,
	}
	suite.cfg.Start = start
	suite.cfg.End = start.Add(30 * 24 * time.Hour)
}

func (suite *ConfigTestSuite) TestNormalizeInheritsFromStrategy() {
	suite.cfg.Normalize()

	suite.Equal("binance", suite.cfg.Exchange)
	suite.Equal([]string{"BTC/USDT", "ETH/USDT"}, suite.cfg.Symbols)
	suite.Equal(types.Timeframe4h, suite.cfg.Timeframe)
	suite.NoError(suite.cfg.Validate())
}

func (suite *ConfigTestSuite) TestNormalizeKeepsOverrides() {
	suite.cfg.Exchange = "okx"
	suite.cfg.Symbols = []string{"SOL/USDT"}
	suite.cfg.Strategy.Timeframe = ""

	suite.cfg.Normalize()

	suite.Equal("okx", suite.cfg.Exchange)
	suite.Equal([]string{"SOL/USDT"}, suite.cfg.Symbols)
	suite.Equal(types.Timeframe1h, suite.cfg.Timeframe)
}

func (suite *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "end before start", mutate: func(c *Config) { c.End = c.Start.Add(-time.Hour) }},
		{name: "no balance", mutate: func(c *Config) { c.InitialBalance = 0 }},
		{name: "fraction above one", mutate: func(c *Config) { c.PositionSizeFraction = 2 }},
		{name: "negative warmup", mutate: func(c *Config) { c.WarmupPeriod = -1 }},
		{name: "bad symbol", mutate: func(c *Config) { c.Symbols = []string{"BTCUSDT"} }},
		{name: "bad timeframe", mutate: func(c *Config) { c.Timeframe = "2h" }},
		{name: "invalid strategy", mutate: func(c *Config) { c.Strategy.OwnerID = "" }},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.SetupTest()
			suite.cfg.Normalize()
			tc.mutate(&suite.cfg)

			err := suite.cfg.Validate()
			suite.Error(err)
			suite.Equal(errors.ErrCodeBacktestConfigError, errors.GetCode(err))
		})
	}
}

func (suite *ConfigTestSuite) TestCommissionFee() {
	suite.Equal(0.0, suite.cfg.CommissionFee().Calculate(1000))

	suite.cfg.EnableFees = true
	suite.cfg.FeePercentage = 0.2
	suite.InDelta(2, suite.cfg.CommissionFee().Calculate(1000), 1e-9)
	suite.IsType(&commission_fee.PercentageCommissionFee{}, suite.cfg.CommissionFee())
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	schema, err := suite.cfg.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Contains(schema, "backtest-config")
	suite.Contains(schema, "slippage_percentage")
	suite.Contains(schema, "simulated_spread_percentage")
}

func (suite *ConfigTestSuite) TestAsMap() {
	suite.cfg.StopLossPercentage = 3

	out := suite.cfg.asMap()
	suite.Equal(float64(3), out["stop_loss_percentage"])
	suite.Equal(float64(10000), out["initial_balance"])
}

package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/strategy/builtin"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTrendOnGeneratedCandles(t *testing.T) {
	const count = 400

	candles := mocks.Trending(11, count, 0.6)
	start := candles[0].Timestamp

	ctrl := gomock.NewController(t)
	market := mocks.NewMockMarketView(ctrl)
	market.EXPECT().GetOHLCV(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, start, gomock.Any()).Return(candles, nil)

	registry, err := builtin.NewRegistry()
	require.NoError(t, err)

	engine := NewEngine(registry, market, nil, logger.NewNopLogger())

	cfg := DefaultConfig()
	//nolint:exhaustruct
	cfg.Strategy = types.StrategyConfig{
		ID:         "trend-gen",
		OwnerID:    "u1",
		Name:       "generated",
		Type:       "trend",
		Exchange:   "binance",
		Symbols:    []string{"BTC/USDT"},
		Timeframe:  types.Timeframe1h,
		Parameters: map[string]any{"fast_period": 5, "slow_period": 20},
	}
	cfg.Start = start
	cfg.End = start.Add((count - 1) * time.Hour)
	cfg.EnableFees = true

	var last int

	result, err := engine.Run(context.Background(), cfg, NewHandle(), optional.Some[OnProcessDataCallback](func(current, total int) {
		assert.GreaterOrEqual(t, current, last)
		assert.Equal(t, count-cfg.WarmupPeriod, total)
		last = current
	}))
	require.NoError(t, err)

	assert.Equal(t, count-cfg.WarmupPeriod, last)
	assert.Len(t, result.EquityCurve, count-cfg.WarmupPeriod)
	assert.Len(t, result.DrawdownCurve, len(result.EquityCurve))
	assert.Positive(t, result.Metrics.FinalBalance)
	assert.GreaterOrEqual(t, result.Metrics.MaxDrawdownPercentage, 0.0)
	assert.LessOrEqual(t, result.Metrics.MaxDrawdownPercentage, 100.0)

	for i := 1; i < len(result.Trades); i++ {
		assert.False(t, result.Trades[i].ExecutedAt.Before(result.Trades[i-1].ExecutedAt))
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trendFile = `
id: trend-btc
owner_id: u1
name: BTC trend
type: trend
version: ">=1.0.0"
exchange: binance
symbols: [BTC/USDT]
timeframe: 1h
schedule: "@every 5m"
is_active: true
is_paper_trading: true
parameters:
  fast_period: 12
  slow_period: 26
risk_parameters:
  max_position_size_usd: 500
  max_open_positions: 2
  risk_per_trade_percentage: 1
  max_daily_loss_percentage: 3
  max_drawdown_percentage: 10
  stop_loss_percentage: 2
  take_profit_percentage: 4
  min_confidence_score: 0.6
  correlation_limit: 0.7
  margin_of_safety: 0.9
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadStrategyFile(t *testing.T) {
	cfg, err := LoadStrategyFile(writeFile(t, "trend.yaml", trendFile))
	require.NoError(t, err)

	assert.Equal(t, "trend-btc", cfg.ID)
	assert.Equal(t, types.Timeframe1h, cfg.Timeframe)
	assert.True(t, cfg.IsPaperTrading)
	assert.Equal(t, 12, cfg.Parameters["fast_period"])
	require.NotNil(t, cfg.RiskParameters)
	assert.InDelta(t, 500, cfg.RiskParameters.MaxPositionSizeUSD, 1e-9)
}

func TestLoadStrategyFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{name: "unknown field", content: "id: a\nbogus: 1\n", code: errors.ErrCodeStrategyConfigError},
		{name: "missing owner", content: "id: a\nname: n\ntype: trend\nexchange: binance\nsymbols: [BTC/USDT]\n", code: errors.ErrCodeStrategyConfigError},
		{name: "bad symbol", content: "id: a\nowner_id: u\nname: n\ntype: trend\nexchange: binance\nsymbols: [BTCUSDT]\n", code: errors.ErrCodeStrategyConfigError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadStrategyFile(writeFile(t, "s.yaml", tc.content))
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.GetCode(err))
		})
	}

	_, err := LoadStrategyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func TestLoadStrategyFilesRejectsDuplicateIDs(t *testing.T) {
	first := writeFile(t, "a.yaml", trendFile)
	second := writeFile(t, "b.yaml", trendFile)

	configs, err := LoadStrategyFiles([]string{first})
	require.NoError(t, err)
	assert.Len(t, configs, 1)

	_, err = LoadStrategyFiles([]string{first, second})
	assert.Equal(t, errors.ErrCodeStrategyConfigError, errors.GetCode(err))
}

package marketdata

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/mock/gomock"
)

func (suite *CollectorTestSuite) hourly(start time.Time, from, to int) []types.Candle {
	candles := make([]types.Candle, 0, to-from+1)
	for i := from; i <= to; i++ {
		candles = append(candles, types.Candle{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1})
	}

	return candles
}

func (suite *CollectorTestSuite) TestBackfill_PagesThroughRange() {
	suite.collector.config.BackfillBatchSize = 2
	start := suite.now.Add(-24 * time.Hour)
	req := BackfillRequest{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: types.Timeframe1h, Start: start, End: start.Add(5 * time.Hour)}

	gomock.InOrder(
		suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, start, 2).Return(suite.hourly(start, 0, 1), nil),
		suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, start.Add(2*time.Hour), 2).Return(suite.hourly(start, 2, 3), nil),
		// The venue may return more than asked; candles past End are dropped.
		suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, start.Add(4*time.Hour), 2).Return(suite.hourly(start, 4, 6), nil),
	)

	gomock.InOrder(
		suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, gomock.Len(2)).Return(1, nil),
		suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, gomock.Len(2)).Return(2, nil),
		suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, gomock.Len(2)).Return(2, nil),
	)

	var progress [][2]int

	result, err := suite.collector.Backfill(context.Background(), req, optional.Some[OnBackfillProgress](func(done, total int) {
		progress = append(progress, [2]int{done, total})
	}))
	suite.Require().NoError(err)

	suite.Equal(6, result.Fetched)
	suite.Equal(5, result.Written)
	suite.Equal(start, result.First)
	suite.Equal(start.Add(5*time.Hour), result.Last)
	suite.Equal([][2]int{{2, 6}, {4, 6}, {6, 6}}, progress)
}

func (suite *CollectorTestSuite) TestBackfill_StopsWhenVenueRunsOut() {
	start := suite.now.Add(-24 * time.Hour)
	req := BackfillRequest{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: types.Timeframe1h, Start: start, End: start.Add(10 * time.Hour)}

	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, start, 500).Return(suite.hourly(start, 0, 3), nil)
	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, start.Add(4*time.Hour), 500).Return(nil, nil)
	suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, gomock.Len(4)).Return(4, nil)

	result, err := suite.collector.Backfill(context.Background(), req, optional.None[OnBackfillProgress]())
	suite.Require().NoError(err)
	suite.Equal(4, result.Fetched)
	suite.Equal(start.Add(3*time.Hour), result.Last)
}

func (suite *CollectorTestSuite) TestBackfill_Errors() {
	start := suite.now.Add(-24 * time.Hour)
	valid := BackfillRequest{Exchange: "binance", Symbol: "BTC/USDT", Timeframe: types.Timeframe1h, Start: start, End: start.Add(time.Hour)}

	tests := []struct {
		name   string
		mutate func(r *BackfillRequest)
		code   errors.ErrorCode
	}{
		{name: "missing exchange", mutate: func(r *BackfillRequest) { r.Exchange = "" }, code: errors.ErrCodeMissingParameter},
		{name: "bad symbol", mutate: func(r *BackfillRequest) { r.Symbol = "BTCUSDT" }, code: errors.ErrCodeInvalidSymbol},
		{name: "bad timeframe", mutate: func(r *BackfillRequest) { r.Timeframe = "2h" }, code: errors.ErrCodeInvalidTimeframe},
		{name: "empty range", mutate: func(r *BackfillRequest) { r.End = r.Start }, code: errors.ErrCodeInvalidParameter},
		{name: "unknown venue", mutate: func(r *BackfillRequest) { r.Exchange = "kraken" }, code: errors.ErrCodeConnectorNotFound},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			req := valid
			tc.mutate(&req)

			_, err := suite.collector.Backfill(context.Background(), req, optional.None[OnBackfillProgress]())
			suite.Equal(tc.code, errors.GetCode(err))
		})
	}

	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, start, 500).
		Return(nil, errors.New(errors.ErrCodeConnectivity, "down"))

	_, err := suite.collector.Backfill(context.Background(), valid, optional.None[OnBackfillProgress]())
	suite.Equal(errors.ErrCodeMarketDataFetchFailed, errors.GetCode(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = suite.collector.Backfill(ctx, valid, optional.None[OnBackfillProgress]())
	suite.Equal(errors.ErrCodeTimeout, errors.GetCode(err))
}

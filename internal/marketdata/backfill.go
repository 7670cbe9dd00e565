package marketdata

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// OnBackfillProgress receives the number of candle slots covered so far and
// the number in the requested range.
type OnBackfillProgress func(done int, total int)

// BackfillRequest names the candles to copy from a venue into the store.
type BackfillRequest struct {
	Exchange  string
	Symbol    string
	Timeframe types.Timeframe
	Start     time.Time
	End       time.Time
}

// BackfillResult summarizes a finished backfill.
type BackfillResult struct {
	Fetched int
	Written int
	First   time.Time
	Last    time.Time
}

func (r BackfillRequest) validate() error {
	if r.Exchange == "" {
		return errors.New(errors.ErrCodeMissingParameter, "backfill requires an exchange")
	}

	if _, _, err := types.ParseSymbol(r.Symbol); err != nil {
		return err
	}

	if !r.Timeframe.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", r.Timeframe)
	}

	if !r.End.After(r.Start) {
		return errors.New(errors.ErrCodeInvalidParameter, "backfill end must be after start")
	}

	return nil
}

// Backfill pages candles for req out of the venue in BackfillBatchSize
// chunks and writes them to the time-series store. It stops early when the
// venue returns no further candles. Rows already stored are not duplicated.
func (c *Collector) Backfill(ctx context.Context, req BackfillRequest, onProgress optional.Option[OnBackfillProgress]) (BackfillResult, error) {
	var result BackfillResult

	if err := req.validate(); err != nil {
		return result, err
	}

	conn, err := c.venue(req.Exchange)
	if err != nil {
		return result, err
	}

	step := req.Timeframe.Duration()
	total := int(req.End.Sub(req.Start)/step) + 1
	cursor := req.Start

	for !cursor.After(req.End) {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(errors.ErrCodeTimeout, "backfill interrupted", err)
		}

		batch, err := c.fetchBatch(ctx, conn.GetOHLCV, req, cursor)
		if err != nil {
			return result, err
		}

		if len(batch) == 0 {
			break
		}

		written, err := c.series.WriteCandles(ctx, req.Exchange, req.Symbol, req.Timeframe, batch)
		if err != nil {
			return result, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to store %s candles", req.Symbol)
		}

		if result.Fetched == 0 {
			result.First = batch[0].Timestamp
		}

		result.Fetched += len(batch)
		result.Written += written
		result.Last = batch[len(batch)-1].Timestamp

		if onProgress.IsSome() {
			onProgress.Unwrap()(min(int(result.Last.Sub(req.Start)/step)+1, total), total)
		}

		cursor = result.Last.Add(step)
	}

	c.logger.Info("backfill finished",
		zap.String("exchange", req.Exchange),
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", string(req.Timeframe)),
		zap.Int("fetched", result.Fetched),
		zap.Int("written", result.Written),
	)

	return result, nil
}

type ohlcvFetcher func(ctx context.Context, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error)

// fetchBatch returns the candles at or after cursor that fall inside the
// requested range.
func (c *Collector) fetchBatch(ctx context.Context, fetch ohlcvFetcher, req BackfillRequest, cursor time.Time) ([]types.Candle, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	candles, err := fetch(callCtx, req.Symbol, req.Timeframe, cursor, c.config.BackfillBatchSize)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s candles from %s", req.Symbol, req.Exchange)
	}

	batch := make([]types.Candle, 0, len(candles))
	for _, candle := range candles {
		if !candle.Timestamp.Before(cursor) && !candle.Timestamp.After(req.End) {
			batch = append(batch, candle)
		}
	}

	return batch, nil
}

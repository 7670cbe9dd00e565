package polygon

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/autotrader/internal/types"
)

const maxAggs = 50000

// AggregatesClient fetches aggregate bars. It exists so tests can replace the REST client.
type AggregatesClient interface {
	ListAggs(ctx context.Context, ticker string, multiplier int, timespan models.Timespan, from, to time.Time, limit int) ([]types.Candle, error)
}

type restClient struct {
	client *polygon.Client
}

func newRestClient(apiKey string) *restClient {
	return &restClient{client: polygon.New(apiKey)}
}

// ListAggs drains the SDK iterator into candles, oldest first.
func (r *restClient) ListAggs(ctx context.Context, ticker string, multiplier int, timespan models.Timespan, from, to time.Time, limit int) ([]types.Candle, error) {
	if limit <= 0 || limit > maxAggs {
		limit = maxAggs
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithLimit(limit)

	iter := r.client.ListAggs(ctx, params)

	candles := make([]types.Candle, 0)
	for iter.Next() {
		agg := iter.Item()
		candles = append(candles, types.Candle{
			Timestamp: time.Time(agg.Timestamp).UTC(),
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		})

		if len(candles) >= limit {
			break
		}
	}

	if iter.Err() != nil {
		return nil, iter.Err()
	}

	return candles, nil
}

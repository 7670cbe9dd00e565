package risk

import (
	"context"

	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/types"
)

// VenueCapital reads available capital from the venue a strategy trades on:
// the free balance of the symbol's quote asset.
type VenueCapital struct {
	venues *connector.Registry
}

func NewVenueCapital(venues *connector.Registry) *VenueCapital {
	return &VenueCapital{venues: venues}
}

func (v *VenueCapital) AvailableCapital(ctx context.Context, cfg types.StrategyConfig, symbol string) (float64, error) {
	_, quote, err := types.ParseSymbol(symbol)
	if err != nil {
		return 0, err
	}

	venue, err := v.venues.ForTrading(cfg.Exchange, cfg.IsPaperTrading)
	if err != nil {
		return 0, err
	}

	balance, err := venue.GetBalance(ctx)
	if err != nil {
		return 0, err
	}

	return balance.Free(quote), nil
}

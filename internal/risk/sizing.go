package risk

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Composite score weights.
const (
	weightStrength    = 0.3
	weightUtilization = 0.3
	weightCorrelation = 0.2
	weightVolatility  = 0.2
)

// SizingInput is everything position sizing depends on.
type SizingInput struct {
	Capital                float64
	Price                  float64
	Side                   types.PositionSide
	RiskPerTradePercentage float64
	StopLossPercentage     float64
	MaxPositionSizeUSD     float64
	MarginOfSafety         float64
	// StopLoss overrides the percentage based stop when set.
	StopLoss optional.Option[float64]
}

// Sizing is the result of PositionSize.
type Sizing struct {
	RiskAmount    float64
	StopLossPrice float64
	RiskPerUnit   float64
	PositionSize  float64
	MaxLossAmount float64
	// Capped is set when the notional cap reduced the size.
	Capped bool
}

// PositionSize sizes a position so that hitting the stop loses
// RiskPerTradePercentage of capital, capped so that size*price never exceeds
// min(MaxPositionSizeUSD, Capital*MarginOfSafety).
func PositionSize(in SizingInput) (Sizing, error) {
	if in.Price <= 0 {
		return Sizing{}, errors.Newf(errors.ErrCodeInvalidParameter, "price must be positive, got %v", in.Price)
	}

	if in.Capital <= 0 {
		return Sizing{}, errors.New(errors.ErrCodeInsufficientFunds, "no capital available")
	}

	capital := decimal.NewFromFloat(in.Capital)
	price := decimal.NewFromFloat(in.Price)
	hundred := decimal.NewFromInt(100)

	riskAmount := capital.Mul(decimal.NewFromFloat(in.RiskPerTradePercentage)).Div(hundred)

	stop := StopLossPrice(in.Price, in.Side, in.StopLossPercentage)
	if in.StopLoss.IsSome() {
		stop = in.StopLoss.Unwrap()
	}

	// a long stops out below the entry, a short above it
	riskPerUnit := price.Sub(decimal.NewFromFloat(stop))
	if in.Side == types.PositionSideShort {
		riskPerUnit = riskPerUnit.Neg()
	}

	if !riskPerUnit.IsPositive() {
		return Sizing{}, errors.Newf(errors.ErrCodeInvalidParameter, "stop loss %v is not on the losing side of a %s entry at %v", stop, in.Side, in.Price)
	}

	size := riskAmount.Div(riskPerUnit)

	capUSD := decimal.Min(
		decimal.NewFromFloat(in.MaxPositionSizeUSD),
		capital.Mul(decimal.NewFromFloat(in.MarginOfSafety)),
	)
	maxUnits := capUSD.Div(price)

	capped := false
	if size.GreaterThan(maxUnits) {
		size = maxUnits
		capped = true
	}

	return Sizing{
		RiskAmount:    riskAmount.InexactFloat64(),
		StopLossPrice: stop,
		RiskPerUnit:   riskPerUnit.InexactFloat64(),
		PositionSize:  size.InexactFloat64(),
		MaxLossAmount: size.Mul(riskPerUnit).InexactFloat64(),
		Capped:        capped,
	}, nil
}

// StopLossPrice places the stop percentage points against side.
func StopLossPrice(price float64, side types.PositionSide, percentage float64) float64 {
	offset := decimal.NewFromFloat(percentage).Div(decimal.NewFromInt(100))
	if side == types.PositionSideShort {
		return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(offset)).InexactFloat64()
	}

	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Sub(offset)).InexactFloat64()
}

// TakeProfitPrice places the target percentage points in favour of side.
func TakeProfitPrice(price float64, side types.PositionSide, percentage float64) float64 {
	return StopLossPrice(price, side, -percentage)
}

// ScoreInput holds the normalized score components.
type ScoreInput struct {
	Strength    float64
	Utilization float64
	Correlation float64
	Volatility  float64
}

// Score combines the components into a composite risk score in [0,1].
// Every component is clamped to [0,1] before weighting.
func Score(in ScoreInput) float64 {
	score := weightStrength*(1-types.Clamp01(in.Strength)) +
		weightUtilization*types.Clamp01(in.Utilization) +
		weightCorrelation*types.Clamp01(in.Correlation) +
		weightVolatility*types.Clamp01(in.Volatility)

	return types.Clamp01(score)
}

// VolatilityFactor maps hourly return volatility onto [0,1]; the threshold
// maps to 0.5 and twice the threshold or more to 1.
func VolatilityFactor(volatility, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}

	return types.Clamp01(volatility / (2 * threshold))
}

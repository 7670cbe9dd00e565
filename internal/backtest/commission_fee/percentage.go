package commission_fee

import "github.com/shopspring/decimal"

// PercentageCommissionFee charges a fixed percentage of notional.
type PercentageCommissionFee struct {
	percentage decimal.Decimal
}

func NewPercentageCommissionFee(percentage float64) CommissionFee {
	return &PercentageCommissionFee{percentage: decimal.NewFromFloat(percentage)}
}

func (c *PercentageCommissionFee) Calculate(notional float64) float64 {
	if notional <= 0 {
		return 0
	}

	return decimal.NewFromFloat(notional).Mul(c.percentage).Div(decimal.NewFromInt(100)).InexactFloat64()
}

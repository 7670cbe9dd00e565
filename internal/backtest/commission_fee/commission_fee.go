package commission_fee

type CommissionFee interface {
	// Calculate returns the fee in quote currency for a fill of the given notional.
	Calculate(notional float64) float64
}

type Model string

const (
	ModelPercentage Model = "percentage"
	ModelZero       Model = "zero_commission"
)

var AllModels = []any{
	ModelPercentage,
	ModelZero,
}

// GetCommissionFeeHandler returns the fee model. Fees disabled, or an
// unknown model, charge nothing.
func GetCommissionFeeHandler(model Model, percentage float64) CommissionFee {
	switch model {
	case ModelPercentage:
		return NewPercentageCommissionFee(percentage)
	case ModelZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}

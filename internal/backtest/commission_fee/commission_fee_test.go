package commission_fee

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func (suite *CommissionFeeTestSuite) TestZeroCommissionFee() {
	fee := NewZeroCommissionFee()
	suite.NotNil(fee)

	tests := []struct {
		name     string
		notional float64
		expected float64
	}{
		{"zero notional", 0, 0},
		{"small notional", 10, 0},
		{"large notional", 10000, 0},
		{"negative notional", -100, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, fee.Calculate(tc.notional))
		})
	}
}

func (suite *CommissionFeeTestSuite) TestPercentageCommissionFee() {
	fee := NewPercentageCommissionFee(0.1)
	suite.NotNil(fee)

	tests := []struct {
		name     string
		notional float64
		expected float64
	}{
		{"zero notional", 0, 0},
		{"negative notional", -100, 0},
		{"one thousand", 1000, 1},
		{"fractional", 1234.5, 1.2345},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, fee.Calculate(tc.notional), 1e-12)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestGetCommissionFeeHandler() {
	tests := []struct {
		name           string
		model          Model
		expectedType   string
		testNotional   float64
		expectedResult float64
	}{
		{
			name:           "percentage",
			model:          ModelPercentage,
			expectedType:   "*commission_fee.PercentageCommissionFee",
			testNotional:   1000,
			expectedResult: 2.5,
		},
		{
			name:           "zero commission",
			model:          ModelZero,
			expectedType:   "*commission_fee.ZeroCommissionFee",
			testNotional:   1000,
			expectedResult: 0.0,
		},
		{
			name:           "unknown model defaults to zero",
			model:          Model("unknown"),
			expectedType:   "*commission_fee.ZeroCommissionFee",
			testNotional:   1000,
			expectedResult: 0.0,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			handler := GetCommissionFeeHandler(tc.model, 0.25)
			suite.NotNil(handler)
			suite.Equal(tc.expectedType, fmt.Sprintf("%T", handler))
			suite.InDelta(tc.expectedResult, handler.Calculate(tc.testNotional), 1e-12)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAllModels() {
	suite.Len(AllModels, 2)
	suite.Contains(AllModels, ModelPercentage)
	suite.Contains(AllModels, ModelZero)
}

package binance

import (
	"slices"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// knownQuotes are checked longest first when splitting a native symbol, so
// BUSD and TUSD win over their USD suffix.
var knownQuotes = byLengthDesc("USD", "USDT", "USDC", "BUSD", "TUSD", "FDUSD", "EUR", "TRY", "BTC", "ETH", "BNB")

func byLengthDesc(quotes ...string) []string {
	slices.SortStableFunc(quotes, func(a, b string) int {
		return len(b) - len(a)
	})

	return quotes
}

// toNativeSymbol converts BTC/USDT to BTCUSDT.
func toNativeSymbol(symbol string) (string, error) {
	base, quote, err := types.ParseSymbol(symbol)
	if err != nil {
		return "", err
	}

	return base + quote, nil
}

// fromNativeSymbol converts BTCUSDT to BTC/USDT using the known quote assets.
func fromNativeSymbol(native string) string {
	native = strings.ToUpper(native)
	for _, quote := range knownQuotes {
		if strings.HasSuffix(native, quote) && len(native) > len(quote) {
			return types.FormatSymbol(strings.TrimSuffix(native, quote), quote)
		}
	}

	return native
}

var timeframeIntervals = map[types.Timeframe]string{
	types.Timeframe1m:  "1m",
	types.Timeframe5m:  "5m",
	types.Timeframe15m: "15m",
	types.Timeframe30m: "30m",
	types.Timeframe1h:  "1h",
	types.Timeframe4h:  "4h",
	types.Timeframe1d:  "1d",
	types.Timeframe1w:  "1w",
}

func toInterval(tf types.Timeframe) (string, error) {
	interval, ok := timeframeIntervals[tf]
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "timeframe %q not supported by binance", tf)
	}

	return interval, nil
}

func toSide(side types.OrderSide) (binance.SideType, error) {
	switch side {
	case types.OrderSideBuy:
		return binance.SideTypeBuy, nil
	case types.OrderSideSell:
		return binance.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", side)
	}
}

func fromSide(side binance.SideType) types.OrderSide {
	if side == binance.SideTypeSell {
		return types.OrderSideSell
	}

	return types.OrderSideBuy
}

func toOrderType(orderType types.OrderType) (binance.OrderType, error) {
	switch orderType {
	case types.OrderTypeMarket:
		return binance.OrderTypeMarket, nil
	case types.OrderTypeLimit:
		return binance.OrderTypeLimit, nil
	case types.OrderTypeStopLoss:
		return binance.OrderTypeStopLoss, nil
	case types.OrderTypeTakeProfit:
		return binance.OrderTypeTakeProfit, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order type: %s", orderType)
	}
}

func fromOrderType(orderType binance.OrderType) types.OrderType {
	switch orderType {
	case binance.OrderTypeMarket:
		return types.OrderTypeMarket
	case binance.OrderTypeStopLoss, binance.OrderTypeStopLossLimit:
		return types.OrderTypeStopLoss
	case binance.OrderTypeTakeProfit, binance.OrderTypeTakeProfitLimit:
		return types.OrderTypeTakeProfit
	default:
		return types.OrderTypeLimit
	}
}

// mapOrderStatus maps Binance order status to our OrderStatus type.
func mapOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusOpen
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	case binance.OrderStatusTypeExpired:
		return types.OrderStatusExpired
	default:
		return types.OrderStatusPending
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)

	return v
}

func formatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// classifyError maps Binance API error codes onto connector error codes.
func classifyError(err error, message string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003, -1015:
			return errors.Wrap(errors.ErrCodeRateLimited, message, err)
		case -1022, -2014, -2015:
			return errors.Wrap(errors.ErrCodeAuthFailed, message, err)
		case -1121:
			return errors.Wrap(errors.ErrCodeInvalidSymbol, message, err)
		case -2010:
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient") {
				return errors.Wrap(errors.ErrCodeInsufficientFunds, message, err)
			}

			return errors.Wrap(errors.ErrCodeOrderFailed, message, err)
		case -2011, -2013:
			return errors.Wrap(errors.ErrCodeOrderNotFound, message, err)
		case -1100, -1101, -1102, -1013, -1111:
			return errors.Wrap(errors.ErrCodeInvalidOrder, message, err)
		default:
			return errors.Wrap(errors.ErrCodeOrderFailed, message, err)
		}
	}

	return errors.Wrap(errors.ErrCodeConnectivity, message, err)
}

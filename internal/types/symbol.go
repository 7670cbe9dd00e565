package types

import (
	"strings"

	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// ParseSymbol splits a canonical BASE/QUOTE symbol.
func ParseSymbol(symbol string) (base string, quote string, err error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidSymbol, "symbol %q is not in BASE/QUOTE format", symbol)
	}

	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), nil
}

// FormatSymbol joins base and quote into canonical form.
func FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

// BaseAsset returns the base asset of symbol, or the symbol itself when it is not canonical.
func BaseAsset(symbol string) string {
	base, _, err := ParseSymbol(symbol)
	if err != nil {
		return symbol
	}

	return base
}

// QuoteAsset returns the quote asset of symbol, or an empty string when it is not canonical.
func QuoteAsset(symbol string) string {
	_, quote, err := ParseSymbol(symbol)
	if err != nil {
		return ""
	}

	return quote
}

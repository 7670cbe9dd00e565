// Package errors carries a numeric code on every failure the trader raises,
// so retry, risk and cycle logic can branch on the code instead of the text.
//
// Code ranges:
//   - General errors (1-99)
//   - Validation errors (100-199): invalid parameters, symbols, timeframes, configs
//   - Data errors (200-299): missing data, query and market data failures
//   - Connector errors (300-399): connectivity, auth, rate limits, unsupported venue capabilities
//   - Strategy errors (400-499): registry, lifecycle and analysis failures
//   - Risk and execution errors (500-599): rejections, emergency stop, positions
//   - Backtest errors (600-699): cancellation, configuration, missing history
//   - Storage errors (700-799)
//   - Advisor errors (800-899)
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeUnsupported, "%s does not support leverage", venue)
//	err := errors.Wrap(errors.ErrCodeConnectivity, "failed to fetch ticker", cause)
//
//	if errors.HasCode(err, errors.ErrCodeBacktestCancelled) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a coded failure with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New returns an Error without a cause.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap attaches code and message to cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf is Wrap with a format string.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is forwards to the standard library so callers need one errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost *Error in err's chain, or
// ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode reports whether GetCode(err) is code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsPermanent reports whether retrying the failed call cannot succeed.
// Auth failures, unsupported capabilities and invalid input are permanent;
// connectivity, timeouts and rate limits are not.
func IsPermanent(err error) bool {
	switch GetCode(err) {
	case ErrCodeAuthFailed, ErrCodeUnsupported, ErrCodeInvalidParameter,
		ErrCodeInvalidSymbol, ErrCodeInvalidTimeframe, ErrCodeInvalidOrder,
		ErrCodeInsufficientFunds, ErrCodeOrderNotFound:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether err marks a cooperatively cancelled backtest.
func IsCancelled(err error) bool {
	return HasCode(err, ErrCodeBacktestCancelled)
}

// InsufficientData reports a window shorter than a calculation needs.
// Strategy cycles and backtests treat it as "no signal yet".
func InsufficientData(what string, required, actual int) *Error {
	return Newf(ErrCodeInsufficientData, "%s needs %d data points, got %d", what, required, actual)
}

// IsInsufficientData reports whether err carries ErrCodeInsufficientData.
func IsInsufficientData(err error) bool {
	return HasCode(err, ErrCodeInsufficientData)
}

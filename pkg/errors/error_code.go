package errors

// ErrorCode identifies a failure class. Ranges group codes by component.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown  ErrorCode = 1
	ErrCodeInternal ErrorCode = 2
	ErrCodeTimeout  ErrorCode = 3

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidSymbol        ErrorCode = 103
	ErrCodeInvalidTimeframe     ErrorCode = 104
	ErrCodeInsufficientData     ErrorCode = 105
	ErrCodeMissingParameter     ErrorCode = 106
	ErrCodeInvalidVersion       ErrorCode = 107

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeMarketDataFetchFailed ErrorCode = 203
	ErrCodeMarketDataWriteFailed ErrorCode = 204
	ErrCodeCollectionNotFound    ErrorCode = 205

	// Connector errors (300-399)
	ErrCodeConnectivity       ErrorCode = 300
	ErrCodeAuthFailed         ErrorCode = 301
	ErrCodeRateLimited        ErrorCode = 302
	ErrCodeUnsupported        ErrorCode = 303
	ErrCodeOrderFailed        ErrorCode = 304
	ErrCodeOrderNotFound      ErrorCode = 305
	ErrCodeInsufficientFunds  ErrorCode = 306
	ErrCodeConnectorNotFound  ErrorCode = 307
	ErrCodeConnectorDuplicate ErrorCode = 308

	// Strategy errors (400-499)
	ErrCodeUnknownStrategyType     ErrorCode = 400
	ErrCodeStrategyNotFound        ErrorCode = 401
	ErrCodeStrategyAlreadyExists   ErrorCode = 402
	ErrCodeStrategyConfigError     ErrorCode = 403
	ErrCodeStrategyRuntimeError    ErrorCode = 404
	ErrCodeVersionMismatch         ErrorCode = 405
	ErrCodeUnsupportedStrategy     ErrorCode = 406
	ErrCodeStrategyTypeDuplicate   ErrorCode = 407
	ErrCodeArbitrageLegFailed      ErrorCode = 409
	ErrCodeArbitragePartialFill    ErrorCode = 410
	ErrCodeStrategyNotExecutable   ErrorCode = 411
	ErrCodeStrategyAlreadyStarting ErrorCode = 412

	// Risk and execution errors (500-599)
	ErrCodeRiskRejected        ErrorCode = 500
	ErrCodeEmergencyStopActive ErrorCode = 501
	ErrCodePositionNotFound    ErrorCode = 502
	ErrCodeReservationNotFound ErrorCode = 503
	ErrCodePositionClosed      ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeBacktestCancelled   ErrorCode = 600
	ErrCodeBacktestConfigError ErrorCode = 601
	ErrCodeBacktestNoData      ErrorCode = 602

	// Storage errors (700-799)
	ErrCodeStorageFailed   ErrorCode = 700
	ErrCodeMigrationFailed ErrorCode = 701

	// Advisor errors (800-899)
	ErrCodeAdvisorFailed    ErrorCode = 800
	ErrCodeAdvisorMalformed ErrorCode = 801
)

package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Authorization
const (
	CodeUnauthorizedCaller    Code = "UNAUTHORIZED_CALLER"
	CodeUnexpectedLender      Code = "UNAUTHORIZED_LENDER"
	CodeForeignInitiator      Code = "UNAUTHORIZED_INITIATOR"
	CodeCallbackAssetMismatch Code = "UNAUTHORIZED_CALLBACK_ASSET"
	CodeUnexpectedCallback    Code = "UNAUTHORIZED_CALLBACK"
)

// Validation
const (
	CodeInvalidPath           Code = "INVALID_PATH"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInvalidLoanContext    Code = "INVALID_LOAN_CONTEXT"
	CodeDeadlineExpired       Code = "DEADLINE_EXPIRED"
	CodeFeePriceTooHigh       Code = "FEE_PRICE_TOO_HIGH"
	CodeParameterOutOfBounds  Code = "PARAMETER_OUT_OF_BOUNDS"
	CodeExecutionInProgress   Code = "EXECUTION_IN_PROGRESS"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"
)

// Liquidity
const (
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeSlippageExceeded      Code = "SLIPPAGE_EXCEEDED"
	CodeUnknownPool           Code = "UNKNOWN_POOL"
)

// Oracle
const (
	CodeOracleInvalidPrice     Code = "ORACLE_INVALID_PRICE"
	CodeOracleStale            Code = "ORACLE_STALE"
	CodeOracleUnavailable      Code = "ORACLE_UNAVAILABLE"
	CodePriceDeviationExceeded Code = "PRICE_DEVIATION_EXCEEDED"
)

// Profitability
const (
	CodeNotProfitable      Code = "NOT_PROFITABLE"
	CodeInsufficientProfit Code = "INSUFFICIENT_PROFIT"
	CodeCallbackRejected   Code = "CALLBACK_REJECTED"
)

// Blockchain and transport
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"

	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeAlertDeliveryFailed      Code = "ALERT_DELIVERY_FAILED"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"

	CodeIllegalTransition Code = "ILLEGAL_STATE_TRANSITION"
)

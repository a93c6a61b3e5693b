package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeUnauthorizedCaller:    "Caller is not the owner",
	CodeUnexpectedLender:      "Loan callback from an unknown lending facility",
	CodeForeignInitiator:      "Loan was not initiated by this engine",
	CodeCallbackAssetMismatch: "Callback asset does not match the loan context",
	CodeUnexpectedCallback:    "Loan callback without an execution in flight",

	CodeInvalidPath:           "Swap path is malformed",
	CodeInvalidAmount:         "Amount must be positive",
	CodeInvalidLoanContext:    "Loan context failed validation",
	CodeDeadlineExpired:       "Deadline has passed",
	CodeFeePriceTooHigh:       "Fee-unit price is above the acceptable maximum",
	CodeParameterOutOfBounds:  "Risk parameter exceeds its hard ceiling",
	CodeExecutionInProgress:   "Another execution is in flight",
	CodeInsufficientBalance:   "Insufficient balance",
	CodeInsufficientAllowance: "Insufficient allowance",

	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodeSlippageExceeded:      "Swap output below the minimum accepted",
	CodeUnknownPool:           "Pool is not known to the router",

	CodeOracleInvalidPrice:     "Price feed returned a non-positive value",
	CodeOracleStale:            "Price feed reading is stale",
	CodeOracleUnavailable:      "Price feed is unavailable",
	CodePriceDeviationExceeded: "Trade price deviates from the reference price",

	CodeNotProfitable:      "Trade is not profitable",
	CodeInsufficientProfit: "Insufficient profit after execution",
	CodeCallbackRejected:   "Loan receiver rejected the callback",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeAlertDeliveryFailed:      "Alert delivery failed",

	CodeCircuitOpen: "Circuit breaker is open",

	CodeIllegalTransition: "Illegal execution state transition",
}

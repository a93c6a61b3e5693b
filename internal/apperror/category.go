package apperror

// Category groups codes into the failure classes the engine reasons about.
type Category string

const (
	CategoryAuthorization Category = "authorization"
	CategoryValidation    Category = "validation"
	CategoryLiquidity     Category = "liquidity"
	CategoryOracle        Category = "oracle"
	CategoryProfitability Category = "profitability"
	CategoryExternal      Category = "external"
	CategoryInternal      Category = "internal"
)

var categories = map[Code]Category{
	CodeUnauthorizedCaller:    CategoryAuthorization,
	CodeUnexpectedLender:      CategoryAuthorization,
	CodeForeignInitiator:      CategoryAuthorization,
	CodeCallbackAssetMismatch: CategoryAuthorization,
	CodeUnexpectedCallback:    CategoryAuthorization,

	CodeInvalidInput:          CategoryValidation,
	CodeInvalidPath:           CategoryValidation,
	CodeInvalidAmount:         CategoryValidation,
	CodeInvalidLoanContext:    CategoryValidation,
	CodeDeadlineExpired:       CategoryValidation,
	CodeFeePriceTooHigh:       CategoryValidation,
	CodeParameterOutOfBounds:  CategoryValidation,
	CodeExecutionInProgress:   CategoryValidation,
	CodeInsufficientBalance:   CategoryValidation,
	CodeInsufficientAllowance: CategoryValidation,
	CodeConfigurationError:    CategoryValidation,

	CodeInsufficientLiquidity: CategoryLiquidity,
	CodeSlippageExceeded:      CategoryLiquidity,
	CodeUnknownPool:           CategoryLiquidity,

	CodeOracleInvalidPrice:     CategoryOracle,
	CodeOracleStale:            CategoryOracle,
	CodeOracleUnavailable:      CategoryOracle,
	CodePriceDeviationExceeded: CategoryOracle,

	CodeNotProfitable:      CategoryProfitability,
	CodeInsufficientProfit: CategoryProfitability,
	CodeCallbackRejected:   CategoryProfitability,

	CodeExternalServiceError:     CategoryExternal,
	CodeServiceTimeout:           CategoryExternal,
	CodeRateLimitExceeded:        CategoryExternal,
	CodeEthereumConnectionFailed: CategoryExternal,
	CodeEthereumSubscribeFailed:  CategoryExternal,
	CodeEthereumRPCError:         CategoryExternal,
	CodeGasEstimationFailed:      CategoryExternal,
	CodeContractCallFailed:       CategoryExternal,
	CodeWebSocketConnectionError: CategoryExternal,
	CodeAlertDeliveryFailed:      CategoryExternal,
	CodeCircuitOpen:              CategoryExternal,
}

// CategoryOf returns the category of code. Unmapped codes are internal.
func CategoryOf(code Code) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryInternal
}

// CategoryOfError returns the category of an error's code, or internal for
// errors that are not AppErrors.
func CategoryOfError(err error) Category {
	return CategoryOf(GetCode(err))
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew_CategoryAndStatus(t *testing.T) {
	tests := []struct {
		code     Code
		category Category
		status   int
	}{
		{CodeUnauthorizedCaller, CategoryAuthorization, http.StatusForbidden},
		{CodeForeignInitiator, CategoryAuthorization, http.StatusForbidden},
		{CodeDeadlineExpired, CategoryValidation, http.StatusBadRequest},
		{CodeParameterOutOfBounds, CategoryValidation, http.StatusBadRequest},
		{CodeExecutionInProgress, CategoryValidation, http.StatusConflict},
		{CodeInsufficientLiquidity, CategoryLiquidity, http.StatusUnprocessableEntity},
		{CodeOracleInvalidPrice, CategoryOracle, http.StatusBadGateway},
		{CodeInsufficientProfit, CategoryProfitability, http.StatusUnprocessableEntity},
		{CodeEthereumConnectionFailed, CategoryExternal, http.StatusServiceUnavailable},
		{CodeIllegalTransition, CategoryInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code)
			if err.Category != tt.category {
				t.Errorf("Category = %s, want %s", err.Category, tt.category)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
			if err.Message == "" || err.Message == string(tt.code) {
				t.Errorf("Message = %q, want a human message", err.Message)
			}
		})
	}
}

func TestAppError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("feed returned -1")
	err := New(CodeOracleInvalidPrice, WithCause(cause), WithContext("reference"))
	wrapped := fmt.Errorf("simulate: %w", err)

	if !errors.Is(wrapped, New(CodeOracleInvalidPrice)) {
		t.Error("errors.Is by code failed")
	}
	if errors.Is(wrapped, New(CodeOracleStale)) {
		t.Error("errors.Is matched a different code")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if got := GetCategory(wrapped); got != CategoryOracle {
		t.Errorf("GetCategory() = %s, want oracle", got)
	}
	if got := GetCode(cause); got != CodeUnknownError {
		t.Errorf("GetCode(plain) = %s", got)
	}
}

func TestAppError_ToResponse(t *testing.T) {
	err := New(CodeNotProfitable, WithContext("net=-3"), WithCause(errors.New("hidden")))
	body := err.ToResponse().Error

	if body.Code != CodeNotProfitable || body.Category != CategoryProfitability {
		t.Errorf("unexpected response body %+v", body)
	}
	if body.Context != "net=-3" {
		t.Errorf("context = %q", body.Context)
	}
}

func TestAppError_Text(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		text   string
		reason string
	}{
		{
			"bare",
			New(CodeDeadlineExpired, WithMessage("too late")),
			"DEADLINE_EXPIRED: too late",
			"too late",
		},
		{
			"with context and cause",
			New(CodeSlippageExceeded, WithMessage("slippage"), WithContext("leg 2"), WithCause(errors.New("short"))),
			"SLIPPAGE_EXCEEDED: slippage (leg 2): short",
			"slippage: leg 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.text {
				t.Errorf("Error() = %q, want %q", got, tt.text)
			}
			if got := tt.err.Reason(); got != tt.reason {
				t.Errorf("Reason() = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	plain := errors.New("boom")
	if got := From(plain); got.Code != CodeInternalError || !errors.Is(got, plain) {
		t.Errorf("From(plain) = %v", got)
	}
	coded := New(CodeUnauthorizedCaller)
	if got := From(fmt.Errorf("wrap: %w", coded)); got != coded {
		t.Errorf("From(wrapped) = %v, want the original", got)
	}
}

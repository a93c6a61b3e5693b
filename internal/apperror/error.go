package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AppError is a coded engine failure. Code drives the category, the HTTP
// status and the default message.
type AppError struct {
	Code       Code      `json:"code"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
}

// Option customises an AppError built by New.
type Option func(*AppError)

// WithMessage overrides the default message of the code.
func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

// WithContext attaches detail such as the offending value.
func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

// WithStatusCode overrides the status derived from the code.
func WithStatusCode(status int) Option {
	return func(e *AppError) { e.StatusCode = status }
}

// WithCause records the underlying error for Unwrap.
func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an AppError for code.
func New(code Code, opts ...Option) *AppError {
	e := &AppError{
		Code:       code,
		Category:   CategoryOf(code),
		Message:    messages[code],
		StatusCode: statusFor(code),
		Timestamp:  time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" {
		e.Message = string(code)
	}
	return e
}

func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&sb, " (%s)", e.Context)
	}
	if e.cause != nil {
		fmt.Fprintf(&sb, ": %v", e.cause)
	}
	return sb.String()
}

func (e *AppError) Unwrap() error { return e.cause }

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Reason is the message plus context, without the code.
func (e *AppError) Reason() string {
	if e.Context == "" {
		return e.Message
	}
	return e.Message + ": " + e.Context
}

// Response is the JSON error envelope.
type Response struct {
	Error ResponseBody `json:"error"`
}

// ResponseBody is the client-visible part of an AppError.
type ResponseBody struct {
	Code      Code     `json:"code"`
	Category  Category `json:"category"`
	Message   string   `json:"message"`
	Context   string   `json:"context,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// ToResponse renders the error for an HTTP response. The cause stays out.
func (e *AppError) ToResponse() Response {
	return Response{Error: ResponseBody{
		Code:      e.Code,
		Category:  e.Category,
		Message:   e.Message,
		Context:   e.Context,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}}
}

// From returns the AppError in err's chain, or an internal error wrapping
// err.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(CodeInternalError, WithCause(err))
}

// GetCode extracts the error code; CodeUnknownError for plain errors.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// GetCategory extracts the category; CategoryInternal for plain errors.
func GetCategory(err error) Category {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryInternal
}

var statusByCategory = map[Category]int{
	CategoryAuthorization: http.StatusForbidden,
	CategoryValidation:    http.StatusBadRequest,
	CategoryLiquidity:     http.StatusUnprocessableEntity,
	CategoryProfitability: http.StatusUnprocessableEntity,
	CategoryOracle:        http.StatusBadGateway,
	CategoryExternal:      http.StatusBadGateway,
}

func statusFor(code Code) int {
	switch {
	case code == CodeExecutionInProgress:
		return http.StatusConflict
	case code == CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case strings.Contains(string(code), "NOT_FOUND"):
		return http.StatusNotFound
	case strings.Contains(string(code), "CONNECTION"), strings.Contains(string(code), "TIMEOUT"):
		return http.StatusServiceUnavailable
	}
	if s, ok := statusByCategory[CategoryOf(code)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

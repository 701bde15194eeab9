package common

import (
	"errors"
	"net/http"
)

// ErrorResponse API error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // only in debug mode
}

// CustomError error carrying an API code and HTTP status
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is matches on code so a wrapped copy still compares equal to the predefined value.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a CustomError
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap returns a copy of e carrying err as its cause.
func (e *CustomError) Wrap(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// ValidationError input validation failure
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError creates a ValidationError
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	// client errors (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// server errors (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// domain
	ErrCodeTransientGeneration  = "TRANSIENT_GENERATION_FAILURE"
	ErrCodeGenerationExhausted  = "GENERATION_EXHAUSTED"
	ErrCodeMalformedGeneration  = "MALFORMED_GENERATION_RESPONSE"
	ErrCodeGenerationFailed     = "GENERATION_FAILED"
	ErrCodeIngredientUnresolved = "INGREDIENT_NOT_RESOLVABLE"
	ErrCodeRatioNotFound        = "RATIO_NOT_FOUND"
	ErrCodeInvalidRatio         = "INVALID_RATIO"
	ErrCodeUnitNotFound         = "UNIT_NOT_FOUND"
)

var (
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError      = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "service temporarily unavailable", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "gateway timeout", http.StatusGatewayTimeout, nil)

	// generation backend
	ErrTransientGeneration = NewError(ErrCodeTransientGeneration, "generation backend temporarily unavailable", http.StatusServiceUnavailable, nil)
	ErrGenerationExhausted = NewError(ErrCodeGenerationExhausted, "generation retries exhausted", http.StatusServiceUnavailable, nil)
	ErrMalformedGeneration = NewError(ErrCodeMalformedGeneration, "malformed generation response", http.StatusBadGateway, nil)
	ErrGenerationFailed    = NewError(ErrCodeGenerationFailed, "generation request rejected", http.StatusBadGateway, nil)

	// ingredients and units
	ErrIngredientNotResolvable = NewError(ErrCodeIngredientUnresolved, "ingredient not resolvable", http.StatusUnprocessableEntity, nil)
	ErrRatioNotFound           = NewError(ErrCodeRatioNotFound, "unit ratio not found", http.StatusNotFound, nil)
	ErrInvalidRatio            = NewError(ErrCodeInvalidRatio, "invalid unit ratio", http.StatusBadRequest, nil)
	ErrUnitNotFound            = NewError(ErrCodeUnitNotFound, "unit not found", http.StatusNotFound, nil)
)

package errors

import (
	"fmt"
	"time"
)

// Error codes
const (
	CodePipelineError = "PIPELINE_ERROR"
	CodeAPIError      = "API_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeCache         = "CACHE_ERROR"
	CodeService       = "SERVICE_ERROR"
	CodeRateLimit     = "RATE_LIMIT_ERROR"
)

type PipelineError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func NewPipelineError(message, code string, statusCode int, context map[string]any) *PipelineError {
	return &PipelineError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *PipelineError) WithCause(cause error) *PipelineError {
	e.Cause = cause
	return e
}

// APIError is returned when a remote API answers with a non-success status.
type APIError struct {
	*PipelineError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		PipelineError: &PipelineError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

type ValidationError struct {
	*PipelineError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		PipelineError: &PipelineError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*PipelineError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		PipelineError: &PipelineError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*PipelineError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		PipelineError: &PipelineError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// RateLimitError reports a request that stayed rate limited after the allowed retries.
type RateLimitError struct {
	*APIError
	Attempts   int
	RetryAfter time.Duration
}

func NewRateLimitError(message string, attempts int, retryAfter time.Duration, context map[string]any) *RateLimitError {
	if context == nil {
		context = map[string]any{}
	}
	context["attempts"] = attempts
	context["retry_after"] = retryAfter.String()

	return &RateLimitError{
		APIError: &APIError{
			PipelineError: &PipelineError{
				Message:    message,
				Code:       CodeRateLimit,
				StatusCode: 429,
				Context:    context,
			},
		},
		Attempts:   attempts,
		RetryAfter: retryAfter,
	}
}

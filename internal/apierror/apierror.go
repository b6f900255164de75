// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "posmarket/internal/apperror"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code    string         `json:"code,omitempty"`
	Detail  string         `json:"detail"`
	Context map[string]any `json:"context,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError converts a service error into the envelope. Internal errors keep
// a generic message; the cause is only logged.
func FromError(err error) *APIError {
	e, ok := apperror.As(err)
	if !ok || e.Kind == apperror.Internal {
		return &APIError{Code: string(apperror.Internal), Detail: "Error interno del servidor"}
	}
	return &APIError{Code: string(e.Kind), Detail: e.Message, Context: e.Details}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: "VALIDATION_ERROR", Detail: "Error de validacion", Fields: fields}
}

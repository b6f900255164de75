// Package apperror defines the business error taxonomy shared by services and
// handlers. Services return *Error; handlers map it to an HTTP status and the
// apierror envelope without inspecting message strings.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error identifier.
type Kind string

const (
	NoActiveSession            Kind = "NO_ACTIVE_SESSION"
	SessionAlreadyOpen         Kind = "SESSION_ALREADY_OPEN"
	InvalidAmount              Kind = "INVALID_AMOUNT"
	InvalidQuantity            Kind = "INVALID_QUANTITY"
	InvalidCategory            Kind = "INVALID_CATEGORY"
	ProductNotFound            Kind = "PRODUCT_NOT_FOUND"
	PaymentMismatch            Kind = "PAYMENT_MISMATCH"
	ExemptPaymentViolation     Kind = "EXEMPT_PAYMENT_VIOLATION"
	OverReturn                 Kind = "OVER_RETURN"
	NegativeExchangeDifference Kind = "NEGATIVE_EXCHANGE_DIFFERENCE"
	WrongSession               Kind = "WRONG_SESSION"
	AlreadyVoided              Kind = "ALREADY_VOIDED"
	AlreadyReceipted           Kind = "ALREADY_RECEIPTED"
	NotFound                   Kind = "NOT_FOUND"
	NotReceiptable             Kind = "NOT_RECEIPTABLE"
	Internal                   Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	NoActiveSession:            http.StatusConflict,
	SessionAlreadyOpen:         http.StatusConflict,
	InvalidAmount:              http.StatusBadRequest,
	InvalidQuantity:            http.StatusBadRequest,
	InvalidCategory:            http.StatusBadRequest,
	ProductNotFound:            http.StatusNotFound,
	PaymentMismatch:            http.StatusUnprocessableEntity,
	ExemptPaymentViolation:     http.StatusUnprocessableEntity,
	OverReturn:                 http.StatusUnprocessableEntity,
	NegativeExchangeDifference: http.StatusUnprocessableEntity,
	WrongSession:               http.StatusConflict,
	AlreadyVoided:              http.StatusConflict,
	AlreadyReceipted:           http.StatusConflict,
	NotFound:                   http.StatusNotFound,
	NotReceiptable:             http.StatusUnprocessableEntity,
	Internal:                   http.StatusInternalServerError,
}

// Error carries a Kind, a human-readable message and optional context fields
// (ids, amounts) for programmatic handling.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With adds a detail field and returns the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus is the suggested response status for the error kind.
func (e *Error) HTTPStatus() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap hides a storage or infrastructure failure behind an Internal error.
func Wrap(err error, msg string) *Error {
	return &Error{Kind: Internal, Message: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// KindOf returns the kind of err, Internal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// HTTPStatus returns the response status for any error.
func HTTPStatus(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Convenience constructors for the most frequent kinds.

func NoSession() *Error {
	return New(NoActiveSession, "No hay una sesión de caja abierta")
}

func NotFoundf(entity string, id any) *Error {
	return Newf(NotFound, "%s no encontrado", entity).With("id", id)
}

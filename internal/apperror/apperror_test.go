package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NoSession(), http.StatusConflict},
		{New(InvalidAmount, "x"), http.StatusBadRequest},
		{New(ProductNotFound, "x"), http.StatusNotFound},
		{New(ExemptPaymentViolation, "x"), http.StatusUnprocessableEntity},
		{New(AlreadyReceipted, "x"), http.StatusConflict},
		{Wrap(errors.New("db down"), "x"), http.StatusInternalServerError},
		{errors.New("foreign"), http.StatusInternalServerError},
		{New("UNKNOWN", "x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("tx: %w", New(OverReturn, "too many").With("solicitado", 3))

	assert.True(t, Is(err, OverReturn))
	assert.False(t, Is(err, NotFound))
	assert.Equal(t, OverReturn, KindOf(err))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, 3, e.Details["solicitado"])
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "error consultando venta")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("Venta", "abc")
	assert.Equal(t, NotFound, err.Kind)
	assert.Equal(t, "Venta no encontrado", err.Message)
	assert.Equal(t, "abc", err.Details["id"])
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/middleware"
	"posmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubAuth struct {
	service.AuthService
	resp *dto.LoginResponse
	err  error
}

func (s *stubAuth) Login(context.Context, dto.LoginRequest) (*dto.LoginResponse, error) {
	return s.resp, s.err
}

// stubVentas embeds the interface; only the methods under test are defined.
type stubVentas struct {
	service.VentaService
	err   error
	actor service.Actor
	req   dto.CrearVentaRequest
}

func (s *stubVentas) CrearVenta(_ context.Context, a service.Actor, req dto.CrearVentaRequest) (*dto.VentaResponse, error) {
	s.actor, s.req = a, req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VentaResponse{ID: uuid.NewString(), Total: req.Pagos[0].Monto}, nil
}

func (s *stubVentas) AnularVenta(_ context.Context, a service.Actor, id uuid.UUID, _ *string) (*dto.VentaResponse, error) {
	s.actor = a
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VentaResponse{ID: id.String(), Anulada: true}, nil
}

func (s *stubVentas) VoucherPDF(_ context.Context, _ service.Actor, _ uuid.UUID, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := w.Write([]byte("%PDF-1.3 stub"))
	return err
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func signToken(t *testing.T, userID, rol string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID, "username": "testuser", "rol": rol,
		"exp": time.Now().Add(time.Hour).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func ventasRouter(svc service.VentaService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewVentasHandler(svc)
	v := r.Group("/v1", middleware.JWTAuth(testSecret))
	v.POST("/ventas", h.Crear)
	v.POST("/ventas/:id/anular", h.Anular)
	v.GET("/ventas/:id/voucher.pdf", h.VoucherPDF)
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// ── Tests: Login ──────────────────────────────────────────────────────────────

func loginRouter(svc service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", NewAuthHandler(svc).Login)
	return r
}

func TestLogin_Success(t *testing.T) {
	svc := &stubAuth{resp: &dto.LoginResponse{AccessToken: "tok", TokenType: "bearer"}}
	w := do(t, loginRouter(svc), http.MethodPost, "/login", "", dto.LoginRequest{Username: "admin", Password: "password123"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", decode(t, w)["access_token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubAuth{err: service.ErrCredencialesInvalidas}
	w := do(t, loginRouter(svc), http.MethodPost, "/login", "", dto.LoginRequest{Username: "cajero1", Password: "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_ValidationFields(t *testing.T) {
	w := do(t, loginRouter(&stubAuth{}), http.MethodPost, "/login", "", dto.LoginRequest{Username: "u", Password: "12"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "min", fields["Password"])
}

func TestLogin_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	loginRouter(&stubAuth{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── Tests: Ventas ─────────────────────────────────────────────────────────────

func TestCrearVenta_PasaElActor(t *testing.T) {
	svc := &stubVentas{}
	userID := uuid.New()
	tok := signToken(t, userID.String(), "cajero")

	w := do(t, ventasRouter(svc), http.MethodPost, "/v1/ventas", tok, map[string]any{
		"items": []map[string]any{{"producto_id": uuid.NewString(), "cantidad": 2}},
		"pagos": []map[string]any{{"metodo": "EFECTIVO", "monto": "2000"}},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, userID, svc.actor.UsuarioID)
	assert.Equal(t, "cajero", svc.actor.Rol)
	require.Len(t, svc.req.Items, 1)
	assert.Equal(t, 2, svc.req.Items[0].Cantidad)
}

func TestCrearVenta_SinItems(t *testing.T) {
	tok := signToken(t, uuid.NewString(), "cajero")
	w := do(t, ventasRouter(&stubVentas{}), http.MethodPost, "/v1/ventas", tok, map[string]any{"items": []any{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "Items")
}

func TestCrearVenta_ErroresDeNegocio(t *testing.T) {
	tok := signToken(t, uuid.NewString(), "cajero")
	body := map[string]any{
		"items": []map[string]any{{"producto_id": uuid.NewString(), "cantidad": 1}},
		"pagos": []map[string]any{{"metodo": "DEBITO", "monto": "5000"}},
	}

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.New(apperror.ExemptPaymentViolation, "exento"), http.StatusUnprocessableEntity, "EXEMPT_PAYMENT_VIOLATION"},
		{apperror.New(apperror.PaymentMismatch, "no cuadra"), http.StatusUnprocessableEntity, "PAYMENT_MISMATCH"},
		{apperror.NoSession(), http.StatusConflict, "NO_ACTIVE_SESSION"},
		{apperror.New(apperror.ProductNotFound, "x"), http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := do(t, ventasRouter(&stubVentas{err: tt.err}), http.MethodPost, "/v1/ventas", tok, body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestAnular_IDInvalido(t *testing.T) {
	tok := signToken(t, uuid.NewString(), "cajero")
	w := do(t, ventasRouter(&stubVentas{}), http.MethodPost, "/v1/ventas/abc/anular", tok, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ID invalido", decode(t, w)["detail"])
}

func TestAnular_ConflictoConContexto(t *testing.T) {
	id := uuid.New()
	svc := &stubVentas{err: apperror.New(apperror.AlreadyVoided, "La venta ya fue anulada").With("venta_id", id.String())}
	tok := signToken(t, uuid.NewString(), "cajero")

	w := do(t, ventasRouter(svc), http.MethodPost, "/v1/ventas/"+id.String()+"/anular", tok, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ALREADY_VOIDED", body["code"])
	assert.Equal(t, "La venta ya fue anulada", body["detail"])
	ctx, ok := body["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id.String(), ctx["venta_id"])
}

func TestAnular_ErrorInternoNoFiltraCausa(t *testing.T) {
	svc := &stubVentas{err: apperror.Wrap(errors.New("pq: connection refused"), "error consultando venta")}
	tok := signToken(t, uuid.NewString(), "administrador")

	w := do(t, ventasRouter(svc), http.MethodPost, "/v1/ventas/"+uuid.NewString()+"/anular", tok, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["code"])
}

func TestAnular_SinToken(t *testing.T) {
	w := do(t, ventasRouter(&stubVentas{}), http.MethodPost, "/v1/ventas/"+uuid.NewString()+"/anular", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVoucherPDF(t *testing.T) {
	tok := signToken(t, uuid.NewString(), "cajero")
	w := do(t, ventasRouter(&stubVentas{}), http.MethodGet, "/v1/ventas/"+uuid.NewString()+"/voucher.pdf", tok, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestVoucherPDF_NoVisible(t *testing.T) {
	tok := signToken(t, uuid.NewString(), "cajero")
	svc := &stubVentas{err: apperror.NotFoundf("Venta", "x")}
	w := do(t, ventasRouter(svc), http.MethodGet, "/v1/ventas/"+uuid.NewString()+"/voucher.pdf", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ItemDevueltoRequest names a product of the original sale and how many
// units come back.
type ItemDevueltoRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"`
}

type DevolucionRequest struct {
	Items      []ItemDevueltoRequest `json:"items"       validate:"required,min=1,dive"`
	MetodoPago string                `json:"metodo_pago" validate:"required"`
	Motivo     *string               `json:"motivo"      validate:"omitempty,max=255"`
}

// CambioRequest swaps Devueltos for Entregados. MetodoPago is required when
// the new goods cost more.
type CambioRequest struct {
	Devueltos  []ItemDevueltoRequest `json:"devueltos"   validate:"required,min=1,dive"`
	Entregados []ItemVentaRequest    `json:"entregados"  validate:"required,min=1,dive"`
	MetodoPago *string               `json:"metodo_pago"`
	Motivo     *string               `json:"motivo"      validate:"omitempty,max=255"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineaDevolucionResponse struct {
	ProductoID     string          `json:"producto_id"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Exento         bool            `json:"exento"`
}

type DevolucionResponse struct {
	ID            string                    `json:"id"`
	VentaID       string                    `json:"venta_id"`
	SesionCajaID  string                    `json:"sesion_caja_id"`
	MetodoPago    string                    `json:"metodo_pago"`
	TotalDevuelto decimal.Decimal           `json:"total_devuelto"`
	TotalExento   decimal.Decimal           `json:"total_exento"`
	Motivo        *string                   `json:"motivo,omitempty"`
	Items         []LineaDevolucionResponse `json:"items"`
	CreatedAt     string                    `json:"created_at"`
}

type CambioResponse struct {
	ID            string                    `json:"id"`
	VentaID       string                    `json:"venta_id"`
	SesionCajaID  string                    `json:"sesion_caja_id"`
	TotalDevuelto decimal.Decimal           `json:"total_devuelto"`
	TotalNuevo    decimal.Decimal           `json:"total_nuevo"`
	Diferencia    decimal.Decimal           `json:"diferencia"`
	MetodoPago    *string                   `json:"metodo_pago,omitempty"`
	Motivo        *string                   `json:"motivo,omitempty"`
	Devueltos     []LineaDevolucionResponse `json:"devueltos"`
	Entregados    []ItemVentaResponse       `json:"entregados"`
	CreatedAt     string                    `json:"created_at"`
}

// HistorialDevolucionesResponse lists what was taken back from one sale, oldest first.
type HistorialDevolucionesResponse struct {
	VentaID      string               `json:"venta_id"`
	Devoluciones []DevolucionResponse `json:"devoluciones"`
	Cambios      []CambioResponse     `json:"cambios"`
}

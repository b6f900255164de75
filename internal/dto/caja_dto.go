package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────
// Amount rules (>= 0, > 0) are enforced by the service so they surface with
// their business error code.

type AbrirCajaRequest struct {
	InicialLocal  decimal.Decimal `json:"inicial_local"`
	InicialVecina decimal.Decimal `json:"inicial_vecina"`
}

type CerrarCajaRequest struct {
	RealLocal  decimal.Decimal `json:"real_local"`
	RealVecina decimal.Decimal `json:"real_vecina"`
}

type MovimientoManualRequest struct {
	Tipo        string          `json:"tipo"         validate:"required"`
	Categoria   string          `json:"categoria"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion *string         `json:"descripcion"  validate:"omitempty,max=255"`
	ProveedorID *string         `json:"proveedor_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TotalesCanalResponse struct {
	Efectivo      decimal.Decimal `json:"efectivo_giro"`
	Debito        decimal.Decimal `json:"debito"`
	Credito       decimal.Decimal `json:"credito"`
	Transferencia decimal.Decimal `json:"transferencia"`
}

type TicketsResponse struct {
	Efectivo      int `json:"efectivo_giro"`
	Debito        int `json:"debito"`
	Credito       int `json:"credito"`
	Transferencia int `json:"transferencia"`
}

type SesionCajaResponse struct {
	ID                string               `json:"id"`
	Estado            string               `json:"estado"`
	UsuarioAperturaID string               `json:"usuario_apertura_id"`
	UsuarioCierreID   *string              `json:"usuario_cierre_id"`
	OpenedAt          string               `json:"opened_at"`
	ClosedAt          *string              `json:"closed_at"`
	InicialLocal      decimal.Decimal      `json:"inicial_local"`
	InicialVecina     decimal.Decimal      `json:"inicial_vecina"`
	Totales           TotalesCanalResponse `json:"totales"`
	TotalExento       decimal.Decimal      `json:"total_exento"`
	IngresosExtra     decimal.Decimal      `json:"ingresos_extra"`
	Egresos           decimal.Decimal      `json:"egresos"`
	MovimientosVecina decimal.Decimal      `json:"movimientos_vecina"`
	Tickets           TicketsResponse      `json:"tickets"`
	EsperadoLocal     *decimal.Decimal     `json:"esperado_local"`
	EsperadoVecina    *decimal.Decimal     `json:"esperado_vecina"`
	RealLocal         *decimal.Decimal     `json:"real_local"`
	RealVecina        *decimal.Decimal     `json:"real_vecina"`
	DiferenciaLocal   *decimal.Decimal     `json:"diferencia_local"`
	DiferenciaVecina  *decimal.Decimal     `json:"diferencia_vecina"`
}

type MovimientoCajaResponse struct {
	ID           string          `json:"id"`
	Tipo         string          `json:"tipo"`
	Categoria    string          `json:"categoria"`
	Monto        decimal.Decimal `json:"monto"`
	Descripcion  *string         `json:"descripcion"`
	ProveedorID  *string         `json:"proveedor_id"`
	Sistema      bool            `json:"sistema"`
	ReferenciaID *string         `json:"referencia_id"`
	UsuarioID    string          `json:"usuario_id"`
	CreatedAt    string          `json:"created_at"`
}

type DetalleSesionResponse struct {
	Sesion      SesionCajaResponse       `json:"sesion"`
	Movimientos []MovimientoCajaResponse `json:"movimientos"`
}

type UltimaVentaResponse struct {
	ID        string          `json:"id"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"created_at"`
}

// ResumenCajaResponse is the dashboard view of the open session.
type ResumenCajaResponse struct {
	Sesion            SesionCajaResponse   `json:"sesion"`
	CantidadVentas    int64                `json:"cantidad_ventas"`
	TotalVentas       decimal.Decimal      `json:"total_ventas"`
	TotalExento       decimal.Decimal      `json:"total_exento"`
	MetodosPago       TotalesCanalResponse `json:"metodos_pago"`
	Tickets           TicketsResponse      `json:"tickets"`
	EfectivoEnCaja    decimal.Decimal      `json:"efectivo_en_caja"`
	UltimaVenta       *UltimaVentaResponse `json:"ultima_venta"`
	BoletasPendientes int                  `json:"boletas_pendientes"`
}

package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
// UsuarioID is ignored for cashiers: they only ever see their own sales.
type VentaFilter struct {
	Fecha        string `form:"fecha"` // YYYY-MM-DD; empty = no date filter
	SesionCajaID string `form:"sesion_caja_id" validate:"omitempty,uuid"`
	UsuarioID    string `form:"usuario_id"     validate:"omitempty,uuid"`
	Tipo         string `form:"tipo"           validate:"omitempty,oneof=NORMAL INTERNA"`
	Estado       string `form:"estado,default=activas" validate:"omitempty,oneof=activas anuladas all"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────
// Prices never travel in requests: every line is priced from the catalog.

type ItemVentaRequest struct {
	ProductoID string  `json:"producto_id" validate:"required,uuid"`
	Cantidad   int     `json:"cantidad"`
	EsPromo    bool    `json:"es_promo"`
	PromoID    *string `json:"promo_id"    validate:"omitempty,uuid"`
}

type PagoRequest struct {
	Metodo string          `json:"metodo" validate:"required"`
	Monto  decimal.Decimal `json:"monto"`
}

type CrearVentaRequest struct {
	Tipo  string             `json:"tipo"  validate:"omitempty,oneof=NORMAL INTERNA"`
	Items []ItemVentaRequest `json:"items" validate:"required,min=1,dive"`
	Pagos []PagoRequest      `json:"pagos" validate:"dive"`
	// NotaInterna and TotalInterno only apply to INTERNA sales.
	NotaInterna  *string          `json:"nota_interna"  validate:"omitempty,max=255"`
	TotalInterno *decimal.Decimal `json:"total_interno"`
}

// ComboRequest is a POS combo: two paid components plus the complimentary
// bonus product, Cantidad times.
type ComboRequest struct {
	Componentes []string `json:"componentes" validate:"len=2,dive,uuid"`
	Cantidad    int      `json:"cantidad"`
	PromoID     *string  `json:"promo_id"    validate:"omitempty,uuid"`
}

type VentaPosRequest struct {
	Tipo         string             `json:"tipo"          validate:"omitempty,oneof=NORMAL INTERNA"`
	Items        []ItemVentaRequest `json:"items"         validate:"dive"`
	Combos       []ComboRequest     `json:"combos"        validate:"dive"`
	Pagos        []PagoRequest      `json:"pagos"         validate:"dive"`
	NotaInterna  *string            `json:"nota_interna"  validate:"omitempty,max=255"`
	TotalInterno *decimal.Decimal   `json:"total_interno"`
}

type PreviewPosRequest struct {
	Tipo         string             `json:"tipo"          validate:"omitempty,oneof=NORMAL INTERNA"`
	Items        []ItemVentaRequest `json:"items"         validate:"dive"`
	Combos       []ComboRequest     `json:"combos"        validate:"dive"`
	TotalInterno *decimal.Decimal   `json:"total_interno"`
}

type AnularVentaRequest struct {
	Motivo *string `json:"motivo" validate:"omitempty,max=255"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Exento         bool            `json:"exento"`
	Mayorista      bool            `json:"mayorista"`
	EsPromo        bool            `json:"es_promo"`
	PromoID        *string         `json:"promo_id,omitempty"`
}

type PagoResponse struct {
	Metodo string          `json:"metodo"`
	Monto  decimal.Decimal `json:"monto"`
}

type BoletaResponse struct {
	Tipo      string `json:"tipo"`
	Folio     string `json:"folio"`
	CreatedAt string `json:"created_at"`
}

type VentaResponse struct {
	ID              string              `json:"id"`
	Tipo            string              `json:"tipo"`
	SesionCajaID    string              `json:"sesion_caja_id"`
	UsuarioID       string              `json:"usuario_id"`
	Usuario         string              `json:"usuario,omitempty"`
	Items           []ItemVentaResponse `json:"items"`
	Pagos           []PagoResponse      `json:"pagos"`
	Boletas         []BoletaResponse    `json:"boletas"`
	Total           decimal.Decimal     `json:"total"`
	TotalAfecto     decimal.Decimal     `json:"total_afecto"`
	TotalExento     decimal.Decimal     `json:"total_exento"`
	DescuentoPromos decimal.Decimal     `json:"descuento_promos"`
	MontoEfectivo   decimal.Decimal     `json:"monto_efectivo"`
	NotaInterna     *string             `json:"nota_interna,omitempty"`
	Anulada         bool                `json:"anulada"`
	MotivoAnulacion *string             `json:"motivo_anulacion,omitempty"`
	AnuladaAt       *string             `json:"anulada_at,omitempty"`
	CreatedAt       string              `json:"created_at"`
}

// PreviewResponse mirrors what a POS sale would cost right now. Nothing is
// persisted.
type PreviewResponse struct {
	Items           []ItemVentaResponse `json:"items"`
	Total           decimal.Decimal     `json:"total"`
	TotalAfecto     decimal.Decimal     `json:"total_afecto"`
	TotalExento     decimal.Decimal     `json:"total_exento"`
	DescuentoPromos decimal.Decimal     `json:"descuento_promos"`
}

// VoucherResponse returns the stored copy of the request that created a sale.
type VoucherResponse struct {
	VentaID   string          `json:"venta_id"`
	Contenido json.RawMessage `json:"contenido"`
	CreatedAt string          `json:"created_at"`
}

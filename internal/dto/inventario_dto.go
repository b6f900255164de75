package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Codigo            string           `json:"codigo"             validate:"required,max=40"`
	Nombre            string           `json:"nombre"             validate:"required,min=2,max=120"`
	PrecioVenta       decimal.Decimal  `json:"precio_venta"       validate:"gt=0"`
	PrecioMayorista   *decimal.Decimal `json:"precio_mayorista"`
	CantidadMayorista *int             `json:"cantidad_mayorista" validate:"omitempty,min=1"`
	Exento            bool             `json:"exento"`
	StockInicial      int              `json:"stock_inicial"      validate:"min=0"`
}

type PromocionDetalleRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
	EsGratis   bool   `json:"es_gratis"`
}

type CrearPromocionRequest struct {
	Nombre          string                    `json:"nombre"           validate:"required,min=2,max=120"`
	PrecioPromocion decimal.Decimal           `json:"precio_promocion" validate:"gt=0"`
	Detalles        []PromocionDetalleRequest `json:"detalles"         validate:"required,min=1,dive"`
}

// AjusteStockRequest applies a signed correction to a product's stock.
type AjusteStockRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Delta      int    `json:"delta"       validate:"required"`
	Motivo     string `json:"motivo"      validate:"required,min=3,max=255"`
}

// MovimientoStockFilter is bound from the query string of GET /v1/inventario/movimientos.
type MovimientoStockFilter struct {
	ProductoID   string `form:"producto_id"   validate:"omitempty,uuid"`
	ReferenciaID string `form:"referencia_id" validate:"omitempty,uuid"`
	Tipo         string `form:"tipo"          validate:"omitempty,oneof=VENTA DEVOLUCION ANULACION CAMBIO_ENTRADA CAMBIO_SALIDA AJUSTE"`
	Page         int    `form:"page,default=1"    validate:"min=1"`
	Limit        int    `form:"limit,default=100" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID                string           `json:"id"`
	Codigo            string           `json:"codigo"`
	Nombre            string           `json:"nombre"`
	PrecioVenta       decimal.Decimal  `json:"precio_venta"`
	PrecioMayorista   *decimal.Decimal `json:"precio_mayorista"`
	CantidadMayorista *int             `json:"cantidad_mayorista"`
	Exento            bool             `json:"exento"`
	Stock             int              `json:"stock"`
}

type PromocionResponse struct {
	ID              string                    `json:"id"`
	Nombre          string                    `json:"nombre"`
	Tipo            string                    `json:"tipo"`
	PrecioPromocion decimal.Decimal           `json:"precio_promocion"`
	Activa          bool                      `json:"activa"`
	Detalles        []PromocionDetalleRequest `json:"detalles"`
}

type MovimientoStockResponse struct {
	ID             string  `json:"id"`
	ProductoID     string  `json:"producto_id"`
	ProductoNombre string  `json:"producto_nombre,omitempty"`
	Tipo           string  `json:"tipo"`
	Cantidad       int     `json:"cantidad"`
	StockAnterior  int     `json:"stock_anterior"`
	StockNuevo     int     `json:"stock_nuevo"`
	Motivo         string  `json:"motivo"`
	SesionCajaID   *string `json:"sesion_caja_id,omitempty"`
	ReferenciaID   *string `json:"referencia_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

// ConciliacionStockResponse compares a product's stock with its ledger.
type ConciliacionStockResponse struct {
	ProductoID      string `json:"producto_id"`
	Stock           int    `json:"stock"`
	SumaMovimientos int    `json:"suma_movimientos"`
	Consistente     bool   `json:"consistente"`
}

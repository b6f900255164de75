package dto

import "github.com/shopspring/decimal"

type MarcarBoletaRequest struct {
	VentaID string `json:"venta_id" validate:"required,uuid"`
	Tipo    string `json:"tipo"     validate:"required,oneof=AFECTA EXENTA"`
	Folio   string `json:"folio"    validate:"max=40"`
}

// BoletaPendienteResponse is a cash sale of the open session still missing
// at least one receipt.
type BoletaPendienteResponse struct {
	VentaID        string          `json:"venta_id"`
	Total          decimal.Decimal `json:"total"`
	AfectoEfectivo decimal.Decimal `json:"afecto_efectivo"`
	ExentoEfectivo decimal.Decimal `json:"exento_efectivo"`
	FaltaAfecta    bool            `json:"falta_afecta"`
	FaltaExenta    bool            `json:"falta_exenta"`
	CreatedAt      string          `json:"created_at"`
}

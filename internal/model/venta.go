package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Venta is a completed sale. Never deleted: voiding flips Anulada and receipt
// marking appends Boletas. Total = TotalAfecto + TotalExento.
type Venta struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo         TipoVenta       `gorm:"type:varchar(10);not null"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalAfecto  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalExento  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// DescuentoPromos is informational; it is already netted out of Total.
	DescuentoPromos decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	NotaInterna     *string
	// MontoEfectivo is the cash-equivalent part of the payments.
	MontoEfectivo   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MontoNoEfectivo decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Anulada         bool       `gorm:"not null;default:false;index"`
	MotivoAnulacion *string
	AnuladaPor      *uuid.UUID `gorm:"type:uuid"`
	AnuladaAt       *time.Time
	CreatedAt       time.Time

	Items   []VentaItem   `gorm:"foreignKey:VentaID"`
	Pagos   []VentaPago   `gorm:"foreignKey:VentaID"`
	Boletas []VentaBoleta `gorm:"foreignKey:VentaID"`
	Usuario *Usuario      `gorm:"foreignKey:UsuarioID"`
}

// TieneBoleta reports whether a receipt of the given type was issued.
func (v *Venta) TieneBoleta(t TipoBoleta) bool {
	for _, b := range v.Boletas {
		if b.Tipo == t {
			return true
		}
	}
	return false
}

// VentaItem stores the server-resolved price of one line.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	NombreProducto string          `gorm:"not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Exento         bool            `gorm:"not null;default:false"`
	Mayorista      bool            `gorm:"not null;default:false"`
	EsPromo        bool            `gorm:"not null;default:false"`
	PromocionID    *uuid.UUID      `gorm:"type:uuid"`
}

type VentaPago struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Metodo  MetodoPago      `gorm:"type:varchar(20);not null"`
	Monto   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// VentaBoleta records a receipt issued outside the system for one tax
// category of a sale. Folio is the external receipt number.
type VentaBoleta struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	VentaID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Tipo      TipoBoleta `gorm:"type:varchar(10);not null"`
	Folio     string     `gorm:"type:varchar(40);not null"`
	UsuarioID uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// Voucher is an immutable copy of the request that produced a sale.
type Voucher struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	VentaID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	Contenido datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

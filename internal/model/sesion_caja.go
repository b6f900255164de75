package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SesionCaja is one till shift. Local is the main till, Vecina the secondary
// one. Accumulators only grow while ABIERTA; closing freezes them.
type SesionCaja struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UsuarioAperturaID uuid.UUID  `gorm:"type:uuid;not null"`
	UsuarioCierreID   *uuid.UUID `gorm:"type:uuid"`
	OpenedAt          time.Time  `gorm:"not null"`
	ClosedAt          *time.Time

	InicialLocal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	InicialVecina decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// TotalEfectivo sums EFECTIVO and GIRO payments.
	TotalEfectivo      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalDebito        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCredito       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalTransferencia decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalExento        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IngresosExtra      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Egresos            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MovimientosVecina  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	TicketsEfectivo      int `gorm:"not null;default:0"`
	TicketsDebito        int `gorm:"not null;default:0"`
	TicketsCredito       int `gorm:"not null;default:0"`
	TicketsTransferencia int `gorm:"not null;default:0"`

	// Computed on close.
	EsperadoLocal    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	EsperadoVecina   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	RealLocal        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	RealVecina       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiferenciaLocal  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiferenciaVecina *decimal.Decimal `gorm:"type:decimal(12,2)"`

	Estado EstadoSesion `gorm:"type:varchar(10);not null;default:'ABIERTA'"`

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

// TableName keeps the plural Spanish table name.
func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is an immutable cash ledger row. Manual rows feed
// IngresosExtra/Egresos; Sistema rows mirror a return or exchange whose effect
// was already applied to the channel totals.
type MovimientoCaja struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey"`
	SesionCajaID uuid.UUID          `gorm:"type:uuid;index;not null"`
	UsuarioID    uuid.UUID          `gorm:"type:uuid;not null"`
	Tipo         TipoMovimientoCaja `gorm:"type:varchar(10);not null"`
	Categoria    string             `gorm:"type:varchar(60);not null"`
	Monto        decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	Descripcion  *string
	ProveedorID  *uuid.UUID `gorm:"type:uuid"`
	Anulado      bool       `gorm:"not null;default:false"`
	Sistema      bool       `gorm:"not null;default:false"`
	ReferenciaID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

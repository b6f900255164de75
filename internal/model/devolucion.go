package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Devolucion is a partial or full refund of a sale, settled in the session
// that was open when it happened.
type Devolucion struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SesionCajaID  uuid.UUID       `gorm:"type:uuid;not null"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null"`
	Motivo        *string
	MetodoPago    MetodoPago      `gorm:"type:varchar(20);not null"`
	TotalDevuelto decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalExento   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt     time.Time

	Items []DevolucionItem `gorm:"foreignKey:DevolucionID"`
}

func (Devolucion) TableName() string { return "devoluciones" }

type DevolucionItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DevolucionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Exento         bool            `gorm:"not null;default:false"`
}

// Cambio swaps returned goods for new ones. Diferencia = TotalNuevo −
// TotalDevuelto is never negative; MetodoPago is set iff Diferencia > 0.
type Cambio struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SesionCajaID  uuid.UUID       `gorm:"type:uuid;not null"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null"`
	Motivo        *string
	TotalDevuelto decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalNuevo    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Diferencia    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago    *MetodoPago     `gorm:"type:varchar(20)"`
	CreatedAt     time.Time

	Devueltos  []CambioItemDevuelto  `gorm:"foreignKey:CambioID"`
	Entregados []CambioItemEntregado `gorm:"foreignKey:CambioID"`
}

func (Cambio) TableName() string { return "cambios" }

type CambioItemDevuelto struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CambioID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Exento         bool            `gorm:"not null;default:false"`
}

func (CambioItemDevuelto) TableName() string { return "cambio_items_devueltos" }

type CambioItemEntregado struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CambioID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	NombreProducto string          `gorm:"not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Exento         bool            `gorm:"not null;default:false"`
	Mayorista      bool            `gorm:"not null;default:false"`
}

func (CambioItemEntregado) TableName() string { return "cambio_items_entregados" }

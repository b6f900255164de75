package model

import (
	"time"

	"github.com/google/uuid"
)

// MovimientoStock registra cada cambio de stock en un producto.
// Producto.Stock siempre coincide con el StockNuevo del último movimiento.
type MovimientoStock struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	ProductoID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	UsuarioID     uuid.UUID           `gorm:"type:uuid;not null"`
	SesionCajaID  *uuid.UUID          `gorm:"type:uuid;index"`
	Tipo          TipoMovimientoStock `gorm:"type:varchar(20);not null"`
	Cantidad      int                 `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int                 `gorm:"not null"`
	StockNuevo    int                 `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // venta, devolucion or cambio
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }

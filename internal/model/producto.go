package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is the catalog entry the pricing resolver reads.
// Wholesale pricing applies when both PrecioMayorista and CantidadMayorista are set.
type Producto struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Codigo            string           `gorm:"uniqueIndex;not null"`
	Nombre            string           `gorm:"index;not null"`
	PrecioVenta       decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PrecioMayorista   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CantidadMayorista *int
	Exento            bool `gorm:"not null;default:false"`
	Stock             int  `gorm:"not null;default:0"`
	Activo            bool `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PrecioPara returns the unit price for qty units and whether the wholesale
// tier applied.
func (p *Producto) PrecioPara(qty int) (decimal.Decimal, bool) {
	if p.PrecioMayorista != nil && p.CantidadMayorista != nil &&
		p.PrecioMayorista.IsPositive() && *p.CantidadMayorista > 0 &&
		qty >= *p.CantidadMayorista {
		return *p.PrecioMayorista, true
	}
	return p.PrecioVenta, false
}

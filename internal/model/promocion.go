package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipoPromocionFija is the only promotion type the resolver prices.
const TipoPromocionFija = "FIJA"

// Promocion is a fixed-price bundle: the Detalles, sold together, cost
// PrecioPromocion instead of the sum of their unit prices.
type Promocion struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Nombre          string          `gorm:"not null"`
	Tipo            string          `gorm:"type:varchar(10);not null;default:'FIJA'"`
	PrecioPromocion decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Activa          bool            `gorm:"not null;default:true"`
	CreatedAt       time.Time

	Detalles []PromocionDetalle `gorm:"foreignKey:PromocionID"`
}

func (Promocion) TableName() string { return "promociones" }

// PromocionDetalle is one requirement line of a bundle.
type PromocionDetalle struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PromocionID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductoID  uuid.UUID `gorm:"type:uuid;not null"`
	Cantidad    int       `gorm:"not null"`
	EsGratis    bool      `gorm:"not null;default:false"`
}

func (PromocionDetalle) TableName() string { return "promocion_detalles" }

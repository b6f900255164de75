package repository

import (
	"context"

	"posmarket/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DevolucionRepository interface {
	CreateDevolucionTx(tx *gorm.DB, d *model.Devolucion) error
	CreateCambioTx(tx *gorm.DB, c *model.Cambio) error
	// CantidadesDevueltasTx sums, per product, what earlier returns and
	// exchanges already took back from the sale.
	CantidadesDevueltasTx(tx *gorm.DB, ventaID uuid.UUID) (map[uuid.UUID]int, error)
	ListDevoluciones(ctx context.Context, ventaID uuid.UUID) ([]model.Devolucion, error)
	ListCambios(ctx context.Context, ventaID uuid.UUID) ([]model.Cambio, error)
}

type devolucionRepo struct{ db *gorm.DB }

func NewDevolucionRepository(db *gorm.DB) DevolucionRepository { return &devolucionRepo{db: db} }

func (r *devolucionRepo) CreateDevolucionTx(tx *gorm.DB, d *model.Devolucion) error {
	return tx.Create(d).Error
}

func (r *devolucionRepo) CreateCambioTx(tx *gorm.DB, c *model.Cambio) error {
	return tx.Create(c).Error
}

type cantidadPorProducto struct {
	ProductoID uuid.UUID
	Cantidad   int
}

func (r *devolucionRepo) CantidadesDevueltasTx(tx *gorm.DB, ventaID uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int)

	var devueltas []cantidadPorProducto
	err := tx.Table("devolucion_items AS di").
		Select("di.producto_id AS producto_id, SUM(di.cantidad) AS cantidad").
		Joins("JOIN devoluciones d ON d.id = di.devolucion_id").
		Where("d.venta_id = ?", ventaID).
		Group("di.producto_id").
		Scan(&devueltas).Error
	if err != nil {
		return nil, err
	}

	var cambiadas []cantidadPorProducto
	err = tx.Table("cambio_items_devueltos AS ci").
		Select("ci.producto_id AS producto_id, SUM(ci.cantidad) AS cantidad").
		Joins("JOIN cambios c ON c.id = ci.cambio_id").
		Where("c.venta_id = ?", ventaID).
		Group("ci.producto_id").
		Scan(&cambiadas).Error
	if err != nil {
		return nil, err
	}

	for _, row := range append(devueltas, cambiadas...) {
		out[row.ProductoID] += row.Cantidad
	}
	return out, nil
}

func (r *devolucionRepo) ListDevoluciones(ctx context.Context, ventaID uuid.UUID) ([]model.Devolucion, error) {
	var out []model.Devolucion
	err := r.db.WithContext(ctx).Preload("Items").Where("venta_id = ?", ventaID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *devolucionRepo) ListCambios(ctx context.Context, ventaID uuid.UUID) ([]model.Cambio, error) {
	var out []model.Cambio
	err := r.db.WithContext(ctx).Preload("Devueltos").Preload("Entregados").
		Where("venta_id = ?", ventaID).Order("created_at ASC").Find(&out).Error
	return out, err
}

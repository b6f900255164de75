package repository

import (
	"context"
	"time"

	"posmarket/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VentaFilter narrows ListVentas. Zero values mean "no filter".
type VentaFilter struct {
	UsuarioID    *uuid.UUID
	SesionCajaID *uuid.UUID
	Desde        *time.Time
	Hasta        *time.Time
	Tipo         model.TipoVenta
	Estado       string // activas | anuladas | all
	Page         int
	Limit        int
}

// ResumenVentas aggregates the non-voided sales of a session.
type ResumenVentas struct {
	Cantidad    int64
	Total       decimal.Decimal
	TotalExento decimal.Decimal
}

type VentaRepository interface {
	CreateTx(tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindByIDForUpdateTx locks the sale row and preloads lines, payments and receipts.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	MarcarAnuladaTx(tx *gorm.DB, id uuid.UUID, usuarioID uuid.UUID, motivo *string, at time.Time) error
	List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error)

	CreateVoucherTx(tx *gorm.DB, v *model.Voucher) error
	FindVoucher(ctx context.Context, ventaID uuid.UUID) (*model.Voucher, error)

	CreateBoletaTx(tx *gorm.DB, b *model.VentaBoleta) error
	// ListConEfectivo returns NORMAL, non-voided sales of the session paid at
	// least partly in cash, with their receipts.
	ListConEfectivo(ctx context.Context, sesionCajaID uuid.UUID) ([]model.Venta, error)
	Resumen(ctx context.Context, sesionCajaID uuid.UUID) (*ResumenVentas, error)
	Ultima(ctx context.Context, sesionCajaID uuid.UUID) (*model.Venta, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) CreateTx(tx *gorm.DB, v *model.Venta) error {
	return tx.Omit("Usuario").Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Pagos").Preload("Boletas").Preload("Usuario").
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").Preload("Pagos").Preload("Boletas").
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) MarcarAnuladaTx(tx *gorm.DB, id uuid.UUID, usuarioID uuid.UUID, motivo *string, at time.Time) error {
	return tx.Model(&model.Venta{}).Where("id = ? AND anulada = ?", id, false).Updates(map[string]interface{}{
		"anulada":          true,
		"anulada_por":      usuarioID,
		"motivo_anulacion": motivo,
		"anulada_at":       at,
	}).Error
}

func (r *ventaRepo) List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.UsuarioID != nil {
		q = q.Where("usuario_id = ?", *filter.UsuarioID)
	}
	if filter.SesionCajaID != nil {
		q = q.Where("sesion_caja_id = ?", *filter.SesionCajaID)
	}
	if filter.Desde != nil {
		q = q.Where("created_at >= ?", *filter.Desde)
	}
	if filter.Hasta != nil {
		q = q.Where("created_at < ?", *filter.Hasta)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	switch filter.Estado {
	case "anuladas":
		q = q.Where("anulada = ?", true)
	case "all":
	default:
		q = q.Where("anulada = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ventas []model.Venta
	err := q.Preload("Items").Preload("Pagos").Preload("Boletas").Preload("Usuario").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&ventas).Error
	return ventas, total, err
}

func (r *ventaRepo) CreateVoucherTx(tx *gorm.DB, v *model.Voucher) error {
	return tx.Create(v).Error
}

func (r *ventaRepo) FindVoucher(ctx context.Context, ventaID uuid.UUID) (*model.Voucher, error) {
	var v model.Voucher
	err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).First(&v).Error
	return &v, err
}

func (r *ventaRepo) CreateBoletaTx(tx *gorm.DB, b *model.VentaBoleta) error {
	return tx.Create(b).Error
}

func (r *ventaRepo) ListConEfectivo(ctx context.Context, sesionCajaID uuid.UUID) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ? AND tipo = ? AND anulada = ? AND monto_efectivo > 0",
			sesionCajaID, model.VentaNormal, false).
		Preload("Boletas").
		Order("created_at ASC").
		Find(&ventas).Error
	return ventas, err
}

func (r *ventaRepo) Resumen(ctx context.Context, sesionCajaID uuid.UUID) (*ResumenVentas, error) {
	var res ResumenVentas
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Select("COUNT(*) AS cantidad, COALESCE(SUM(total), 0) AS total, COALESCE(SUM(total_exento), 0) AS total_exento").
		Where("sesion_caja_id = ? AND anulada = ?", sesionCajaID, false).
		Scan(&res).Error
	return &res, err
}

func (r *ventaRepo) Ultima(ctx context.Context, sesionCajaID uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ? AND anulada = ?", sesionCajaID, false).
		Order("created_at DESC").
		Limit(1).Find(&v).Error
	if err != nil || v.ID == uuid.Nil {
		return nil, err
	}
	return &v, nil
}

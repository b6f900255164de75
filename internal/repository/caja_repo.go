package repository

import (
	"context"
	"errors"

	"posmarket/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error
	// FindSesionAbiertaTx returns (nil, nil) when no session is open.
	FindSesionAbiertaTx(tx *gorm.DB) (*model.SesionCaja, error)
	// LockSesionAbiertaTx reads the open session with SELECT … FOR UPDATE.
	// Returns (nil, nil) when none is open.
	LockSesionAbiertaTx(tx *gorm.DB) (*model.SesionCaja, error)
	FindSesionAbierta(ctx context.Context) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	ListSesiones(ctx context.Context, limit int) ([]model.SesionCaja, error)
	UpdateSesionTx(tx *gorm.DB, s *model.SesionCaja) error

	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error

	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Create(s).Error
}

func (r *cajaRepo) FindSesionAbiertaTx(tx *gorm.DB) (*model.SesionCaja, error) {
	return firstOrNil(tx.Where("estado = ?", model.SesionAbierta))
}

func (r *cajaRepo) LockSesionAbiertaTx(tx *gorm.DB) (*model.SesionCaja, error) {
	return firstOrNil(tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("estado = ?", model.SesionAbierta))
}

func (r *cajaRepo) FindSesionAbierta(ctx context.Context) (*model.SesionCaja, error) {
	return firstOrNil(r.db.WithContext(ctx).Where("estado = ?", model.SesionAbierta))
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Preload("Movimientos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *cajaRepo) ListSesiones(ctx context.Context, limit int) ([]model.SesionCaja, error) {
	var sesiones []model.SesionCaja
	err := r.db.WithContext(ctx).Order("opened_at DESC").Limit(limit).Find(&sesiones).Error
	return sesiones, err
}

func (r *cajaRepo) UpdateSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Omit("Movimientos").Save(s).Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func firstOrNil(q *gorm.DB) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := q.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

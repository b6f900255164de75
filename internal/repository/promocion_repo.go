package repository

import (
	"context"
	"errors"

	"posmarket/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromocionRepository interface {
	Create(ctx context.Context, p *model.Promocion) error
	// FindByIDTx returns (nil, nil) when the promotion does not exist.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Promocion, error)
}

type promocionRepo struct{ db *gorm.DB }

func NewPromocionRepository(db *gorm.DB) PromocionRepository { return &promocionRepo{db: db} }

func (r *promocionRepo) Create(ctx context.Context, p *model.Promocion) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *promocionRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Promocion, error) {
	var p model.Promocion
	err := tx.Preload("Detalles").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

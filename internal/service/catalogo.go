package service

import (
	"context"

	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// catalogoTx reads the catalog through the given transaction (or the plain
// connection for previews).
type catalogoTx struct {
	tx          *gorm.DB
	productos   repository.ProductoRepository
	promociones repository.PromocionRepository
}

func (c catalogoTx) Producto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	return c.productos.FindByIDTx(c.tx.WithContext(ctx), id)
}

func (c catalogoTx) ProductoPorCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	return c.productos.FindByCodigoTx(c.tx.WithContext(ctx), codigo)
}

func (c catalogoTx) Promocion(ctx context.Context, id uuid.UUID) (*model.Promocion, error) {
	return c.promociones.FindByIDTx(c.tx.WithContext(ctx), id)
}

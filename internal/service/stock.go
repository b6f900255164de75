package service

import (
	"errors"
	"fmt"

	"posmarket/internal/apperror"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoStockInput describes one ledger entry to append.
type MovimientoStockInput struct {
	ProductoID   uuid.UUID
	UsuarioID    uuid.UUID
	SesionCajaID *uuid.UUID
	Tipo         model.TipoMovimientoStock
	Cantidad     int // signed delta
	Motivo       string
	ReferenciaID *uuid.UUID
}

// StockLedger keeps Producto.Stock and the movement log in lockstep. It never
// rejects a decrement for lack of stock.
type StockLedger struct {
	productos   repository.ProductoRepository
	movimientos repository.MovimientoStockRepository
}

func NewStockLedger(productos repository.ProductoRepository, movimientos repository.MovimientoStockRepository) *StockLedger {
	return &StockLedger{productos: productos, movimientos: movimientos}
}

// RegistrarTx locks the product row, writes the new stock and appends the
// movement with before/after values.
func (l *StockLedger) RegistrarTx(tx *gorm.DB, in MovimientoStockInput) (*model.MovimientoStock, error) {
	anterior, err := l.productos.LockStockTx(tx, in.ProductoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", in.ProductoID)
	}
	if err != nil {
		return nil, fmt.Errorf("leyendo stock: %w", err)
	}
	nuevo := anterior + in.Cantidad
	if err := l.productos.SetStockTx(tx, in.ProductoID, nuevo); err != nil {
		return nil, fmt.Errorf("actualizando stock: %w", err)
	}
	mov := &model.MovimientoStock{
		ProductoID:    in.ProductoID,
		UsuarioID:     in.UsuarioID,
		SesionCajaID:  in.SesionCajaID,
		Tipo:          in.Tipo,
		Cantidad:      in.Cantidad,
		StockAnterior: anterior,
		StockNuevo:    nuevo,
		Motivo:        in.Motivo,
		ReferenciaID:  in.ReferenciaID,
	}
	if err := l.movimientos.CreateTx(tx, mov); err != nil {
		return nil, fmt.Errorf("registrando movimiento de stock: %w", err)
	}
	return mov, nil
}

package service

import (
	"context"
	"testing"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventario_CrearProductoConStockInicial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.inventario.CrearProducto(ctx, f.admin, dto.CrearProductoRequest{
		Codigo:       " AGU001 ",
		Nombre:       "Agua mineral",
		PrecioVenta:  dec(800),
		StockInicial: 24,
	})
	require.NoError(t, err)
	assert.Equal(t, "AGU001", p.Codigo)
	assert.Equal(t, 24, p.Stock)

	movs, err := f.inventario.ListarMovimientos(ctx, dto.MovimientoStockFilter{ProductoID: p.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, movs.Total)
	assert.Equal(t, string(model.StockAjuste), movs.Data[0].Tipo)
	assert.Equal(t, 0, movs.Data[0].StockAnterior)
	assert.Equal(t, 24, movs.Data[0].StockNuevo)

	conc, err := f.inventario.ConciliarStock(ctx, uuid.MustParse(p.ID))
	require.NoError(t, err)
	assert.True(t, conc.Consistente)
	assert.Equal(t, 24, conc.SumaMovimientos)
}

func TestInventario_CrearProductoInvalido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.inventario.CrearProducto(ctx, f.admin, dto.CrearProductoRequest{Codigo: "X", Nombre: "X", PrecioVenta: dec(0)})
	assert.True(t, apperror.Is(err, apperror.InvalidAmount))

	_, err = f.inventario.CrearProducto(ctx, f.admin, dto.CrearProductoRequest{Codigo: "X", Nombre: "X", PrecioVenta: dec(10), StockInicial: -1})
	assert.True(t, apperror.Is(err, apperror.InvalidQuantity))

	var n int64
	require.NoError(t, f.db.Model(&model.Producto{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestInventario_AjustarStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.inventario.CrearProducto(ctx, f.admin, dto.CrearProductoRequest{Codigo: "A", Nombre: "Arroz", PrecioVenta: dec(1000), StockInicial: 5})
	require.NoError(t, err)

	mov, err := f.inventario.AjustarStock(ctx, f.admin, dto.AjusteStockRequest{ProductoID: p.ID, Delta: -7, Motivo: "merma"})
	require.NoError(t, err)
	assert.Equal(t, 5, mov.StockAnterior)
	assert.Equal(t, -2, mov.StockNuevo, "negative stock is allowed")

	_, err = f.inventario.AjustarStock(ctx, f.admin, dto.AjusteStockRequest{ProductoID: p.ID, Delta: 0, Motivo: "nada"})
	assert.True(t, apperror.Is(err, apperror.InvalidQuantity))

	_, err = f.inventario.AjustarStock(ctx, f.admin, dto.AjusteStockRequest{ProductoID: uuid.NewString(), Delta: 1, Motivo: "x"})
	assert.True(t, apperror.Is(err, apperror.ProductNotFound))

	id := uuid.MustParse(p.ID)
	f.assertLedger(t, id, 0)
	conc, err := f.inventario.ConciliarStock(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, -2, conc.Stock)
	assert.True(t, conc.Consistente)
}

func TestInventario_ConciliarDetectaDescuadre(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)

	conc, err := f.inventario.ConciliarStock(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, conc.Consistente, "stock set without ledger entries")
	assert.Equal(t, 10, conc.Stock)
	assert.Zero(t, conc.SumaMovimientos)

	_, err = f.inventario.ConciliarStock(context.Background(), uuid.New())
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestInventario_MovimientosDeVenta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.inventario.CrearProducto(ctx, f.admin, dto.CrearProductoRequest{Codigo: "A", Nombre: "Arroz", PrecioVenta: dec(1000), StockInicial: 10})
	require.NoError(t, err)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{{ProductoID: p.ID, Cantidad: 3}}, pago("EFECTIVO", 3000))

	movs, err := f.inventario.ListarMovimientos(ctx, dto.MovimientoStockFilter{ReferenciaID: v.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, movs.Total)
	assert.Equal(t, string(model.StockVenta), movs.Data[0].Tipo)
	assert.Equal(t, -3, movs.Data[0].Cantidad)
	require.NotNil(t, movs.Data[0].SesionCajaID)
	assert.Equal(t, v.SesionCajaID, *movs.Data[0].SesionCajaID)

	movs, err = f.inventario.ListarMovimientos(ctx, dto.MovimientoStockFilter{Tipo: string(model.StockAjuste), Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, movs.Total)

	_, err = f.inventario.ListarMovimientos(ctx, dto.MovimientoStockFilter{ProductoID: "nope"})
	assert.True(t, apperror.Is(err, apperror.InvalidCategory))
}

func TestInventario_CrearPromocion(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	b := f.producto(t, "B", 500, false, 10)
	ctx := context.Background()

	promo, err := f.inventario.CrearPromocion(ctx, dto.CrearPromocionRequest{
		Nombre:          "Once",
		PrecioPromocion: dec(1200),
		Detalles: []dto.PromocionDetalleRequest{
			{ProductoID: a.ID.String(), Cantidad: 1},
			{ProductoID: b.ID.String(), Cantidad: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TipoPromocionFija, promo.Tipo)
	assert.True(t, promo.Activa)

	// The new bundle prices a sale right away.
	f.abrir(t, 0, 0)
	pid := promo.ID
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{
		{ProductoID: a.ID.String(), Cantidad: 1, PromoID: &pid},
		{ProductoID: b.ID.String(), Cantidad: 1, PromoID: &pid},
	}, pago("EFECTIVO", 1200))
	assertDec(t, 1200, v.Total)

	_, err = f.inventario.CrearPromocion(ctx, dto.CrearPromocionRequest{
		Nombre:          "Fantasma",
		PrecioPromocion: dec(100),
		Detalles:        []dto.PromocionDetalleRequest{{ProductoID: uuid.NewString(), Cantidad: 1}},
	})
	assert.True(t, apperror.Is(err, apperror.ProductNotFound))

	_, err = f.inventario.CrearPromocion(ctx, dto.CrearPromocionRequest{
		Nombre:          "Gratis",
		PrecioPromocion: dec(0),
		Detalles:        []dto.PromocionDetalleRequest{{ProductoID: a.ID.String(), Cantidad: 1}},
	})
	assert.True(t, apperror.Is(err, apperror.InvalidAmount))
}

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

func devuelto(p *model.Producto, cantidad int) dto.ItemDevueltoRequest {
	return dto.ItemDevueltoRequest{ProductoID: p.ID.String(), Cantidad: cantidad}
}

func (f *fixture) movimientosSistema(t *testing.T, categoria string) []model.MovimientoCaja {
	t.Helper()
	var out []model.MovimientoCaja
	require.NoError(t, f.db.Where("sistema = ? AND categoria = ?", true, categoria).Find(&out).Error)
	return out
}

func TestDevolucion_ParcialYExceso(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 3)}, pago("EFECTIVO", 3000))
	id := uuid.MustParse(v.ID)
	ctx := context.Background()

	dev, err := f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 1)},
		MetodoPago: "efectivo",
	})
	require.NoError(t, err)
	assertDec(t, 1000, dev.TotalDevuelto)
	assert.Equal(t, "EFECTIVO", dev.MetodoPago)

	s := f.sesionAbierta(t)
	assertDec(t, 2000, s.TotalEfectivo)
	assertDec(t, 0, s.Egresos, "system movements stay out of the manual buckets")
	assert.Equal(t, 8, f.stock(t, a.ID))
	f.assertLedger(t, a.ID, 10)

	movs := f.movimientosSistema(t, model.CategoriaDevolucion)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovimientoEgreso, movs[0].Tipo)
	assertDec(t, 1000, movs[0].Monto)

	_, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 3)},
		MetodoPago: "EFECTIVO",
	})
	assert.True(t, apperror.Is(err, apperror.OverReturn))

	_, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 2)},
		MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)

	_, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 1)},
		MetodoPago: "EFECTIVO",
	})
	assert.True(t, apperror.Is(err, apperror.OverReturn), "nothing left to return")

	assertDec(t, 0, f.sesionAbierta(t).TotalEfectivo)
	assert.Equal(t, 10, f.stock(t, a.ID))
}

func TestDevolucion_Exento(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	e := f.producto(t, "E", 500, true, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1), item(e, 2)}, pago("EFECTIVO", 2000))

	dev, err := f.devoluciones.DevolverParcial(context.Background(), f.cajero, uuid.MustParse(v.ID), dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(e, 1)},
		MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)
	assertDec(t, 500, dev.TotalExento)
	assertDec(t, 500, f.sesionAbierta(t).TotalExento)
}

func TestDevolucion_Rechazos(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	b := f.producto(t, "B", 1000, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("EFECTIVO", 1000))
	id := uuid.MustParse(v.ID)
	ctx := context.Background()

	tests := []struct {
		name string
		id   uuid.UUID
		req  dto.DevolucionRequest
		kind apperror.Kind
	}{
		{"unknown method", id, dto.DevolucionRequest{Items: []dto.ItemDevueltoRequest{devuelto(a, 1)}, MetodoPago: "VALE"}, apperror.InvalidCategory},
		{"no items", id, dto.DevolucionRequest{MetodoPago: "EFECTIVO"}, apperror.InvalidQuantity},
		{"zero quantity", id, dto.DevolucionRequest{Items: []dto.ItemDevueltoRequest{devuelto(a, 0)}, MetodoPago: "EFECTIVO"}, apperror.InvalidQuantity},
		{"product not in sale", id, dto.DevolucionRequest{Items: []dto.ItemDevueltoRequest{devuelto(b, 1)}, MetodoPago: "EFECTIVO"}, apperror.ProductNotFound},
		{"unknown sale", uuid.New(), dto.DevolucionRequest{Items: []dto.ItemDevueltoRequest{devuelto(a, 1)}, MetodoPago: "EFECTIVO"}, apperror.NotFound},
		{"merged duplicates exceed", id, dto.DevolucionRequest{Items: []dto.ItemDevueltoRequest{devuelto(a, 1), devuelto(a, 1)}, MetodoPago: "EFECTIVO"}, apperror.OverReturn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.devoluciones.DevolverParcial(ctx, f.cajero, tt.id, tt.req)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
	assert.Equal(t, 9, f.stock(t, a.ID))
}

func TestDevolucion_VentaAnulada(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("EFECTIVO", 1000))
	id := uuid.MustParse(v.ID)
	ctx := context.Background()

	_, err := f.ventas.AnularVenta(ctx, f.cajero, id, nil)
	require.NoError(t, err)

	_, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 1)},
		MetodoPago: "EFECTIVO",
	})
	assert.True(t, apperror.Is(err, apperror.AlreadyVoided))
}

func TestDevolucion_EnSesionPosterior(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 2)}, pago("DEBITO", 2000))
	f.cerrar(t, 0, 0)
	nueva := f.abrir(t, 5000, 0)

	dev, err := f.devoluciones.DevolverParcial(context.Background(), f.cajero, uuid.MustParse(v.ID), dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 1)},
		MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)
	assert.Equal(t, nueva.ID, dev.SesionCajaID, "settles in the session open now")

	cerrada := f.cerrar(t, 4000, 0)
	assertDec(t, 4000, *cerrada.EsperadoLocal)
}

func TestCambio_DiferenciaNegativa(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 3000, false, 10)
	b := f.producto(t, "B", 2500, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("EFECTIVO", 3000))

	_, err := f.devoluciones.CrearCambio(context.Background(), f.cajero, uuid.MustParse(v.ID), dto.CambioRequest{
		Devueltos:  []dto.ItemDevueltoRequest{devuelto(a, 1)},
		Entregados: []dto.ItemVentaRequest{item(b, 1)},
	})
	assert.True(t, apperror.Is(err, apperror.NegativeExchangeDifference))
	assert.Equal(t, 9, f.stock(t, a.ID))
	assert.Equal(t, 10, f.stock(t, b.ID))
}

func TestCambio_SinDiferencia(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	b := f.producto(t, "B", 1000, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("EFECTIVO", 1000))

	c, err := f.devoluciones.CrearCambio(context.Background(), f.cajero, uuid.MustParse(v.ID), dto.CambioRequest{
		Devueltos:  []dto.ItemDevueltoRequest{devuelto(a, 1)},
		Entregados: []dto.ItemVentaRequest{item(b, 1)},
	})
	require.NoError(t, err)
	assertDec(t, 0, c.Diferencia)
	assert.Nil(t, c.MetodoPago)

	s := f.sesionAbierta(t)
	assertDec(t, 1000, s.TotalEfectivo)
	assert.Equal(t, 1, s.TicketsEfectivo)
	assert.Empty(t, f.movimientosSistema(t, model.CategoriaCambio))
	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 9, f.stock(t, b.ID))
	f.assertLedger(t, a.ID, 10)
	f.assertLedger(t, b.ID, 10)
}

func TestCambio_DiferenciaPositiva(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	b := f.producto(t, "B", 1800, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 2)}, pago("EFECTIVO", 2000))
	id := uuid.MustParse(v.ID)
	ctx := context.Background()
	req := dto.CambioRequest{
		Devueltos:  []dto.ItemDevueltoRequest{devuelto(a, 1)},
		Entregados: []dto.ItemVentaRequest{item(b, 1)},
	}

	_, err := f.devoluciones.CrearCambio(ctx, f.cajero, id, req)
	assert.True(t, apperror.Is(err, apperror.InvalidCategory), "difference needs a payment method")

	metodo := "debito"
	req.MetodoPago = &metodo
	c, err := f.devoluciones.CrearCambio(ctx, f.cajero, id, req)
	require.NoError(t, err)
	assertDec(t, 800, c.Diferencia)
	require.NotNil(t, c.MetodoPago)
	assert.Equal(t, "DEBITO", *c.MetodoPago)

	s := f.sesionAbierta(t)
	assertDec(t, 800, s.TotalDebito)
	assert.Equal(t, 1, s.TicketsDebito)
	assertDec(t, 0, s.IngresosExtra)

	movs := f.movimientosSistema(t, model.CategoriaCambio)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovimientoIngreso, movs[0].Tipo)
	assertDec(t, 800, movs[0].Monto)

	// The exchanged unit is no longer returnable.
	_, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 2)},
		MetodoPago: "EFECTIVO",
	})
	assert.True(t, apperror.Is(err, apperror.OverReturn))
}

func TestCambio_SinEntregados(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	_, err := f.devoluciones.CrearCambio(context.Background(), f.cajero, uuid.New(), dto.CambioRequest{
		Devueltos: []dto.ItemDevueltoRequest{devuelto(a, 1)},
	})
	assert.True(t, apperror.Is(err, apperror.InvalidQuantity))
}

func TestValorarDevolucion_VariasLineas(t *testing.T) {
	p := uuid.New()
	e := uuid.New()
	v := &model.Venta{
		ID: uuid.New(),
		Items: []model.VentaItem{
			{ProductoID: p, Cantidad: 2, PrecioUnitario: dec(1000)},
			{ProductoID: e, Cantidad: 1, PrecioUnitario: dec(400), Exento: true},
			{ProductoID: p, Cantidad: 3, PrecioUnitario: dec(800)},
		},
	}

	val, err := valorarDevolucion(v, []pedidoDevolucion{{productoID: p, cantidad: 3}, {productoID: e, cantidad: 1}}, nil)
	require.NoError(t, err)
	require.Len(t, val.lineas, 3)
	assertDec(t, 1000, val.lineas[0].PrecioUnitario)
	assert.Equal(t, 2, val.lineas[0].Cantidad)
	assertDec(t, 800, val.lineas[1].PrecioUnitario)
	assert.Equal(t, 1, val.lineas[1].Cantidad)
	assertDec(t, 3200, val.total)
	assertDec(t, 400, val.exento)

	// One unit already back: it consumes the first line.
	val, err = valorarDevolucion(v, []pedidoDevolucion{{productoID: p, cantidad: 2}}, map[uuid.UUID]int{p: 1})
	require.NoError(t, err)
	assertDec(t, 1800, val.total)

	_, err = valorarDevolucion(v, []pedidoDevolucion{{productoID: p, cantidad: 5}}, map[uuid.UUID]int{p: 1})
	assert.True(t, apperror.Is(err, apperror.OverReturn))
}

func TestParsePedidos_Fusiona(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	out, err := parsePedidos([]dto.ItemDevueltoRequest{
		{ProductoID: a.String(), Cantidad: 1},
		{ProductoID: b.String(), Cantidad: 2},
		{ProductoID: a.String(), Cantidad: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []pedidoDevolucion{{productoID: a, cantidad: 4}, {productoID: b, cantidad: 2}}, out)

	_, err = parsePedidos([]dto.ItemDevueltoRequest{{ProductoID: "x", Cantidad: 1}})
	assert.True(t, apperror.Is(err, apperror.ProductNotFound))
}

func TestDevolucion_Historial(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	b := f.producto(t, "B", 1000, false, 10)
	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 3)}, pago("EFECTIVO", 3000))
	id := uuid.MustParse(v.ID)
	ctx := context.Background()

	h, err := f.devoluciones.Historial(ctx, f.cajero, id)
	require.NoError(t, err)
	assert.Empty(t, h.Devoluciones)
	assert.Empty(t, h.Cambios)

	_, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items: []dto.ItemDevueltoRequest{devuelto(a, 1)}, MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)
	_, err = f.devoluciones.CrearCambio(ctx, f.cajero, id, dto.CambioRequest{
		Devueltos:  []dto.ItemDevueltoRequest{devuelto(a, 1)},
		Entregados: []dto.ItemVentaRequest{item(b, 1)},
	})
	require.NoError(t, err)

	h, err = f.devoluciones.Historial(ctx, f.admin, id)
	require.NoError(t, err)
	assert.Equal(t, v.ID, h.VentaID)
	require.Len(t, h.Devoluciones, 1)
	require.Len(t, h.Devoluciones[0].Items, 1)
	assert.Equal(t, 1, h.Devoluciones[0].Items[0].Cantidad)
	require.Len(t, h.Cambios, 1)
	require.Len(t, h.Cambios[0].Entregados, 1)
	assertDec(t, 0, h.Cambios[0].Diferencia)

	_, err = f.devoluciones.Historial(ctx, f.otro, id)
	assert.True(t, apperror.Is(err, apperror.NotFound), "other cashiers do not see the sale")
	_, err = f.devoluciones.Historial(ctx, f.admin, uuid.New())
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func (f *fixture) venderInterna(t *testing.T, total int64, items []dto.ItemVentaRequest, pagos ...dto.PagoRequest) *dto.VentaResponse {
	t.Helper()
	override := dec(total)
	v, err := f.ventas.CrearVenta(context.Background(), f.cajero, dto.CrearVentaRequest{
		Tipo:         "INTERNA",
		Items:        items,
		Pagos:        pagos,
		TotalInterno: &override,
	})
	require.NoError(t, err)
	return v
}

func TestDevolucion_VentaInterna(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	e := f.producto(t, "E", 500, true, 10)
	f.abrir(t, 0, 0)
	v := f.venderInterna(t, 1200, []dto.ItemVentaRequest{item(a, 1), item(e, 1)}, pago("EFECTIVO", 1200))
	id := uuid.MustParse(v.ID)
	ctx := context.Background()

	s := f.sesionAbierta(t)
	assertDec(t, 1200, s.TotalEfectivo)
	assertDec(t, 1200, s.MovimientosVecina)
	assertDec(t, 0, s.TotalExento)

	dev, err := f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 1)},
		MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)
	assertDec(t, 800, dev.TotalDevuelto, "scaled to the charged total")
	assertDec(t, 0, dev.TotalExento)

	dev, err = f.devoluciones.DevolverParcial(ctx, f.cajero, id, dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(e, 1)},
		MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)
	assertDec(t, 400, dev.TotalDevuelto)
	assertDec(t, 0, dev.TotalExento, "internal sales carry no exempt share")

	s = f.sesionAbierta(t)
	assertDec(t, 0, s.TotalEfectivo)
	assertDec(t, 0, s.TotalExento)
	assertDec(t, 0, s.MovimientosVecina)
	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 10, f.stock(t, e.ID))
}

func TestCambio_VentaInterna(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	e := f.producto(t, "E", 500, true, 10)
	b := f.producto(t, "B", 900, true, 10)
	f.abrir(t, 0, 0)
	v := f.venderInterna(t, 1200, []dto.ItemVentaRequest{item(a, 1), item(e, 1)}, pago("EFECTIVO", 1200))
	metodo := "EFECTIVO"

	c, err := f.devoluciones.CrearCambio(context.Background(), f.cajero, uuid.MustParse(v.ID), dto.CambioRequest{
		Devueltos:  []dto.ItemDevueltoRequest{devuelto(a, 1)},
		Entregados: []dto.ItemVentaRequest{item(b, 1)},
		MetodoPago: &metodo,
	})
	require.NoError(t, err)
	assertDec(t, 800, c.TotalDevuelto)
	assertDec(t, 100, c.Diferencia)

	s := f.sesionAbierta(t)
	assertDec(t, 1300, s.TotalEfectivo)
	assertDec(t, 1300, s.MovimientosVecina)
	assertDec(t, 0, s.TotalExento)
}

func TestValorarDevolucion_InternaRedondeo(t *testing.T) {
	p := uuid.New()
	v := &model.Venta{
		ID:    uuid.New(),
		Tipo:  model.VentaInterna,
		Total: dec(1000),
		Items: []model.VentaItem{{ProductoID: p, Cantidad: 3, PrecioUnitario: dec(100), Exento: true}},
	}
	uno := []pedidoDevolucion{{productoID: p, cantidad: 1}}

	suma := dec(0)
	for previo, want := range []string{"333.33", "333.34", "333.33"} {
		val, err := valorarDevolucion(v, uno, map[uuid.UUID]int{p: previo})
		require.NoError(t, err)
		assert.Equal(t, want, val.total.StringFixed(2))
		assert.False(t, val.lineas[0].Exento)
		assert.True(t, val.exento.IsZero())
		suma = suma.Add(val.total)
	}
	assertDec(t, 1000, suma, "three single returns give back the whole charge")
}

func TestDevolucion_PromoFijaAPrecioUnitario(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	b := f.producto(t, "B", 500, false, 10)
	promo := f.promocion(t, 1200,
		model.PromocionDetalle{ProductoID: a.ID, Cantidad: 1},
		model.PromocionDetalle{ProductoID: b.ID, Cantidad: 1},
	)
	f.abrir(t, 0, 0)
	pid := promo.ID.String()
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{
		{ProductoID: a.ID.String(), Cantidad: 1, EsPromo: true, PromoID: &pid},
		{ProductoID: b.ID.String(), Cantidad: 1, EsPromo: true, PromoID: &pid},
	}, pago("EFECTIVO", 1200))
	assertDec(t, 300, v.DescuentoPromos)

	dev, err := f.devoluciones.DevolverParcial(context.Background(), f.cajero, uuid.MustParse(v.ID), dto.DevolucionRequest{
		Items:      []dto.ItemDevueltoRequest{devuelto(a, 1), devuelto(b, 1)},
		MetodoPago: "EFECTIVO",
	})
	require.NoError(t, err)
	assertDec(t, 1500, dev.TotalDevuelto, "bundle discount is not taken back")
	assertDec(t, -300, f.sesionAbierta(t).TotalEfectivo)
}

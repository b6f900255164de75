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

func TestBoletaPendiente(t *testing.T) {
	venta := func(total, exento, efectivo int64, boletas ...model.TipoBoleta) *model.Venta {
		v := &model.Venta{
			ID:            uuid.New(),
			Tipo:          model.VentaNormal,
			Total:         dec(total),
			TotalExento:   dec(exento),
			TotalAfecto:   dec(total - exento),
			MontoEfectivo: dec(efectivo),
		}
		for _, b := range boletas {
			v.Boletas = append(v.Boletas, model.VentaBoleta{Tipo: b, Folio: "1"})
		}
		return v
	}

	tests := []struct {
		name                   string
		venta                  *model.Venta
		afecto, exento         int64
		faltaAfecta, faltaExen bool
	}{
		{"all cash, mixed", venta(5000, 2000, 5000), 3000, 2000, true, true},
		{"cash covers exempt first", venta(5000, 2000, 2500), 500, 2000, true, true},
		{"cash below exempt", venta(5000, 2000, 1500), 0, 1500, false, true},
		{"taxable only", venta(3000, 0, 3000), 3000, 0, true, false},
		{"taxable already receipted", venta(3000, 0, 3000, model.BoletaAfecta), 3000, 0, false, false},
		{"both receipted", venta(5000, 2000, 5000, model.BoletaAfecta, model.BoletaExenta), 3000, 2000, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, pendiente := boletaPendiente(tt.venta)
			assertDec(t, tt.afecto, p.AfectoEfectivo)
			assertDec(t, tt.exento, p.ExentoEfectivo)
			assert.Equal(t, tt.faltaAfecta, p.FaltaAfecta)
			assert.Equal(t, tt.faltaExen, p.FaltaExenta)
			assert.Equal(t, tt.faltaAfecta || tt.faltaExen, pendiente)
		})
	}
}

func TestPendientesBoleta_IgnoraInternasYAnuladas(t *testing.T) {
	normal := model.Venta{ID: uuid.New(), Tipo: model.VentaNormal, Total: dec(100), TotalAfecto: dec(100), MontoEfectivo: dec(100)}
	interna := normal
	interna.ID, interna.Tipo = uuid.New(), model.VentaInterna
	anulada := normal
	anulada.ID, anulada.Anulada = uuid.New(), true

	out := pendientesBoleta([]model.Venta{interna, normal, anulada})
	require.Len(t, out, 1)
	assert.Equal(t, normal.ID.String(), out[0].VentaID)
}

func TestBoleta_MarcarYPendientes(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 3000, false, 10)
	e := f.producto(t, "E", 2000, true, 10)
	ctx := context.Background()

	_, err := f.boletas.PendientesBoleta(ctx)
	assert.True(t, apperror.Is(err, apperror.NoActiveSession))

	f.abrir(t, 0, 0)
	v := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1), item(e, 1)}, pago("EFECTIVO", 5000))
	f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("CREDITO", 3000))

	pend, err := f.boletas.PendientesBoleta(ctx)
	require.NoError(t, err)
	require.Len(t, pend, 1, "card-only sales need no receipt here")
	assert.True(t, pend[0].FaltaAfecta)
	assert.True(t, pend[0].FaltaExenta)

	res, err := f.boletas.MarcarBoleta(ctx, f.cajero, dto.MarcarBoletaRequest{VentaID: v.ID, Tipo: "afecta", Folio: " 1001 "})
	require.NoError(t, err)
	require.Len(t, res.Boletas, 1)
	assert.Equal(t, "1001", res.Boletas[0].Folio)

	_, err = f.boletas.MarcarBoleta(ctx, f.cajero, dto.MarcarBoletaRequest{VentaID: v.ID, Tipo: "AFECTA", Folio: "1002"})
	assert.True(t, apperror.Is(err, apperror.AlreadyReceipted))

	pend, err = f.boletas.PendientesBoleta(ctx)
	require.NoError(t, err)
	require.Len(t, pend, 1)
	assert.False(t, pend[0].FaltaAfecta)
	assert.True(t, pend[0].FaltaExenta)

	_, err = f.boletas.MarcarBoleta(ctx, f.cajero, dto.MarcarBoletaRequest{VentaID: v.ID, Tipo: "EXENTA", Folio: "77"})
	require.NoError(t, err)
	pend, err = f.boletas.PendientesBoleta(ctx)
	require.NoError(t, err)
	assert.Empty(t, pend)
}

func TestBoleta_Rechazos(t *testing.T) {
	f := newFixture(t)
	a := f.producto(t, "A", 1000, false, 10)
	f.abrir(t, 0, 0)
	ctx := context.Background()

	interna, err := f.ventas.CrearVenta(ctx, f.cajero, dto.CrearVentaRequest{
		Tipo:  "INTERNA",
		Items: []dto.ItemVentaRequest{item(a, 1)},
		Pagos: []dto.PagoRequest{pago("EFECTIVO", 1000)},
	})
	require.NoError(t, err)
	anulada := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("EFECTIVO", 1000))
	_, err = f.ventas.AnularVenta(ctx, f.cajero, uuid.MustParse(anulada.ID), nil)
	require.NoError(t, err)
	normal := f.vender(t, f.cajero, []dto.ItemVentaRequest{item(a, 1)}, pago("EFECTIVO", 1000))

	tests := []struct {
		name string
		req  dto.MarcarBoletaRequest
		kind apperror.Kind
	}{
		{"internal sale", dto.MarcarBoletaRequest{VentaID: interna.ID, Tipo: "AFECTA", Folio: "1"}, apperror.NotReceiptable},
		{"voided sale", dto.MarcarBoletaRequest{VentaID: anulada.ID, Tipo: "AFECTA", Folio: "1"}, apperror.AlreadyVoided},
		{"empty folio", dto.MarcarBoletaRequest{VentaID: normal.ID, Tipo: "AFECTA", Folio: "  "}, apperror.InvalidCategory},
		{"unknown type", dto.MarcarBoletaRequest{VentaID: normal.ID, Tipo: "FACTURA", Folio: "1"}, apperror.InvalidCategory},
		{"unknown sale", dto.MarcarBoletaRequest{VentaID: uuid.NewString(), Tipo: "AFECTA", Folio: "1"}, apperror.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.boletas.MarcarBoleta(ctx, f.cajero, tt.req)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

package service

import (
	"posmarket/internal/apperror"
	"posmarket/internal/model"

	"github.com/shopspring/decimal"
)

// Pago is one payment line as the sale engine sees it.
type Pago struct {
	Metodo model.MetodoPago
	Monto  decimal.Decimal
}

// TotalesPorCanal is the per-channel breakdown of a set of payments.
type TotalesPorCanal struct {
	Efectivo      decimal.Decimal // EFECTIVO + GIRO
	Debito        decimal.Decimal
	Credito       decimal.Decimal
	Transferencia decimal.Decimal
}

// Total of all channels.
func (t TotalesPorCanal) Total() decimal.Decimal {
	return t.Efectivo.Add(t.Debito).Add(t.Credito).Add(t.Transferencia)
}

// NoEfectivo is what was paid through card or transfer.
func (t TotalesPorCanal) NoEfectivo() decimal.Decimal {
	return t.Debito.Add(t.Credito).Add(t.Transferencia)
}

// Canal returns the accumulated amount for c.
func (t TotalesPorCanal) Canal(c model.Canal) decimal.Decimal {
	switch c {
	case model.CanalEfectivo:
		return t.Efectivo
	case model.CanalDebito:
		return t.Debito
	case model.CanalCredito:
		return t.Credito
	case model.CanalTransferencia:
		return t.Transferencia
	}
	return decimal.Zero
}

// ClasificarPagos groups payments by settlement channel. An unknown method
// fails with InvalidCategory.
func ClasificarPagos(pagos []Pago) (TotalesPorCanal, error) {
	t := TotalesPorCanal{
		Efectivo:      decimal.Zero,
		Debito:        decimal.Zero,
		Credito:       decimal.Zero,
		Transferencia: decimal.Zero,
	}
	for _, p := range pagos {
		c, ok := p.Metodo.Canal()
		if !ok {
			return TotalesPorCanal{}, apperror.Newf(apperror.InvalidCategory, "Método de pago inválido: %s", p.Metodo).
				With("metodo", p.Metodo)
		}
		switch c {
		case model.CanalEfectivo:
			t.Efectivo = t.Efectivo.Add(p.Monto)
		case model.CanalDebito:
			t.Debito = t.Debito.Add(p.Monto)
		case model.CanalCredito:
			t.Credito = t.Credito.Add(p.Monto)
		case model.CanalTransferencia:
			t.Transferencia = t.Transferencia.Add(p.Monto)
		}
	}
	return t, nil
}

func pagosDeVenta(v *model.Venta) []Pago {
	out := make([]Pago, 0, len(v.Pagos))
	for _, p := range v.Pagos {
		out = append(out, Pago{Metodo: p.Metodo, Monto: p.Monto})
	}
	return out
}

// validarPagos enforces the settlement rules of a sale:
// every amount > 0, Σ == total and, for NORMAL sales, card/transfer must not
// cover exempt goods.
func validarPagos(pagos []Pago, total, exento decimal.Decimal, tipo model.TipoVenta) (TotalesPorCanal, error) {
	for _, p := range pagos {
		if !p.Monto.IsPositive() {
			return TotalesPorCanal{}, apperror.New(apperror.InvalidAmount, "Cada pago debe ser mayor a cero").
				With("metodo", p.Metodo).With("monto", p.Monto)
		}
	}
	totales, err := ClasificarPagos(pagos)
	if err != nil {
		return TotalesPorCanal{}, err
	}
	suma := totales.Total()
	if !suma.Equal(total) {
		return TotalesPorCanal{}, apperror.New(apperror.PaymentMismatch, "La suma de los pagos no coincide con el total de la venta").
			With("total", total).With("pagado", suma)
	}
	if tipo == model.VentaNormal {
		afecto := total.Sub(exento)
		if totales.NoEfectivo().GreaterThan(afecto) {
			return TotalesPorCanal{}, apperror.New(apperror.ExemptPaymentViolation,
				"Los productos exentos solo pueden pagarse en efectivo o giro").
				With("no_efectivo", totales.NoEfectivo()).With("maximo", afecto)
		}
	}
	return totales, nil
}

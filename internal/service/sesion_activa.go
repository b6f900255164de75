package service

import (
	"fmt"

	"posmarket/internal/apperror"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SesionActiva is the row-locked OPEN session of the current transaction.
// Every mutation is written back immediately so a later failure in the same
// transaction rolls it back together with the rest.
type SesionActiva struct {
	tx     *gorm.DB
	repo   repository.CajaRepository
	Sesion *model.SesionCaja
}

// abrirHandle locks the OPEN session for the rest of tx. NoActiveSession when
// there is none.
func abrirHandle(tx *gorm.DB, repo repository.CajaRepository) (*SesionActiva, error) {
	s, err := repo.LockSesionAbiertaTx(tx)
	if err != nil {
		return nil, fmt.Errorf("bloqueando sesión de caja: %w", err)
	}
	if s == nil {
		return nil, apperror.NoSession()
	}
	return &SesionActiva{tx: tx, repo: repo, Sesion: s}, nil
}

func (h *SesionActiva) guardar() error {
	if err := h.repo.UpdateSesionTx(h.tx, h.Sesion); err != nil {
		return fmt.Errorf("actualizando sesión de caja: %w", err)
	}
	return nil
}

// sumarCanal adds monto to channel c and returns a pointer to its ticket
// counter.
func (h *SesionActiva) sumarCanal(c model.Canal, monto decimal.Decimal) *int {
	s := h.Sesion
	switch c {
	case model.CanalEfectivo:
		s.TotalEfectivo = s.TotalEfectivo.Add(monto)
		return &s.TicketsEfectivo
	case model.CanalDebito:
		s.TotalDebito = s.TotalDebito.Add(monto)
		return &s.TicketsDebito
	case model.CanalCredito:
		s.TotalCredito = s.TotalCredito.Add(monto)
		return &s.TicketsCredito
	case model.CanalTransferencia:
		s.TotalTransferencia = s.TotalTransferencia.Add(monto)
		return &s.TicketsTransferencia
	}
	return nil
}

var canales = []model.Canal{model.CanalEfectivo, model.CanalDebito, model.CanalCredito, model.CanalTransferencia}

// AplicarPagos adds a sale's classified payments. Each channel with a
// positive sum counts one ticket, however many payment rows fed it.
func (h *SesionActiva) AplicarPagos(t TotalesPorCanal, exento decimal.Decimal, tipo model.TipoVenta) error {
	for _, c := range canales {
		monto := t.Canal(c)
		tickets := h.sumarCanal(c, monto)
		if monto.IsPositive() && tickets != nil {
			*tickets++
		}
	}
	h.Sesion.TotalExento = h.Sesion.TotalExento.Add(exento)
	if tipo == model.VentaInterna {
		h.Sesion.MovimientosVecina = h.Sesion.MovimientosVecina.Add(t.Total())
	}
	return h.guardar()
}

// RevertirPagos undoes AplicarPagos for a voided sale. Ticket counters stay:
// they count tickets issued.
func (h *SesionActiva) RevertirPagos(t TotalesPorCanal, exento decimal.Decimal, tipo model.TipoVenta) error {
	for _, c := range canales {
		h.sumarCanal(c, t.Canal(c).Neg())
	}
	h.Sesion.TotalExento = h.Sesion.TotalExento.Sub(exento)
	if tipo == model.VentaInterna {
		h.Sesion.MovimientosVecina = h.Sesion.MovimientosVecina.Sub(t.Total())
	}
	return h.guardar()
}

// AplicarReembolso takes a refund out of channel c. tipo is the type of the
// sale being refunded.
func (h *SesionActiva) AplicarReembolso(c model.Canal, monto, exento decimal.Decimal, tipo model.TipoVenta) error {
	h.sumarCanal(c, monto.Neg())
	h.Sesion.TotalExento = h.Sesion.TotalExento.Sub(exento)
	if tipo == model.VentaInterna {
		h.Sesion.MovimientosVecina = h.Sesion.MovimientosVecina.Sub(monto)
	}
	return h.guardar()
}

// AplicarDiferencia records what a customer paid on top of an exchange.
// deltaExento may be negative when exempt goods went back.
func (h *SesionActiva) AplicarDiferencia(c model.Canal, monto, deltaExento decimal.Decimal, tipo model.TipoVenta) error {
	if monto.IsPositive() {
		if tickets := h.sumarCanal(c, monto); tickets != nil {
			*tickets++
		}
		if tipo == model.VentaInterna {
			h.Sesion.MovimientosVecina = h.Sesion.MovimientosVecina.Add(monto)
		}
	}
	h.Sesion.TotalExento = h.Sesion.TotalExento.Add(deltaExento)
	return h.guardar()
}

// AplicarMovimiento feeds a manual movement into the extra income/expense
// buckets.
func (h *SesionActiva) AplicarMovimiento(tipo model.TipoMovimientoCaja, monto decimal.Decimal) error {
	switch tipo {
	case model.MovimientoIngreso:
		h.Sesion.IngresosExtra = h.Sesion.IngresosExtra.Add(monto)
	case model.MovimientoEgreso:
		h.Sesion.Egresos = h.Sesion.Egresos.Add(monto)
	}
	return h.guardar()
}

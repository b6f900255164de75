package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetodoPago is the closed set of settlement channels a payment can use.
type MetodoPago string

const (
	MetodoEfectivo      MetodoPago = "EFECTIVO"
	MetodoGiro          MetodoPago = "GIRO"
	MetodoDebito        MetodoPago = "DEBITO"
	MetodoCredito       MetodoPago = "CREDITO"
	MetodoTransferencia MetodoPago = "TRANSFERENCIA"
)

// Canal groups payment methods by how the till reconciles them.
// EFECTIVO and GIRO both land in the cash-equivalent bucket.
type Canal int

const (
	CanalEfectivo Canal = iota + 1
	CanalDebito
	CanalCredito
	CanalTransferencia
)

// Canal reports the settlement channel of m; ok is false for unknown methods.
func (m MetodoPago) Canal() (c Canal, ok bool) {
	switch m {
	case MetodoEfectivo, MetodoGiro:
		return CanalEfectivo, true
	case MetodoDebito:
		return CanalDebito, true
	case MetodoCredito:
		return CanalCredito, true
	case MetodoTransferencia:
		return CanalTransferencia, true
	}
	return 0, false
}

func (m MetodoPago) Valid() bool {
	_, ok := m.Canal()
	return ok
}

// EsEfectivo is true for cash-equivalent methods.
func (m MetodoPago) EsEfectivo() bool {
	c, ok := m.Canal()
	return ok && c == CanalEfectivo
}

// TipoVenta: NORMAL sales are tax tracked, INTERNA sales move goods between tills.
type TipoVenta string

const (
	VentaNormal  TipoVenta = "NORMAL"
	VentaInterna TipoVenta = "INTERNA"
)

func (t TipoVenta) Valid() bool { return t == VentaNormal || t == VentaInterna }

// EstadoSesion of a cash session. ABIERTA → CERRADA, never back.
type EstadoSesion string

const (
	SesionAbierta EstadoSesion = "ABIERTA"
	SesionCerrada EstadoSesion = "CERRADA"
)

// TipoMovimientoCaja of a manual or system cash movement.
type TipoMovimientoCaja string

const (
	MovimientoIngreso TipoMovimientoCaja = "INGRESO"
	MovimientoEgreso  TipoMovimientoCaja = "EGRESO"
)

func (t TipoMovimientoCaja) Valid() bool { return t == MovimientoIngreso || t == MovimientoEgreso }

// Categories reserved for movements written by returns and exchanges.
const (
	CategoriaDevolucion = "DEVOLUCION"
	CategoriaCambio     = "CAMBIO"
)

// TipoMovimientoStock tags every stock ledger entry.
type TipoMovimientoStock string

const (
	StockVenta         TipoMovimientoStock = "VENTA"
	StockDevolucion    TipoMovimientoStock = "DEVOLUCION"
	StockAnulacion     TipoMovimientoStock = "ANULACION"
	StockCambioEntrada TipoMovimientoStock = "CAMBIO_ENTRADA"
	StockCambioSalida  TipoMovimientoStock = "CAMBIO_SALIDA"
	StockAjuste        TipoMovimientoStock = "AJUSTE"
)

// TipoBoleta is the tax category a receipt covers.
type TipoBoleta string

const (
	BoletaAfecta TipoBoleta = "AFECTA"
	BoletaExenta TipoBoleta = "EXENTA"
)

func (t TipoBoleta) Valid() bool { return t == BoletaAfecta || t == BoletaExenta }

// Roles
const (
	RolCajero        = "cajero"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)

// assignID fills a zero primary key before insert. Postgres also has a column
// default, SQLite does not.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate hooks, one per persisted entity.

func (s *SesionCaja) BeforeCreate(*gorm.DB) error          { assignID(&s.ID); return nil }
func (m *MovimientoCaja) BeforeCreate(*gorm.DB) error      { assignID(&m.ID); return nil }
func (v *Venta) BeforeCreate(*gorm.DB) error               { assignID(&v.ID); return nil }
func (i *VentaItem) BeforeCreate(*gorm.DB) error           { assignID(&i.ID); return nil }
func (p *VentaPago) BeforeCreate(*gorm.DB) error           { assignID(&p.ID); return nil }
func (b *VentaBoleta) BeforeCreate(*gorm.DB) error         { assignID(&b.ID); return nil }
func (v *Voucher) BeforeCreate(*gorm.DB) error             { assignID(&v.ID); return nil }
func (p *Producto) BeforeCreate(*gorm.DB) error            { assignID(&p.ID); return nil }
func (p *Promocion) BeforeCreate(*gorm.DB) error           { assignID(&p.ID); return nil }
func (d *PromocionDetalle) BeforeCreate(*gorm.DB) error    { assignID(&d.ID); return nil }
func (m *MovimientoStock) BeforeCreate(*gorm.DB) error     { assignID(&m.ID); return nil }
func (d *Devolucion) BeforeCreate(*gorm.DB) error          { assignID(&d.ID); return nil }
func (i *DevolucionItem) BeforeCreate(*gorm.DB) error      { assignID(&i.ID); return nil }
func (c *Cambio) BeforeCreate(*gorm.DB) error              { assignID(&c.ID); return nil }
func (i *CambioItemDevuelto) BeforeCreate(*gorm.DB) error  { assignID(&i.ID); return nil }
func (i *CambioItemEntregado) BeforeCreate(*gorm.DB) error { assignID(&i.ID); return nil }
func (u *Usuario) BeforeCreate(*gorm.DB) error             { assignID(&u.ID); return nil }

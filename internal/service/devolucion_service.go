package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/metrics"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DevolucionService handles returns and exchanges of past sales. Both settle
// in the session open now, which may differ from the sale's.
type DevolucionService interface {
	DevolverParcial(ctx context.Context, actor Actor, ventaID uuid.UUID, req dto.DevolucionRequest) (*dto.DevolucionResponse, error)
	CrearCambio(ctx context.Context, actor Actor, ventaID uuid.UUID, req dto.CambioRequest) (*dto.CambioResponse, error)
	Historial(ctx context.Context, actor Actor, ventaID uuid.UUID) (*dto.HistorialDevolucionesResponse, error)
}

type devolucionService struct {
	repo        repository.DevolucionRepository
	ventaRepo   repository.VentaRepository
	cajaRepo    repository.CajaRepository
	productos   repository.ProductoRepository
	promociones repository.PromocionRepository
	ledger      *StockLedger
	resolver    *Resolver
}

func NewDevolucionService(
	repo repository.DevolucionRepository,
	ventaRepo repository.VentaRepository,
	cajaRepo repository.CajaRepository,
	productos repository.ProductoRepository,
	promociones repository.PromocionRepository,
	ledger *StockLedger,
	resolver *Resolver,
) DevolucionService {
	return &devolucionService{
		repo:        repo,
		ventaRepo:   ventaRepo,
		cajaRepo:    cajaRepo,
		productos:   productos,
		promociones: promociones,
		ledger:      ledger,
		resolver:    resolver,
	}
}

// pedidoDevolucion is one requested product to take back.
type pedidoDevolucion struct {
	productoID uuid.UUID
	cantidad   int
}

// lineaDevuelta is a returned quantity valued at the price it was sold at.
type lineaDevuelta struct {
	ProductoID     uuid.UUID
	Cantidad       int
	PrecioUnitario decimal.Decimal
	Subtotal       decimal.Decimal
	Exento         bool
}

type valoracion struct {
	lineas []lineaDevuelta
	total  decimal.Decimal
	exento decimal.Decimal
}

// ── DevolverParcial ───────────────────────────────────────────────────────────

func (s *devolucionService) DevolverParcial(ctx context.Context, actor Actor, ventaID uuid.UUID, req dto.DevolucionRequest) (*dto.DevolucionResponse, error) {
	metodo := model.MetodoPago(strings.ToUpper(strings.TrimSpace(req.MetodoPago)))
	canal, ok := metodo.Canal()
	if !ok {
		return nil, apperror.Newf(apperror.InvalidCategory, "Método de pago inválido: %s", req.MetodoPago).
			With("metodo_pago", req.MetodoPago)
	}
	pedidos, err := parsePedidos(req.Items)
	if err != nil {
		return nil, err
	}

	var dev *model.Devolucion
	err = runTx(ctx, s.ventaRepo.DB(), func(tx *gorm.DB) error {
		v, err := s.ventaActiva(tx, ventaID)
		if err != nil {
			return err
		}
		h, err := abrirHandle(tx, s.cajaRepo)
		if err != nil {
			return err
		}
		devueltas, err := s.repo.CantidadesDevueltasTx(tx, v.ID)
		if err != nil {
			return fmt.Errorf("sumando devoluciones previas: %w", err)
		}
		val, err := valorarDevolucion(v, pedidos, devueltas)
		if err != nil {
			return err
		}

		dev = &model.Devolucion{
			ID:            uuid.New(),
			VentaID:       v.ID,
			SesionCajaID:  h.Sesion.ID,
			UsuarioID:     actor.UsuarioID,
			Motivo:        req.Motivo,
			MetodoPago:    metodo,
			TotalDevuelto: val.total,
			TotalExento:   val.exento,
		}
		for _, l := range val.lineas {
			dev.Items = append(dev.Items, model.DevolucionItem{
				ProductoID:     l.ProductoID,
				Cantidad:       l.Cantidad,
				PrecioUnitario: l.PrecioUnitario,
				Subtotal:       l.Subtotal,
				Exento:         l.Exento,
			})
		}
		if err := s.repo.CreateDevolucionTx(tx, dev); err != nil {
			return fmt.Errorf("registrando devolución: %w", err)
		}

		for _, l := range val.lineas {
			if err := s.moverStock(tx, actor, h, model.StockDevolucion, l.ProductoID, l.Cantidad, "Devolución", dev.ID); err != nil {
				return err
			}
		}

		if err := h.AplicarReembolso(canal, val.total, val.exento, v.Tipo); err != nil {
			return err
		}
		if val.total.IsPositive() {
			return s.movimientoSistema(tx, actor, h, model.MovimientoEgreso, model.CategoriaDevolucion, val.total, dev.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Reversiones.WithLabelValues(metrics.OpDevolucion).Inc()
	log.Info().Str("devolucion_id", dev.ID.String()).Str("venta_id", ventaID.String()).
		Str("metodo_pago", string(metodo)).Str("total", dev.TotalDevuelto.String()).Msg("devolución registrada")
	return devolucionToResponse(dev), nil
}

// ── CrearCambio ───────────────────────────────────────────────────────────────
// Returned goods are valued at the original sale prices, delivered goods at
// current catalog prices. The customer never gets money back here.

func (s *devolucionService) CrearCambio(ctx context.Context, actor Actor, ventaID uuid.UUID, req dto.CambioRequest) (*dto.CambioResponse, error) {
	pedidos, err := parsePedidos(req.Devueltos)
	if err != nil {
		return nil, err
	}
	entregados, err := itemsSolicitados(req.Entregados)
	if err != nil {
		return nil, err
	}
	if len(entregados) == 0 {
		return nil, apperror.New(apperror.InvalidQuantity, "El cambio debe entregar al menos un producto")
	}

	var cambio *model.Cambio
	err = runTx(ctx, s.ventaRepo.DB(), func(tx *gorm.DB) error {
		v, err := s.ventaActiva(tx, ventaID)
		if err != nil {
			return err
		}
		h, err := abrirHandle(tx, s.cajaRepo)
		if err != nil {
			return err
		}
		devueltas, err := s.repo.CantidadesDevueltasTx(tx, v.ID)
		if err != nil {
			return fmt.Errorf("sumando devoluciones previas: %w", err)
		}
		val, err := valorarDevolucion(v, pedidos, devueltas)
		if err != nil {
			return err
		}
		cat := catalogoTx{tx: tx, productos: s.productos, promociones: s.promociones}
		res, err := s.resolver.Calcular(ctx, cat, entregados)
		if err != nil {
			return err
		}

		diferencia := res.Total.Sub(val.total)
		if diferencia.IsNegative() {
			return apperror.New(apperror.NegativeExchangeDifference,
				"Los productos entregados no pueden valer menos que los devueltos").
				With("total_devuelto", val.total).With("total_nuevo", res.Total)
		}

		var metodo *model.MetodoPago
		var canal model.Canal
		if diferencia.IsPositive() {
			if req.MetodoPago == nil {
				return apperror.New(apperror.InvalidCategory, "Se requiere método de pago para la diferencia").
					With("diferencia", diferencia)
			}
			m := model.MetodoPago(strings.ToUpper(strings.TrimSpace(*req.MetodoPago)))
			c, ok := m.Canal()
			if !ok {
				return apperror.Newf(apperror.InvalidCategory, "Método de pago inválido: %s", *req.MetodoPago).
					With("metodo_pago", *req.MetodoPago)
			}
			metodo, canal = &m, c
		}

		cambio = nuevoCambio(actor, v.ID, h.Sesion.ID, req.Motivo, val, res, diferencia, metodo)
		if err := s.repo.CreateCambioTx(tx, cambio); err != nil {
			return fmt.Errorf("registrando cambio: %w", err)
		}

		for _, l := range val.lineas {
			if err := s.moverStock(tx, actor, h, model.StockCambioEntrada, l.ProductoID, l.Cantidad, "Cambio: devuelto", cambio.ID); err != nil {
				return err
			}
		}
		for _, l := range res.Lineas {
			if err := s.moverStock(tx, actor, h, model.StockCambioSalida, l.ProductoID, -l.Cantidad, "Cambio: entregado", cambio.ID); err != nil {
				return err
			}
		}

		deltaExento := res.TotalExento.Sub(val.exento)
		if v.Tipo == model.VentaInterna {
			deltaExento = decimal.Zero
		}
		if err := h.AplicarDiferencia(canal, diferencia, deltaExento, v.Tipo); err != nil {
			return err
		}
		if diferencia.IsPositive() {
			return s.movimientoSistema(tx, actor, h, model.MovimientoIngreso, model.CategoriaCambio, diferencia, cambio.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Reversiones.WithLabelValues(metrics.OpCambio).Inc()
	log.Info().Str("cambio_id", cambio.ID.String()).Str("venta_id", ventaID.String()).
		Str("diferencia", cambio.Diferencia.String()).Msg("cambio registrado")
	return cambioToResponse(cambio), nil
}

func nuevoCambio(actor Actor, ventaID, sesionID uuid.UUID, motivo *string, val *valoracion, res *Resolucion, diferencia decimal.Decimal, metodo *model.MetodoPago) *model.Cambio {
	c := &model.Cambio{
		ID:            uuid.New(),
		VentaID:       ventaID,
		SesionCajaID:  sesionID,
		UsuarioID:     actor.UsuarioID,
		Motivo:        motivo,
		TotalDevuelto: val.total,
		TotalNuevo:    res.Total,
		Diferencia:    diferencia,
		MetodoPago:    metodo,
	}
	for _, l := range val.lineas {
		c.Devueltos = append(c.Devueltos, model.CambioItemDevuelto{
			ProductoID:     l.ProductoID,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
			Exento:         l.Exento,
		})
	}
	for _, l := range res.Lineas {
		c.Entregados = append(c.Entregados, model.CambioItemEntregado{
			ProductoID:     l.ProductoID,
			NombreProducto: l.Nombre,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
			Exento:         l.Exento,
			Mayorista:      l.Mayorista,
		})
	}
	return c
}

// ── Shared steps ──────────────────────────────────────────────────────────────

func (s *devolucionService) ventaActiva(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	v, err := s.ventaRepo.FindByIDForUpdateTx(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundf("Venta", id)
	}
	if err != nil {
		return nil, fmt.Errorf("buscando venta: %w", err)
	}
	if v.Anulada {
		return nil, apperror.New(apperror.AlreadyVoided, "La venta está anulada").With("venta_id", id)
	}
	return v, nil
}

func (s *devolucionService) moverStock(tx *gorm.DB, actor Actor, h *SesionActiva, tipo model.TipoMovimientoStock, productoID uuid.UUID, cantidad int, motivo string, ref uuid.UUID) error {
	_, err := s.ledger.RegistrarTx(tx, MovimientoStockInput{
		ProductoID:   productoID,
		UsuarioID:    actor.UsuarioID,
		SesionCajaID: &h.Sesion.ID,
		Tipo:         tipo,
		Cantidad:     cantidad,
		Motivo:       motivo,
		ReferenciaID: &ref,
	})
	return err
}

// movimientoSistema writes the audit row of an adjustment already applied to
// the channel totals.
func (s *devolucionService) movimientoSistema(tx *gorm.DB, actor Actor, h *SesionActiva, tipo model.TipoMovimientoCaja, categoria string, monto decimal.Decimal, ref uuid.UUID) error {
	mov := &model.MovimientoCaja{
		SesionCajaID: h.Sesion.ID,
		UsuarioID:    actor.UsuarioID,
		Tipo:         tipo,
		Categoria:    categoria,
		Monto:        monto,
		Sistema:      true,
		ReferenciaID: &ref,
	}
	if err := s.cajaRepo.CreateMovimientoTx(tx, mov); err != nil {
		return fmt.Errorf("registrando movimiento de caja: %w", err)
	}
	return nil
}

// parsePedidos merges repeated products, keeping first-appearance order.
func parsePedidos(reqs []dto.ItemDevueltoRequest) ([]pedidoDevolucion, error) {
	if len(reqs) == 0 {
		return nil, apperror.New(apperror.InvalidQuantity, "Debe indicar al menos un producto a devolver")
	}
	var out []pedidoDevolucion
	idx := make(map[uuid.UUID]int)
	for _, r := range reqs {
		if r.Cantidad <= 0 {
			return nil, apperror.New(apperror.InvalidQuantity, "La cantidad debe ser mayor a cero").
				With("producto_id", r.ProductoID).With("cantidad", r.Cantidad)
		}
		id, err := uuid.Parse(r.ProductoID)
		if err != nil {
			return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", r.ProductoID)
		}
		if i, ok := idx[id]; ok {
			out[i].cantidad += r.Cantidad
			continue
		}
		idx[id] = len(out)
		out = append(out, pedidoDevolucion{productoID: id, cantidad: r.Cantidad})
	}
	return out, nil
}

// valorarDevolucion checks every request against the disposable quantity
// (sold minus already returned or exchanged) and values it at the unit price
// of the sale lines it comes from. Earlier returns consume sale lines in
// order, so a product sold on several lines at different prices is taken
// back line by line. Lines of an internal sale are then scaled down to what
// was actually charged for it.
func valorarDevolucion(v *model.Venta, pedidos []pedidoDevolucion, devueltas map[uuid.UUID]int) (*valoracion, error) {
	val := &valoracion{total: decimal.Zero, exento: decimal.Zero}
	yaDevuelto := decimal.Zero
	for _, p := range pedidos {
		var lineas []model.VentaItem
		vendido := 0
		for _, it := range v.Items {
			if it.ProductoID == p.productoID {
				lineas = append(lineas, it)
				vendido += it.Cantidad
			}
		}
		if len(lineas) == 0 {
			return nil, apperror.New(apperror.ProductNotFound, "El producto no forma parte de la venta").
				With("producto_id", p.productoID).With("venta_id", v.ID)
		}
		previo := devueltas[p.productoID]
		disponible := vendido - previo
		if p.cantidad > disponible {
			return nil, apperror.New(apperror.OverReturn, "La cantidad supera lo disponible para devolver").
				With("producto_id", p.productoID).With("vendido", vendido).
				With("devuelto", previo).With("disponible", disponible).With("solicitado", p.cantidad)
		}

		consumido, pendiente := previo, p.cantidad
		for _, it := range lineas {
			libre := it.Cantidad
			if consumido > 0 {
				usado := min(consumido, libre)
				consumido -= usado
				libre -= usado
				yaDevuelto = yaDevuelto.Add(it.PrecioUnitario.Mul(decimal.NewFromInt(int64(usado))))
			}
			tomar := min(libre, pendiente)
			if tomar == 0 {
				continue
			}
			pendiente -= tomar
			sub := it.PrecioUnitario.Mul(decimal.NewFromInt(int64(tomar)))
			val.lineas = append(val.lineas, lineaDevuelta{
				ProductoID:     it.ProductoID,
				Cantidad:       tomar,
				PrecioUnitario: it.PrecioUnitario,
				Subtotal:       sub,
				Exento:         it.Exento,
			})
			val.total = val.total.Add(sub)
			if it.Exento {
				val.exento = val.exento.Add(sub)
			}
			if pendiente == 0 {
				break
			}
		}
	}
	if v.Tipo == model.VentaInterna {
		val.prorratear(v.Total, valorVendido(v), yaDevuelto)
	}
	return val, nil
}

func valorVendido(v *model.Venta) decimal.Decimal {
	total := decimal.Zero
	for _, it := range v.Items {
		total = total.Add(it.PrecioUnitario.Mul(decimal.NewFromInt(int64(it.Cantidad))))
	}
	return total
}

// prorratear rescales the lines by cobrado/vendido and drops their exempt
// flag. Rounding is applied to the running sum starting at yaDevuelto, so
// successive returns of the whole sale add up to exactly cobrado.
func (val *valoracion) prorratear(cobrado, vendido, yaDevuelto decimal.Decimal) {
	if !vendido.IsPositive() {
		return
	}
	escalar := func(x decimal.Decimal) decimal.Decimal {
		return x.Mul(cobrado).Div(vendido).Round(2)
	}
	acumulado := yaDevuelto
	val.total, val.exento = decimal.Zero, decimal.Zero
	for i := range val.lineas {
		l := &val.lineas[i]
		antes := escalar(acumulado)
		acumulado = acumulado.Add(l.Subtotal)
		l.Subtotal = escalar(acumulado).Sub(antes)
		l.PrecioUnitario = l.Subtotal.Div(decimal.NewFromInt(int64(l.Cantidad))).Round(2)
		l.Exento = false
		val.total = val.total.Add(l.Subtotal)
	}
}

// ── Historial ─────────────────────────────────────────────────────────────────

// Historial follows the same visibility as the sale detail: cashiers only see
// their own sales.
func (s *devolucionService) Historial(ctx context.Context, actor Actor, ventaID uuid.UUID) (*dto.HistorialDevolucionesResponse, error) {
	v, err := s.ventaRepo.FindByID(ctx, ventaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundf("Venta", ventaID)
	}
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando venta")
	}
	if !actor.EsAdmin() && v.UsuarioID != actor.UsuarioID {
		return nil, apperror.NotFoundf("Venta", ventaID)
	}

	devoluciones, err := s.repo.ListDevoluciones(ctx, ventaID)
	if err != nil {
		return nil, apperror.Wrap(err, "error listando devoluciones")
	}
	cambios, err := s.repo.ListCambios(ctx, ventaID)
	if err != nil {
		return nil, apperror.Wrap(err, "error listando cambios")
	}

	resp := &dto.HistorialDevolucionesResponse{
		VentaID:      ventaID.String(),
		Devoluciones: make([]dto.DevolucionResponse, 0, len(devoluciones)),
		Cambios:      make([]dto.CambioResponse, 0, len(cambios)),
	}
	for i := range devoluciones {
		resp.Devoluciones = append(resp.Devoluciones, *devolucionToResponse(&devoluciones[i]))
	}
	for i := range cambios {
		resp.Cambios = append(resp.Cambios, *cambioToResponse(&cambios[i]))
	}
	return resp, nil
}

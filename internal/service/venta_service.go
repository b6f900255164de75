package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/infra"
	"posmarket/internal/metrics"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VentaService interface {
	CrearVenta(ctx context.Context, actor Actor, req dto.CrearVentaRequest) (*dto.VentaResponse, error)
	CrearVentaPos(ctx context.Context, actor Actor, req dto.VentaPosRequest) (*dto.VentaResponse, error)
	PreviewVentaPos(ctx context.Context, req dto.PreviewPosRequest) (*dto.PreviewResponse, error)
	AnularVenta(ctx context.Context, actor Actor, id uuid.UUID, motivo *string) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, actor Actor, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	DetalleVenta(ctx context.Context, actor Actor, id uuid.UUID) (*dto.VentaResponse, error)
	DetalleVentaAdmin(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	Voucher(ctx context.Context, actor Actor, id uuid.UUID) (*dto.VoucherResponse, error)
	VoucherPDF(ctx context.Context, actor Actor, id uuid.UUID, w io.Writer) error
}

type ventaService struct {
	repo        repository.VentaRepository
	cajaRepo    repository.CajaRepository
	productos   repository.ProductoRepository
	promociones repository.PromocionRepository
	ledger      *StockLedger
	resolver    *Resolver
}

func NewVentaService(
	repo repository.VentaRepository,
	cajaRepo repository.CajaRepository,
	productos repository.ProductoRepository,
	promociones repository.PromocionRepository,
	ledger *StockLedger,
	resolver *Resolver,
) VentaService {
	return &ventaService{
		repo:        repo,
		cajaRepo:    cajaRepo,
		productos:   productos,
		promociones: promociones,
		ledger:      ledger,
		resolver:    resolver,
	}
}

// runTx executes fn inside one GORM transaction bound to ctx.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

func (s *ventaService) catalogo(tx *gorm.DB) catalogoTx {
	return catalogoTx{tx: tx, productos: s.productos, promociones: s.promociones}
}

// ventaInput is the normalized form of both sale request shapes.
type ventaInput struct {
	tipo         model.TipoVenta
	items        []ItemSolicitado
	combos       []dto.ComboRequest
	pagos        []Pago
	notaInterna  *string
	totalInterno *decimal.Decimal
	snapshot     any
}

// ── CrearVenta ────────────────────────────────────────────────────────────────
// One transaction:
//   1. lock the open session
//   2. price lines from the catalog
//   3. apply the INTERNA total override
//   4. validate payments
//   5. persist header, lines and payments
//   6. stock out, one VENTA movement per line
//   7. feed the session aggregates
//   8. store the voucher snapshot

func (s *ventaService) CrearVenta(ctx context.Context, actor Actor, req dto.CrearVentaRequest) (*dto.VentaResponse, error) {
	tipo, err := parseTipoVenta(req.Tipo)
	if err != nil {
		return nil, err
	}
	items, err := itemsSolicitados(req.Items)
	if err != nil {
		return nil, err
	}
	return s.registrar(ctx, actor, ventaInput{
		tipo:         tipo,
		items:        items,
		pagos:        pagosSolicitados(req.Pagos),
		notaInterna:  req.NotaInterna,
		totalInterno: req.TotalInterno,
		snapshot:     req,
	})
}

// CrearVentaPos accepts combos on top of plain lines. Each combo becomes its
// two paid components plus the complimentary bonus product.
func (s *ventaService) CrearVentaPos(ctx context.Context, actor Actor, req dto.VentaPosRequest) (*dto.VentaResponse, error) {
	tipo, err := parseTipoVenta(req.Tipo)
	if err != nil {
		return nil, err
	}
	items, err := itemsSolicitados(req.Items)
	if err != nil {
		return nil, err
	}
	return s.registrar(ctx, actor, ventaInput{
		tipo:         tipo,
		items:        items,
		combos:       req.Combos,
		pagos:        pagosSolicitados(req.Pagos),
		notaInterna:  req.NotaInterna,
		totalInterno: req.TotalInterno,
		snapshot:     req,
	})
}

func (s *ventaService) registrar(ctx context.Context, actor Actor, in ventaInput) (*dto.VentaResponse, error) {
	if len(in.items) == 0 && len(in.combos) == 0 {
		return nil, apperror.New(apperror.InvalidQuantity, "La venta debe tener al menos un producto")
	}
	contenido, err := json.Marshal(in.snapshot)
	if err != nil {
		return nil, apperror.Wrap(err, "error serializando la venta")
	}

	var venta *model.Venta
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		h, err := abrirHandle(tx, s.cajaRepo)
		if err != nil {
			return err
		}

		cat := s.catalogo(tx)
		items, err := s.expandirCombos(ctx, cat, in.items, in.combos)
		if err != nil {
			return err
		}
		res, err := s.resolver.Calcular(ctx, cat, items)
		if err != nil {
			return err
		}

		total, exento, err := totalesVenta(in.tipo, in.totalInterno, res)
		if err != nil {
			return err
		}

		totales, err := validarPagos(in.pagos, total, exento, in.tipo)
		if err != nil {
			return err
		}

		venta = nuevaVenta(actor, h.Sesion.ID, in, res, total, exento, totales)
		if err := s.repo.CreateTx(tx, venta); err != nil {
			return fmt.Errorf("creando venta: %w", err)
		}

		for _, it := range venta.Items {
			_, err := s.ledger.RegistrarTx(tx, MovimientoStockInput{
				ProductoID:   it.ProductoID,
				UsuarioID:    actor.UsuarioID,
				SesionCajaID: &venta.SesionCajaID,
				Tipo:         model.StockVenta,
				Cantidad:     -it.Cantidad,
				Motivo:       "Venta",
				ReferenciaID: &venta.ID,
			})
			if err != nil {
				return err
			}
		}

		if err := h.AplicarPagos(totales, exento, in.tipo); err != nil {
			return err
		}

		return s.repo.CreateVoucherTx(tx, &model.Voucher{VentaID: venta.ID, Contenido: datatypes.JSON(contenido)})
	})
	if err != nil {
		return nil, err
	}

	metrics.VentasTotal.WithLabelValues(string(venta.Tipo)).Inc()
	metrics.VentasMonto.WithLabelValues(string(venta.Tipo)).Add(venta.Total.InexactFloat64())
	log.Info().Str("venta_id", venta.ID.String()).Str("sesion_caja_id", venta.SesionCajaID.String()).
		Str("tipo", string(venta.Tipo)).Str("total", venta.Total.String()).
		Str("exento", venta.TotalExento.String()).Msg("venta registrada")
	return ventaToResponse(venta), nil
}

func nuevaVenta(actor Actor, sesionID uuid.UUID, in ventaInput, res *Resolucion, total, exento decimal.Decimal, totales TotalesPorCanal) *model.Venta {
	v := &model.Venta{
		ID:              uuid.New(),
		UsuarioID:       actor.UsuarioID,
		SesionCajaID:    sesionID,
		Tipo:            in.tipo,
		Total:           total,
		TotalAfecto:     total.Sub(exento),
		TotalExento:     exento,
		DescuentoPromos: res.DescuentoPromos,
		MontoEfectivo:   totales.Efectivo,
		MontoNoEfectivo: totales.NoEfectivo(),
		CreatedAt:       time.Now(),
	}
	if in.tipo == model.VentaInterna {
		v.NotaInterna = in.notaInterna
	}
	for _, l := range res.Lineas {
		v.Items = append(v.Items, model.VentaItem{
			ProductoID:     l.ProductoID,
			NombreProducto: l.Nombre,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
			Exento:         l.Exento,
			Mayorista:      l.Mayorista,
			EsPromo:        l.EsPromo,
			PromocionID:    l.PromoID,
		})
	}
	for _, p := range in.pagos {
		v.Pagos = append(v.Pagos, model.VentaPago{Metodo: p.Metodo, Monto: p.Monto})
	}
	return v
}

// expandirCombos appends the lines of every combo to items.
func (s *ventaService) expandirCombos(ctx context.Context, cat Catalogo, items []ItemSolicitado, combos []dto.ComboRequest) ([]ItemSolicitado, error) {
	if len(combos) == 0 {
		return items, nil
	}
	bonus, err := cat.ProductoPorCodigo(ctx, s.resolver.codigoBonificacion)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando producto de bonificación")
	}
	if bonus == nil {
		return nil, apperror.New(apperror.ProductNotFound, "Producto de bonificación no encontrado").
			With("codigo", s.resolver.codigoBonificacion)
	}

	out := make([]ItemSolicitado, 0, len(items)+3*len(combos))
	out = append(out, items...)
	for _, c := range combos {
		if c.Cantidad <= 0 {
			return nil, apperror.New(apperror.InvalidQuantity, "La cantidad del combo debe ser mayor a cero").
				With("cantidad", c.Cantidad)
		}
		if len(c.Componentes) != 2 {
			return nil, apperror.New(apperror.InvalidQuantity, "Un combo tiene exactamente dos componentes").
				With("componentes", len(c.Componentes))
		}
		promoID, err := parseUUIDPtr(c.PromoID)
		if err != nil {
			return nil, apperror.New(apperror.InvalidCategory, "promo_id inválido")
		}
		for _, comp := range c.Componentes {
			id, err := uuid.Parse(comp)
			if err != nil {
				return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", comp)
			}
			out = append(out, ItemSolicitado{ProductoID: id, Cantidad: c.Cantidad, EsPromo: true, PromoID: promoID})
		}
		out = append(out, ItemSolicitado{ProductoID: bonus.ID, Cantidad: c.Cantidad, EsPromo: true})
	}
	return out, nil
}

// ── PreviewVentaPos ───────────────────────────────────────────────────────────
// Pricing only: no transaction and no session required.

func (s *ventaService) PreviewVentaPos(ctx context.Context, req dto.PreviewPosRequest) (*dto.PreviewResponse, error) {
	tipo, err := parseTipoVenta(req.Tipo)
	if err != nil {
		return nil, err
	}
	items, err := itemsSolicitados(req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && len(req.Combos) == 0 {
		return nil, apperror.New(apperror.InvalidQuantity, "La venta debe tener al menos un producto")
	}
	cat := s.catalogo(s.repo.DB())
	items, err = s.expandirCombos(ctx, cat, items, req.Combos)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver.Calcular(ctx, cat, items)
	if err != nil {
		return nil, err
	}
	total, exento, err := totalesVenta(tipo, req.TotalInterno, res)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewResponse{
		Items:           lineasToResponse(res.Lineas),
		Total:           total,
		TotalAfecto:     total.Sub(exento),
		TotalExento:     exento,
		DescuentoPromos: res.DescuentoPromos,
	}, nil
}

// totalesVenta returns the total to charge and its exempt part. An internal
// sale may replace the resolved total, which also drops the exempt share.
func totalesVenta(tipo model.TipoVenta, totalInterno *decimal.Decimal, res *Resolucion) (total, exento decimal.Decimal, err error) {
	total, exento = res.Total, res.TotalExento
	if tipo == model.VentaInterna && totalInterno != nil {
		if !totalInterno.IsPositive() {
			return total, exento, apperror.New(apperror.InvalidAmount, "El total interno debe ser mayor a cero").
				With("total_interno", *totalInterno)
		}
		total, exento = *totalInterno, decimal.Zero
	}
	if !total.IsPositive() {
		return total, exento, apperror.New(apperror.InvalidAmount, "El total de la venta debe ser mayor a cero").
			With("total", total)
	}
	return total, exento, nil
}

// ── AnularVenta ───────────────────────────────────────────────────────────────
// Only sales of the open session can be voided. Ticket counters are kept.

func (s *ventaService) AnularVenta(ctx context.Context, actor Actor, id uuid.UUID, motivo *string) (*dto.VentaResponse, error) {
	var venta *model.Venta
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindByIDForUpdateTx(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFoundf("Venta", id)
		}
		if err != nil {
			return fmt.Errorf("buscando venta: %w", err)
		}
		if v.Anulada {
			return apperror.New(apperror.AlreadyVoided, "La venta ya fue anulada").With("venta_id", id)
		}
		if len(v.Boletas) > 0 {
			return apperror.New(apperror.AlreadyReceipted, "La venta tiene boleta emitida y no puede anularse").
				With("venta_id", id)
		}
		h, err := abrirHandle(tx, s.cajaRepo)
		if err != nil {
			return err
		}
		if v.SesionCajaID != h.Sesion.ID {
			return apperror.New(apperror.WrongSession, "Solo se pueden anular ventas de la sesión de caja actual").
				With("venta_id", id).With("sesion_venta", v.SesionCajaID).With("sesion_actual", h.Sesion.ID)
		}

		for _, it := range v.Items {
			_, err := s.ledger.RegistrarTx(tx, MovimientoStockInput{
				ProductoID:   it.ProductoID,
				UsuarioID:    actor.UsuarioID,
				SesionCajaID: &h.Sesion.ID,
				Tipo:         model.StockAnulacion,
				Cantidad:     it.Cantidad,
				Motivo:       "Anulación de venta",
				ReferenciaID: &v.ID,
			})
			if err != nil {
				return err
			}
		}

		totales, err := ClasificarPagos(pagosDeVenta(v))
		if err != nil {
			return err
		}
		if err := h.RevertirPagos(totales, v.TotalExento, v.Tipo); err != nil {
			return err
		}

		now := time.Now()
		if err := s.repo.MarcarAnuladaTx(tx, v.ID, actor.UsuarioID, motivo, now); err != nil {
			return fmt.Errorf("anulando venta: %w", err)
		}
		v.Anulada = true
		v.AnuladaPor = &actor.UsuarioID
		v.AnuladaAt = &now
		v.MotivoAnulacion = motivo
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Reversiones.WithLabelValues(metrics.OpAnulacion).Inc()
	log.Info().Str("venta_id", venta.ID.String()).Str("usuario_id", actor.UsuarioID.String()).
		Str("total", venta.Total.String()).Msg("venta anulada")
	return ventaToResponse(venta), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// ListarVentas lists sales. Cashiers only ever see their own.
func (s *ventaService) ListarVentas(ctx context.Context, actor Actor, f dto.VentaFilter) (*dto.VentaListResponse, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	filter := repository.VentaFilter{
		Tipo:   model.TipoVenta(f.Tipo),
		Estado: f.Estado,
		Page:   f.Page,
		Limit:  f.Limit,
	}

	if actor.EsAdmin() {
		id, err := parseUUIDPtr(&f.UsuarioID)
		if err != nil {
			return nil, apperror.New(apperror.InvalidCategory, "usuario_id inválido")
		}
		filter.UsuarioID = id
	} else {
		filter.UsuarioID = &actor.UsuarioID
	}

	sesionID, err := parseUUIDPtr(&f.SesionCajaID)
	if err != nil {
		return nil, apperror.New(apperror.InvalidCategory, "sesion_caja_id inválido")
	}
	filter.SesionCajaID = sesionID

	if f.Fecha != "" {
		dia, err := time.ParseInLocation("2006-01-02", f.Fecha, time.Local)
		if err != nil {
			return nil, apperror.New(apperror.InvalidCategory, "fecha inválida, se espera YYYY-MM-DD").With("fecha", f.Fecha)
		}
		hasta := dia.AddDate(0, 0, 1)
		filter.Desde = &dia
		filter.Hasta = &hasta
	}

	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err, "error listando ventas")
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *ventaService) DetalleVenta(ctx context.Context, actor Actor, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.ventaVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(v), nil
}

func (s *ventaService) DetalleVentaAdmin(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(v), nil
}

func (s *ventaService) Voucher(ctx context.Context, actor Actor, id uuid.UUID) (*dto.VoucherResponse, error) {
	if _, err := s.ventaVisible(ctx, actor, id); err != nil {
		return nil, err
	}
	v, err := s.repo.FindVoucher(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundf("Voucher", id)
	}
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando voucher")
	}
	return &dto.VoucherResponse{
		VentaID:   v.VentaID.String(),
		Contenido: json.RawMessage(v.Contenido),
		CreatedAt: fecha(v.CreatedAt),
	}, nil
}

// VoucherPDF renders the reprint of a sale to w.
func (s *ventaService) VoucherPDF(ctx context.Context, actor Actor, id uuid.UUID, w io.Writer) error {
	v, err := s.ventaVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := infra.WriteVoucherPDF(w, v); err != nil {
		return apperror.Wrap(err, "error generando el PDF")
	}
	return nil
}

func (s *ventaService) buscar(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	v, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundf("Venta", id)
	}
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando venta")
	}
	return v, nil
}

// ventaVisible hides other users' sales from non-admin actors.
func (s *ventaService) ventaVisible(ctx context.Context, actor Actor, id uuid.UUID) (*model.Venta, error) {
	v, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.EsAdmin() && v.UsuarioID != actor.UsuarioID {
		return nil, apperror.NotFoundf("Venta", id)
	}
	return v, nil
}

// ── Parsing ───────────────────────────────────────────────────────────────────

func parseTipoVenta(s string) (model.TipoVenta, error) {
	if s == "" {
		return model.VentaNormal, nil
	}
	t := model.TipoVenta(strings.ToUpper(s))
	if !t.Valid() {
		return "", apperror.Newf(apperror.InvalidCategory, "Tipo de venta inválido: %s", s).With("tipo", s)
	}
	return t, nil
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func itemsSolicitados(reqs []dto.ItemVentaRequest) ([]ItemSolicitado, error) {
	out := make([]ItemSolicitado, 0, len(reqs))
	for _, r := range reqs {
		id, err := uuid.Parse(r.ProductoID)
		if err != nil {
			return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", r.ProductoID)
		}
		promoID, err := parseUUIDPtr(r.PromoID)
		if err != nil {
			return nil, apperror.New(apperror.InvalidCategory, "promo_id inválido").With("promo_id", *r.PromoID)
		}
		out = append(out, ItemSolicitado{ProductoID: id, Cantidad: r.Cantidad, EsPromo: r.EsPromo, PromoID: promoID})
	}
	return out, nil
}

func pagosSolicitados(reqs []dto.PagoRequest) []Pago {
	out := make([]Pago, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, Pago{Metodo: model.MetodoPago(strings.ToUpper(strings.TrimSpace(r.Metodo))), Monto: r.Monto})
	}
	return out
}

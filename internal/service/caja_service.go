package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/metrics"
	"posmarket/internal/model"
	"posmarket/internal/repository"
	"posmarket/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxCategoriaLen = 60

// CierreNotifier schedules the close report of a session.
type CierreNotifier interface {
	EnqueueCierreCaja(ctx context.Context, payload worker.CierreCajaPayload) error
}

type CajaService interface {
	Abrir(ctx context.Context, actor Actor, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	// SesionActiva returns nil when no session is open.
	SesionActiva(ctx context.Context) (*dto.SesionCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, actor Actor, req dto.MovimientoManualRequest) (*dto.MovimientoCajaResponse, error)
	Cerrar(ctx context.Context, actor Actor, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error)
	Historial(ctx context.Context, limit int) ([]dto.SesionCajaResponse, error)
	Detalle(ctx context.Context, id uuid.UUID) (*dto.DetalleSesionResponse, error)
	Resumen(ctx context.Context) (*dto.ResumenCajaResponse, error)
}

type cajaService struct {
	repo      repository.CajaRepository
	ventaRepo repository.VentaRepository
	notifier  CierreNotifier
}

// NewCajaService wires the aggregator. notifier may be nil.
func NewCajaService(repo repository.CajaRepository, ventaRepo repository.VentaRepository, notifier CierreNotifier) CajaService {
	return &cajaService{repo: repo, ventaRepo: ventaRepo, notifier: notifier}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, actor Actor, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.InicialLocal.IsNegative() || req.InicialVecina.IsNegative() {
		return nil, apperror.New(apperror.InvalidAmount, "Los montos iniciales no pueden ser negativos").
			With("inicial_local", req.InicialLocal).With("inicial_vecina", req.InicialVecina)
	}

	sesion := &model.SesionCaja{
		UsuarioAperturaID:  actor.UsuarioID,
		OpenedAt:           time.Now(),
		InicialLocal:       req.InicialLocal,
		InicialVecina:      req.InicialVecina,
		TotalEfectivo:      decimal.Zero,
		TotalDebito:        decimal.Zero,
		TotalCredito:       decimal.Zero,
		TotalTransferencia: decimal.Zero,
		TotalExento:        decimal.Zero,
		IngresosExtra:      decimal.Zero,
		Egresos:            decimal.Zero,
		MovimientosVecina:  decimal.Zero,
		Estado:             model.SesionAbierta,
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		existente, err := s.repo.FindSesionAbiertaTx(tx)
		if err != nil {
			return fmt.Errorf("buscando sesión abierta: %w", err)
		}
		if existente != nil {
			return yaAbierta(existente.ID)
		}
		if err := s.repo.CreateSesionTx(tx, sesion); err != nil {
			// Lost the race against a concurrent open: the partial unique
			// index rejects the second ABIERTA row.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return yaAbierta(uuid.Nil)
			}
			return fmt.Errorf("creando sesión: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SesionesCaja.WithLabelValues("apertura").Inc()
	log.Info().Str("sesion_caja_id", sesion.ID.String()).Str("usuario_id", actor.UsuarioID.String()).
		Str("inicial_local", sesion.InicialLocal.String()).Msg("caja abierta")
	return sesionToResponse(sesion), nil
}

func yaAbierta(id uuid.UUID) error {
	e := apperror.New(apperror.SessionAlreadyOpen, "Ya existe una sesión de caja abierta")
	if id != uuid.Nil {
		e.With("sesion_caja_id", id)
	}
	return e
}

// ── SesionActiva ──────────────────────────────────────────────────────────────

func (s *cajaService) SesionActiva(ctx context.Context) (*dto.SesionCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando la sesión activa")
	}
	if sesion == nil {
		return nil, nil
	}
	return sesionToResponse(sesion), nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Manual income/expense. Rows are immutable.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, actor Actor, req dto.MovimientoManualRequest) (*dto.MovimientoCajaResponse, error) {
	tipo := model.TipoMovimientoCaja(strings.ToUpper(strings.TrimSpace(req.Tipo)))
	if !tipo.Valid() {
		return nil, apperror.Newf(apperror.InvalidCategory, "Tipo de movimiento inválido: %s", req.Tipo).
			With("tipo", req.Tipo)
	}
	categoria := strings.TrimSpace(req.Categoria)
	if err := validarCategoria(categoria); err != nil {
		return nil, err
	}
	if !req.Monto.IsPositive() {
		return nil, apperror.New(apperror.InvalidAmount, "El monto debe ser mayor a cero").With("monto", req.Monto)
	}
	var proveedorID *uuid.UUID
	if req.ProveedorID != nil && *req.ProveedorID != "" {
		id, err := uuid.Parse(*req.ProveedorID)
		if err != nil {
			return nil, apperror.New(apperror.InvalidCategory, "proveedor_id inválido")
		}
		proveedorID = &id
	}

	mov := &model.MovimientoCaja{
		UsuarioID:   actor.UsuarioID,
		Tipo:        tipo,
		Categoria:   categoria,
		Monto:       req.Monto,
		Descripcion: req.Descripcion,
		ProveedorID: proveedorID,
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		h, err := abrirHandle(tx, s.repo)
		if err != nil {
			return err
		}
		mov.SesionCajaID = h.Sesion.ID
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return fmt.Errorf("registrando movimiento: %w", err)
		}
		return h.AplicarMovimiento(tipo, mov.Monto)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("sesion_caja_id", mov.SesionCajaID.String()).Str("tipo", string(tipo)).
		Str("categoria", categoria).Str("monto", mov.Monto.String()).Msg("movimiento de caja registrado")
	resp := movimientoToResponse(mov)
	return &resp, nil
}

// validarCategoria rejects empty, oversized and system-reserved categories.
func validarCategoria(categoria string) error {
	if categoria == "" || len([]rune(categoria)) > maxCategoriaLen {
		return apperror.Newf(apperror.InvalidCategory, "La categoría debe tener entre 1 y %d caracteres", maxCategoriaLen).
			With("categoria", categoria)
	}
	switch strings.ToUpper(categoria) {
	case model.CategoriaDevolucion, model.CategoriaCambio:
		return apperror.Newf(apperror.InvalidCategory, "La categoría %s es de uso interno", categoria).
			With("categoria", categoria)
	}
	return nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// esperado_local = inicial_local + efectivo + ingresos − egresos. Exempt sales
// stay in: their cash is physically in the till. esperado_vecina is the
// opening float of the secondary till.

func (s *cajaService) Cerrar(ctx context.Context, actor Actor, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.RealLocal.IsNegative() || req.RealVecina.IsNegative() {
		return nil, apperror.New(apperror.InvalidAmount, "Los montos contados no pueden ser negativos").
			With("real_local", req.RealLocal).With("real_vecina", req.RealVecina)
	}

	var sesion *model.SesionCaja
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		h, err := abrirHandle(tx, s.repo)
		if err != nil {
			return err
		}
		sesion = h.Sesion
		cerrarSesion(sesion, actor.UsuarioID, req.RealLocal, req.RealVecina, time.Now())
		return h.guardar()
	})
	if err != nil {
		return nil, err
	}

	metrics.SesionesCaja.WithLabelValues("cierre").Inc()
	log.Info().Str("sesion_caja_id", sesion.ID.String()).
		Str("diferencia_local", sesion.DiferenciaLocal.String()).
		Str("diferencia_vecina", sesion.DiferenciaVecina.String()).
		Msg("caja cerrada")

	// Best effort: the close is committed whatever happens to the report.
	if s.notifier != nil {
		if err := s.notifier.EnqueueCierreCaja(ctx, worker.CierreCajaPayload{SesionCajaID: sesion.ID.String()}); err != nil {
			log.Warn().Err(err).Str("sesion_caja_id", sesion.ID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}
	return sesionToResponse(sesion), nil
}

// cerrarSesion computes expected and variance figures and freezes s.
func cerrarSesion(s *model.SesionCaja, usuarioID uuid.UUID, realLocal, realVecina decimal.Decimal, at time.Time) {
	esperadoLocal := s.InicialLocal.Add(s.TotalEfectivo).Add(s.IngresosExtra).Sub(s.Egresos)
	esperadoVecina := s.InicialVecina
	difLocal := realLocal.Sub(esperadoLocal)
	difVecina := realVecina.Sub(esperadoVecina)

	s.EsperadoLocal = &esperadoLocal
	s.EsperadoVecina = &esperadoVecina
	s.RealLocal = &realLocal
	s.RealVecina = &realVecina
	s.DiferenciaLocal = &difLocal
	s.DiferenciaVecina = &difVecina
	s.Estado = model.SesionCerrada
	s.ClosedAt = &at
	s.UsuarioCierreID = &usuarioID
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, limit int) ([]dto.SesionCajaResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	sesiones, err := s.repo.ListSesiones(ctx, limit)
	if err != nil {
		return nil, apperror.Wrap(err, "error listando sesiones")
	}
	out := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		out = append(out, *sesionToResponse(&sesiones[i]))
	}
	return out, nil
}

func (s *cajaService) Detalle(ctx context.Context, id uuid.UUID) (*dto.DetalleSesionResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundf("Sesión de caja", id)
	}
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando la sesión")
	}
	movs := make([]dto.MovimientoCajaResponse, 0, len(sesion.Movimientos))
	for i := range sesion.Movimientos {
		movs = append(movs, movimientoToResponse(&sesion.Movimientos[i]))
	}
	return &dto.DetalleSesionResponse{Sesion: *sesionToResponse(sesion), Movimientos: movs}, nil
}

// Resumen is the dashboard of the open session.
func (s *cajaService) Resumen(ctx context.Context) (*dto.ResumenCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando la sesión activa")
	}
	if sesion == nil {
		return nil, apperror.NoSession()
	}
	res, err := s.ventaRepo.Resumen(ctx, sesion.ID)
	if err != nil {
		return nil, apperror.Wrap(err, "error resumiendo ventas")
	}
	ultima, err := s.ventaRepo.Ultima(ctx, sesion.ID)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando la última venta")
	}
	conEfectivo, err := s.ventaRepo.ListConEfectivo(ctx, sesion.ID)
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando boletas pendientes")
	}

	sr := sesionToResponse(sesion)
	resp := &dto.ResumenCajaResponse{
		Sesion:            *sr,
		CantidadVentas:    res.Cantidad,
		TotalVentas:       res.Total,
		TotalExento:       res.TotalExento,
		MetodosPago:       sr.Totales,
		Tickets:           sr.Tickets,
		EfectivoEnCaja:    sesion.InicialLocal.Add(sesion.TotalEfectivo).Add(sesion.IngresosExtra).Sub(sesion.Egresos),
		BoletasPendientes: len(pendientesBoleta(conEfectivo)),
	}
	if ultima != nil {
		resp.UltimaVenta = &dto.UltimaVentaResponse{
			ID:        ultima.ID.String(),
			Total:     ultima.Total,
			CreatedAt: fecha(ultima.CreatedAt),
		}
	}
	return resp, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"posmarket/internal/apperror"
	"posmarket/internal/dto"
	"posmarket/internal/model"
	"posmarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventarioService maintains the catalog the resolver reads and exposes the
// stock ledger. Every stock change goes through the ledger.
type InventarioService interface {
	CrearProducto(ctx context.Context, actor Actor, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	CrearPromocion(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error)
	AjustarStock(ctx context.Context, actor Actor, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
	ConciliarStock(ctx context.Context, productoID uuid.UUID) (*dto.ConciliacionStockResponse, error)
}

type inventarioService struct {
	productos   repository.ProductoRepository
	promociones repository.PromocionRepository
	movimientos repository.MovimientoStockRepository
	ledger      *StockLedger
}

func NewInventarioService(
	productos repository.ProductoRepository,
	promociones repository.PromocionRepository,
	movimientos repository.MovimientoStockRepository,
	ledger *StockLedger,
) InventarioService {
	return &inventarioService{productos: productos, promociones: promociones, movimientos: movimientos, ledger: ledger}
}

// CrearProducto stores the product with zero stock and books the opening
// quantity as an AJUSTE so the ledger covers it.
func (s *inventarioService) CrearProducto(ctx context.Context, actor Actor, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if !req.PrecioVenta.IsPositive() {
		return nil, apperror.New(apperror.InvalidAmount, "El precio de venta debe ser mayor a cero").With("precio_venta", req.PrecioVenta)
	}
	if req.PrecioMayorista != nil && req.PrecioMayorista.IsNegative() {
		return nil, apperror.New(apperror.InvalidAmount, "El precio mayorista no puede ser negativo")
	}
	if req.StockInicial < 0 {
		return nil, apperror.New(apperror.InvalidQuantity, "El stock inicial no puede ser negativo")
	}

	p := &model.Producto{
		Codigo:            strings.TrimSpace(req.Codigo),
		Nombre:            strings.TrimSpace(req.Nombre),
		PrecioVenta:       req.PrecioVenta,
		PrecioMayorista:   req.PrecioMayorista,
		CantidadMayorista: req.CantidadMayorista,
		Exento:            req.Exento,
		Activo:            true,
	}
	err := runTx(ctx, s.productos.DB(), func(tx *gorm.DB) error {
		if err := s.productos.CreateTx(tx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Newf(apperror.InvalidCategory, "Ya existe un producto con código %s", p.Codigo).
					With("codigo", p.Codigo)
			}
			return fmt.Errorf("creando producto: %w", err)
		}
		if req.StockInicial == 0 {
			return nil
		}
		mov, err := s.ledger.RegistrarTx(tx, MovimientoStockInput{
			ProductoID: p.ID,
			UsuarioID:  actor.UsuarioID,
			Tipo:       model.StockAjuste,
			Cantidad:   req.StockInicial,
			Motivo:     "Stock inicial",
		})
		if err != nil {
			return err
		}
		p.Stock = mov.StockNuevo
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("producto_id", p.ID.String()).Str("codigo", p.Codigo).Int("stock", p.Stock).Msg("producto creado")
	return productoToResponse(p), nil
}

func (s *inventarioService) CrearPromocion(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error) {
	if !req.PrecioPromocion.IsPositive() {
		return nil, apperror.New(apperror.InvalidAmount, "El precio de la promoción debe ser mayor a cero")
	}
	promo := &model.Promocion{
		Nombre:          strings.TrimSpace(req.Nombre),
		Tipo:            model.TipoPromocionFija,
		PrecioPromocion: req.PrecioPromocion,
		Activa:          true,
	}
	for _, d := range req.Detalles {
		if d.Cantidad <= 0 {
			return nil, apperror.New(apperror.InvalidQuantity, "La cantidad requerida debe ser mayor a cero")
		}
		pid, err := uuid.Parse(d.ProductoID)
		if err != nil {
			return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", d.ProductoID)
		}
		if _, err := s.productos.FindByID(ctx, pid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", pid)
			}
			return nil, apperror.Wrap(err, "error consultando producto")
		}
		promo.Detalles = append(promo.Detalles, model.PromocionDetalle{ProductoID: pid, Cantidad: d.Cantidad, EsGratis: d.EsGratis})
	}
	if err := s.promociones.Create(ctx, promo); err != nil {
		return nil, apperror.Wrap(err, "error creando promoción")
	}

	log.Info().Str("promocion_id", promo.ID.String()).Str("precio", promo.PrecioPromocion.String()).Msg("promoción creada")
	resp := &dto.PromocionResponse{
		ID:              promo.ID.String(),
		Nombre:          promo.Nombre,
		Tipo:            promo.Tipo,
		PrecioPromocion: promo.PrecioPromocion,
		Activa:          promo.Activa,
		Detalles:        req.Detalles,
	}
	return resp, nil
}

// AjustarStock books a manual correction. It does not need an open session.
func (s *inventarioService) AjustarStock(ctx context.Context, actor Actor, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error) {
	if req.Delta == 0 {
		return nil, apperror.New(apperror.InvalidQuantity, "El ajuste no puede ser cero")
	}
	pid, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, apperror.New(apperror.ProductNotFound, "Producto no encontrado").With("producto_id", req.ProductoID)
	}
	var mov *model.MovimientoStock
	err = runTx(ctx, s.productos.DB(), func(tx *gorm.DB) error {
		var err error
		mov, err = s.ledger.RegistrarTx(tx, MovimientoStockInput{
			ProductoID: pid,
			UsuarioID:  actor.UsuarioID,
			Tipo:       model.StockAjuste,
			Cantidad:   req.Delta,
			Motivo:     req.Motivo,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("producto_id", pid.String()).Int("delta", req.Delta).Int("stock", mov.StockNuevo).Msg("stock ajustado")
	resp := movimientoStockToResponse(mov)
	return &resp, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, f dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	filter := repository.MovimientoStockFilter{
		Tipo:  model.TipoMovimientoStock(f.Tipo),
		Page:  f.Page,
		Limit: f.Limit,
	}
	var err error
	if filter.ProductoID, err = parseUUIDPtr(&f.ProductoID); err != nil {
		return nil, apperror.New(apperror.InvalidCategory, "producto_id inválido")
	}
	if filter.ReferenciaID, err = parseUUIDPtr(&f.ReferenciaID); err != nil {
		return nil, apperror.New(apperror.InvalidCategory, "referencia_id inválido")
	}

	movs, total, err := s.movimientos.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err, "error listando movimientos de stock")
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for i := range movs {
		data = append(data, movimientoStockToResponse(&movs[i]))
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ConciliarStock checks that the stock counter equals the sum of the
// product's ledger entries.
func (s *inventarioService) ConciliarStock(ctx context.Context, productoID uuid.UUID) (*dto.ConciliacionStockResponse, error) {
	p, err := s.productos.FindByID(ctx, productoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundf("Producto", productoID)
	}
	if err != nil {
		return nil, apperror.Wrap(err, "error consultando producto")
	}
	suma, err := s.movimientos.SumCantidad(ctx, productoID)
	if err != nil {
		return nil, apperror.Wrap(err, "error sumando movimientos")
	}
	if suma != p.Stock {
		log.Warn().Str("producto_id", productoID.String()).Int("stock", p.Stock).Int("ledger", suma).
			Msg("stock y movimientos no coinciden")
	}
	return &dto.ConciliacionStockResponse{
		ProductoID:      productoID.String(),
		Stock:           p.Stock,
		SumaMovimientos: suma,
		Consistente:     suma == p.Stock,
	}, nil
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:                p.ID.String(),
		Codigo:            p.Codigo,
		Nombre:            p.Nombre,
		PrecioVenta:       p.PrecioVenta,
		PrecioMayorista:   p.PrecioMayorista,
		CantidadMayorista: p.CantidadMayorista,
		Exento:            p.Exento,
		Stock:             p.Stock,
	}
}

func movimientoStockToResponse(m *model.MovimientoStock) dto.MovimientoStockResponse {
	resp := dto.MovimientoStockResponse{
		ID:            m.ID.String(),
		ProductoID:    m.ProductoID.String(),
		Tipo:          string(m.Tipo),
		Cantidad:      m.Cantidad,
		StockAnterior: m.StockAnterior,
		StockNuevo:    m.StockNuevo,
		Motivo:        m.Motivo,
		SesionCajaID:  uuidPtr(m.SesionCajaID),
		ReferenciaID:  uuidPtr(m.ReferenciaID),
		CreatedAt:     fecha(m.CreatedAt),
	}
	if m.Producto != nil {
		resp.ProductoNombre = m.Producto.Nombre
	}
	return resp
}

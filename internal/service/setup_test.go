package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"posmarket/internal/dto"
	"posmarket/internal/model"
	"posmarket/internal/repository"
	"posmarket/internal/worker"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const codigoHielo = "HIE001"

// newTestDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps every transaction serialized.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Usuario{},
		&model.Producto{},
		&model.Promocion{},
		&model.PromocionDetalle{},
		&model.MovimientoStock{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaPago{},
		&model.VentaBoleta{},
		&model.Voucher{},
		&model.Devolucion{},
		&model.DevolucionItem{},
		&model.Cambio{},
		&model.CambioItemDevuelto{},
		&model.CambioItemEntregado{},
	))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX uq_sesiones_caja_abierta ON sesiones_caja(estado) WHERE estado = 'ABIERTA'`).Error)
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX uq_venta_boletas_tipo ON venta_boletas(venta_id, tipo)`).Error)
	return db
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []worker.CierreCajaPayload
	err      error
}

func (n *fakeNotifier) EnqueueCierreCaja(_ context.Context, p worker.CierreCajaPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return n.err
}

type fixture struct {
	db           *gorm.DB
	caja         CajaService
	ventas       VentaService
	devoluciones DevolucionService
	boletas      BoletaService
	inventario   InventarioService
	notifier     *fakeNotifier

	cajero Actor
	otro   Actor
	admin  Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	productoRepo := repository.NewProductoRepository(db)
	promocionRepo := repository.NewPromocionRepository(db)
	movRepo := repository.NewMovimientoStockRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	devRepo := repository.NewDevolucionRepository(db)

	ledger := NewStockLedger(productoRepo, movRepo)
	resolver := NewResolver(codigoHielo)
	notifier := &fakeNotifier{}

	return &fixture{
		db:           db,
		caja:         NewCajaService(cajaRepo, ventaRepo, notifier),
		ventas:       NewVentaService(ventaRepo, cajaRepo, productoRepo, promocionRepo, ledger, resolver),
		devoluciones: NewDevolucionService(devRepo, ventaRepo, cajaRepo, productoRepo, promocionRepo, ledger, resolver),
		boletas:      NewBoletaService(ventaRepo, cajaRepo),
		inventario:   NewInventarioService(productoRepo, promocionRepo, movRepo, ledger),
		notifier:     notifier,
		cajero:       Actor{UsuarioID: uuid.New(), Rol: model.RolCajero},
		otro:         Actor{UsuarioID: uuid.New(), Rol: model.RolCajero},
		admin:        Actor{UsuarioID: uuid.New(), Rol: model.RolAdministrador},
	}
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func assertDec(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), append([]interface{}{"want %d, got %s", want, got.String()}, msgAndArgs...)...)
}

// producto inserts a catalog entry directly, bypassing the ledger.
func (f *fixture) producto(t *testing.T, codigo string, precio int64, exento bool, stock int) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Codigo:      codigo,
		Nombre:      "Producto " + codigo,
		PrecioVenta: dec(precio),
		Exento:      exento,
		Stock:       stock,
		Activo:      true,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) mayorista(t *testing.T, p *model.Producto, precio int64, desde int) {
	t.Helper()
	pm := dec(precio)
	p.PrecioMayorista = &pm
	p.CantidadMayorista = &desde
	require.NoError(t, f.db.Save(p).Error)
}

func (f *fixture) promocion(t *testing.T, precio int64, detalles ...model.PromocionDetalle) *model.Promocion {
	t.Helper()
	promo := &model.Promocion{
		Nombre:          "Promo",
		Tipo:            model.TipoPromocionFija,
		PrecioPromocion: dec(precio),
		Activa:          true,
		Detalles:        detalles,
	}
	require.NoError(t, f.db.Create(promo).Error)
	return promo
}

func (f *fixture) abrir(t *testing.T, local, vecina int64) *dto.SesionCajaResponse {
	t.Helper()
	s, err := f.caja.Abrir(context.Background(), f.cajero, dto.AbrirCajaRequest{
		InicialLocal:  dec(local),
		InicialVecina: dec(vecina),
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) cerrar(t *testing.T, local, vecina int64) *dto.SesionCajaResponse {
	t.Helper()
	s, err := f.caja.Cerrar(context.Background(), f.cajero, dto.CerrarCajaRequest{
		RealLocal:  dec(local),
		RealVecina: dec(vecina),
	})
	require.NoError(t, err)
	return s
}

func item(p *model.Producto, cantidad int) dto.ItemVentaRequest {
	return dto.ItemVentaRequest{ProductoID: p.ID.String(), Cantidad: cantidad}
}

func pago(metodo string, monto int64) dto.PagoRequest {
	return dto.PagoRequest{Metodo: metodo, Monto: dec(monto)}
}

func (f *fixture) vender(t *testing.T, actor Actor, items []dto.ItemVentaRequest, pagos ...dto.PagoRequest) *dto.VentaResponse {
	t.Helper()
	v, err := f.ventas.CrearVenta(context.Background(), actor, dto.CrearVentaRequest{Items: items, Pagos: pagos})
	require.NoError(t, err)
	return v
}

// sesionAbierta reloads the OPEN session row.
func (f *fixture) sesionAbierta(t *testing.T) *model.SesionCaja {
	t.Helper()
	var s model.SesionCaja
	require.NoError(t, f.db.Where("estado = ?", model.SesionAbierta).First(&s).Error)
	return &s
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p model.Producto
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p.Stock
}

// assertLedger checks stock == opening + Σ movements for the product.
func (f *fixture) assertLedger(t *testing.T, id uuid.UUID, inicial int) {
	t.Helper()
	var suma int
	require.NoError(t, f.db.Model(&model.MovimientoStock{}).
		Select("COALESCE(SUM(cantidad), 0)").Where("producto_id = ?", id).Scan(&suma).Error)
	assert.Equal(t, inicial+suma, f.stock(t, id), "stock and ledger diverged")
}

package router

import (
	"time"

	"posmarket/internal/config"
	"posmarket/internal/handler"
	"posmarket/internal/infra"
	"posmarket/internal/metrics"
	"posmarket/internal/middleware"
	"posmarket/internal/model"
	"posmarket/internal/repository"
	"posmarket/internal/service"
	"posmarket/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
//
// rdb, breaker and dispatcher may be nil; the server then runs without the
// async close report.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, breaker *infra.CircuitBreaker, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(metrics.GinMiddleware())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	promocionRepo := repository.NewPromocionRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	devolucionRepo := repository.NewDevolucionRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	ledger := service.NewStockLedger(productoRepo, movimientoStockRepo)
	resolver := service.NewResolver(cfg.ComboBonusCode)

	var notifier service.CierreNotifier
	if dispatcher != nil {
		notifier = dispatcher
	}

	authSvc := service.NewAuthService(usuarioRepo, cfg)
	cajaSvc := service.NewCajaService(cajaRepo, ventaRepo, notifier)
	ventaSvc := service.NewVentaService(ventaRepo, cajaRepo, productoRepo, promocionRepo, ledger, resolver)
	devolucionSvc := service.NewDevolucionService(devolucionRepo, ventaRepo, cajaRepo, productoRepo, promocionRepo, ledger, resolver)
	boletaSvc := service.NewBoletaService(ventaRepo, cajaRepo)
	inventarioSvc := service.NewInventarioService(productoRepo, promocionRepo, movimientoStockRepo, ledger)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)
	devolucionesH := handler.NewDevolucionesHandler(devolucionSvc)
	boletasH := handler.NewBoletasHandler(boletaSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, breaker))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	todos := middleware.RequireRole(model.RolCajero, model.RolSupervisor, model.RolAdministrador)
	admin := middleware.RequireRole(model.RolSupervisor, model.RolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", todos, cajaH.Abrir)
			caja.GET("/activa", todos, cajaH.Activa)
			caja.GET("/resumen", todos, cajaH.Resumen)
			caja.POST("/movimiento", todos, cajaH.Movimiento)
			caja.POST("/cerrar", todos, cajaH.Cerrar)
			caja.GET("/historial", admin, cajaH.Historial)
			caja.GET("/:id", admin, cajaH.Detalle)
		}

		ventas := v1.Group("/ventas", todos)
		{
			ventas.POST("", ventasH.Crear)
			ventas.GET("", ventasH.Listar)
			ventas.POST("/pos", ventasH.CrearPos)
			ventas.POST("/pos/preview", ventasH.Preview)
			ventas.GET("/:id", ventasH.Detalle)
			ventas.POST("/:id/anular", ventasH.Anular)
			ventas.GET("/:id/voucher", ventasH.Voucher)
			ventas.GET("/:id/voucher.pdf", ventasH.VoucherPDF)
			ventas.POST("/:id/devoluciones", devolucionesH.Devolver)
			ventas.GET("/:id/devoluciones", devolucionesH.Historial)
			ventas.POST("/:id/cambios", devolucionesH.Cambio)
		}

		boletas := v1.Group("/boletas", todos)
		{
			boletas.GET("/pendientes", boletasH.Pendientes)
			boletas.POST("", boletasH.Marcar)
		}

		v1.GET("/admin/ventas/:id", admin, ventasH.DetalleAdmin)

		inv := v1.Group("/inventario", admin)
		{
			inv.POST("/productos", inventarioH.CrearProducto)
			inv.GET("/productos/:id/conciliacion", inventarioH.Conciliar)
			inv.POST("/promociones", inventarioH.CrearPromocion)
			inv.POST("/ajustes", inventarioH.AjustarStock)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
		}

		v1.POST("/usuarios", middleware.RequireRole(model.RolAdministrador), authH.CrearUsuario)
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Package metrics holds the Prometheus collectors of the service. All of them
// register with the default registry served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VentasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posmarket_ventas_total",
		Help: "Sales committed, by kind.",
	}, []string{"tipo"})

	VentasMonto = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posmarket_ventas_monto_total",
		Help: "Sum of committed sale totals, by kind.",
	}, []string{"tipo"})

	Reversiones = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posmarket_reversiones_total",
		Help: "Voids, returns and exchanges committed.",
	}, []string{"operacion"})

	SesionesCaja = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posmarket_sesiones_caja_total",
		Help: "Cash session transitions.",
	}, []string{"evento"})

	ErroresNegocio = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posmarket_errores_negocio_total",
		Help: "Rejected operations, by error code.",
	}, []string{"code"})

	DLQPendientes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "posmarket_dlq_pendientes",
		Help: "Dead-lettered jobs waiting for replay, by source queue.",
	}, []string{"queue"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posmarket_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "posmarket_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Reversion operations.
const (
	OpAnulacion  = "anulacion"
	OpDevolucion = "devolucion"
	OpCambio     = "cambio"
)

// GinMiddleware records count and latency of every request.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

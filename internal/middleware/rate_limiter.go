package middleware

import (
	"net/http"
	"sync"
	"time"

	"posmarket/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

type ventana struct {
	count int
	fin   time.Time
}

// windowLimiter counts requests per client IP in fixed windows. Expired
// entries are dropped on the way, at most once per purgeInterval.
type windowLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	entries     map[string]*ventana
	ultimaPurga time.Time
	now         func() time.Time
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*ventana),
		now:     time.Now,
	}
}

// allow registers one hit for key and reports whether it fits the window.
func (l *windowLimiter) allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.ultimaPurga) > purgeInterval {
		l.purgar(now)
	}
	v, ok := l.entries[key]
	if !ok || now.After(v.fin) {
		v = &ventana{fin: now.Add(l.window)}
		l.entries[key] = v
	}
	v.count++
	return v.count <= l.limit, v.fin
}

func (l *windowLimiter) purgar(now time.Time) {
	purged := 0
	for k, v := range l.entries {
		if now.After(v.fin) {
			delete(l.entries, k)
			purged++
		}
	}
	l.ultimaPurga = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter purged")
	}
}

func (l *windowLimiter) handler(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, fin := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", fin.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newWindowLimiter(20, time.Minute).handler("Demasiados intentos de login. Intente en 1 minuto.")
}

// RateLimiter limits every client IP to limit requests per window.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newWindowLimiter(limit, window).handler("Demasiadas solicitudes. Intente nuevamente en un momento.")
}

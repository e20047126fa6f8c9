package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	"github.com/dropDatabas3/loandesk/internal/http/helpers"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/rate"
)

// WithRateLimit aplica un limiter de ventana fija keyed por (nombre, IP).
// Si el backend del limiter falla, el request pasa: el rate limit protege de
// abuso, no es parte de la corrección del flujo.
func WithRateLimit(l rate.Limiter, name string) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable, allowing request",
					logger.Op("middlewares.WithRateLimit"),
					logger.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				helpers.WriteError(w, r, apperr.New(http.StatusTooManyRequests, "rate_limited", "Demasiados intentos, probá más tarde"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

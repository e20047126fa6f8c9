package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	"github.com/dropDatabas3/loandesk/internal/http/helpers"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
)

// WithRecover convierte un panic del handler en un 500 logueado con stack.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Any("panic", rec),
						logger.String("stack", string(debug.Stack())),
					)
					helpers.WriteError(w, r, apperr.New(http.StatusInternalServerError, "internal_error", ""))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	"github.com/dropDatabas3/loandesk/internal/http/helpers"
	"github.com/dropDatabas3/loandesk/internal/rbac"
	"github.com/dropDatabas3/loandesk/internal/session"
)

// WithAuth exige una credencial bearer válida y deja el principal resuelto en
// el contexto.
func WithAuth(sessions *session.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := helpers.BearerToken(r)
			if token == "" {
				helpers.WriteError(w, r, apperr.Unauthorized("missing_token", "Falta el header Authorization"))
				return
			}
			p, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				helpers.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(setPrincipal(r.Context(), p, token)))
		})
	}
}

// RequirePermission corta con 403 si el principal no tiene el permiso. Debe
// correr después de WithAuth.
func RequirePermission(perm rbac.Permission) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				helpers.WriteError(w, r, apperr.Unauthorized("missing_token", "Falta el header Authorization"))
				return
			}
			if !rbac.HasPermission(p.User, perm, p.Tenant.Settings) {
				helpers.WriteError(w, r, apperr.Forbidden("permission_denied", "No tenés permiso para esta operación"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

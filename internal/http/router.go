// Package http arma el router y el servidor del servicio.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/loandesk/internal/http/controllers/auth"
	invitesctrl "github.com/dropDatabas3/loandesk/internal/http/controllers/invites"
	mectrl "github.com/dropDatabas3/loandesk/internal/http/controllers/me"
	mw "github.com/dropDatabas3/loandesk/internal/http/middlewares"
	"github.com/dropDatabas3/loandesk/internal/invite"
	"github.com/dropDatabas3/loandesk/internal/rate"
	"github.com/dropDatabas3/loandesk/internal/rbac"
	"github.com/dropDatabas3/loandesk/internal/session"
	"github.com/dropDatabas3/loandesk/internal/store/core"
)

// Deps son las dependencias del router, ya construidas por el comando serve.
type Deps struct {
	Sessions *session.Service
	Invites  *invite.Manager
	Repo     core.Repository

	// Limiters por grupo de endpoints. nil desactiva el límite del grupo.
	LoginLimiter  rate.Limiter
	OTPLimiter    rate.Limiter
	InviteLimiter rate.Limiter
}

// NewRouter arma el árbol de rutas completo.
func NewRouter(d Deps) http.Handler {
	authC := authctrl.NewController(d.Sessions)
	invC := invitesctrl.NewController(d.Invites)
	meC := mectrl.NewController(d.Sessions)

	base := []mw.Middleware{mw.WithRequestID(), mw.WithRecover()}
	requireAuth := mw.WithAuth(d.Sessions)

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.Repo.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handle := func(method, pattern string, h http.HandlerFunc, extra ...mw.Middleware) {
		mws := append(append([]mw.Middleware{}, base...), mw.WithLogging(pattern))
		mws = append(mws, extra...)
		r.Method(method, pattern, mw.Chain(h, mws...))
	}

	// ---- auth ----
	handle(http.MethodPost, "/v1/auth/login", authC.Login, mw.WithRateLimit(d.LoginLimiter, "login"))
	handle(http.MethodGet, "/v1/auth/verify", authC.Verify)
	handle(http.MethodPost, "/v1/auth/otp/issue", authC.OTPIssue, mw.WithRateLimit(d.OTPLimiter, "otp"))
	handle(http.MethodPost, "/v1/auth/otp/verify", authC.OTPVerify, mw.WithRateLimit(d.OTPLimiter, "otp"))
	handle(http.MethodPost, "/v1/auth/logout", authC.Logout, requireAuth)

	// ---- me ----
	handle(http.MethodGet, "/v1/me/permissions", meC.Permissions, requireAuth)
	handle(http.MethodGet, "/v1/me/routes", meC.Routes, requireAuth)

	// ---- invitations ----
	// Accept es público: la credencial es el token que viaja en el email.
	handle(http.MethodPost, "/v1/invitations/accept", invC.Accept)
	handle(http.MethodPost, "/v1/invitations", invC.Create,
		mw.WithRateLimit(d.InviteLimiter, "invitations"), requireAuth, mw.RequirePermission(rbac.PermUsersInvite))
	handle(http.MethodPost, "/v1/invitations/{id}/resend", invC.Resend,
		mw.WithRateLimit(d.InviteLimiter, "invitations"), requireAuth, mw.RequirePermission(rbac.PermUsersInvite))
	handle(http.MethodDelete, "/v1/invitations/{id}", invC.Cancel,
		requireAuth, mw.RequirePermission(rbac.PermUsersInvite))

	return r
}

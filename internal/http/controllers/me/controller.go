// Package me expone las consultas del usuario autenticado.
package me

import (
	"net/http"

	dto "github.com/dropDatabas3/loandesk/internal/http/dto/me"
	"github.com/dropDatabas3/loandesk/internal/http/helpers"
	"github.com/dropDatabas3/loandesk/internal/http/middlewares"
	"github.com/dropDatabas3/loandesk/internal/session"
)

type Controller struct {
	sessions *session.Service
}

func NewController(sessions *session.Service) *Controller {
	return &Controller{sessions: sessions}
}

// Permissions maneja GET /v1/me/permissions.
func (c *Controller) Permissions(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())
	helpers.WriteJSON(w, http.StatusOK, dto.PermissionsResponse{
		Permissions: c.sessions.Permissions(p),
	})
}

// Routes maneja GET /v1/me/routes. Con ?path= responde solo el check de esa
// ruta (para que la UI valide navegación puntual sin traer la lista).
func (c *Controller) Routes(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())

	if path := r.URL.Query().Get("path"); path != "" {
		helpers.WriteJSON(w, http.StatusOK, dto.RouteCheckResponse{
			Path:      path,
			CanAccess: c.sessions.CanAccess(p, path),
		})
		return
	}

	res := c.sessions.Routes(p)
	helpers.WriteJSON(w, http.StatusOK, dto.RoutesResponse{
		Routes:     res.Routes,
		RedirectTo: res.RedirectTo,
	})
}

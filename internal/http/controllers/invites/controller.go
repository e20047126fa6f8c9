// Package invites expone los endpoints del ciclo de vida de invitaciones.
package invites

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	dtoauth "github.com/dropDatabas3/loandesk/internal/http/dto/auth"
	dto "github.com/dropDatabas3/loandesk/internal/http/dto/invites"
	"github.com/dropDatabas3/loandesk/internal/http/helpers"
	"github.com/dropDatabas3/loandesk/internal/http/middlewares"
	"github.com/dropDatabas3/loandesk/internal/invite"
	"github.com/dropDatabas3/loandesk/internal/rbac"
	"github.com/dropDatabas3/loandesk/internal/store/core"
)

type Controller struct {
	manager *invite.Manager
}

func NewController(manager *invite.Manager) *Controller {
	return &Controller{manager: manager}
}

// Create maneja POST /v1/invitations. Requiere sesión con users:invite.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())
	var req dto.CreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	inv, err := c.manager.Send(r.Context(), invite.SendInput{
		TenantID:          p.Tenant.ID,
		InviterID:         p.User.ID,
		Email:             req.Email,
		Class:             core.InviteeClass(req.Class),
		Role:              core.Role(req.Role),
		CustomPermissions: req.CustomPermissions,
		Message:           req.Message,
	})
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, invitationPayload(inv))
}

// Accept maneja POST /v1/invitations/accept. Público: la credencial es el
// token de la invitación.
func (c *Controller) Accept(w http.ResponseWriter, r *http.Request) {
	var req dto.AcceptRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		helpers.WriteError(w, r, apperr.Validation("missing_token", "Falta el token de la invitación"))
		return
	}

	res, err := c.manager.Accept(r.Context(), invite.AcceptInput{
		Token: req.Token,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	perms := rbac.PermissionsFor(res.User, res.Tenant.Settings)
	permStrs := make([]string, len(perms))
	for i, pm := range perms {
		permStrs[i] = string(pm)
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.AcceptResponse{
		SessionToken: res.SessionToken,
		TokenType:    "Bearer",
		RedirectTo:   rbac.RedirectRouteFor(res.User.Role),
		User:         dtoauth.NewUserPayload(res.User),
		Tenant:       dtoauth.NewTenantPayload(res.Tenant),
		Permissions:  permStrs,
	})
}

// Resend maneja POST /v1/invitations/{id}/resend: re-despacha el MISMO token.
func (c *Controller) Resend(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	inv, err := c.manager.Resend(r.Context(), p.Tenant.ID, p.User.ID, id)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, invitationPayload(inv))
}

// Cancel maneja DELETE /v1/invitations/{id}.
func (c *Controller) Cancel(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := c.manager.Cancel(r.Context(), p.Tenant.ID, p.User.ID, id); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func invitationPayload(inv *core.Invitation) dto.InvitationPayload {
	return dto.InvitationPayload{
		ID:        inv.ID,
		Email:     inv.Email,
		Class:     string(inv.InviteeClass),
		Role:      string(inv.Role),
		Status:    string(inv.Status),
		Message:   inv.Message,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

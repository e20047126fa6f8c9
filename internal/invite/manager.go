// Package invite implementa el ciclo de vida de invitaciones: send, accept,
// cancel y resend. Cada invitación envuelve un token de un solo uso; el estado
// de la invitación y el del token avanzan juntos pero no son el mismo registro.
package invite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	"github.com/dropDatabas3/loandesk/internal/audit"
	"github.com/dropDatabas3/loandesk/internal/metrics"
	"github.com/dropDatabas3/loandesk/internal/notify"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/rbac"
	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/tokenstore"
	"github.com/dropDatabas3/loandesk/internal/validation"
)

// Errores del ciclo de vida, distinguibles para que el controller no tenga que
// adivinar el status.
var (
	ErrBadEmail        = apperr.Validation("invalid_email", "Email inválido")
	ErrBadClass        = apperr.Validation("invalid_invitee_class", "Clase de invitado inválida")
	ErrNotAllowed      = apperr.Forbidden("invite_forbidden", "El usuario no puede invitar en este workspace")
	ErrAlreadyMember   = apperr.Conflict("already_member", "El email ya es miembro del workspace")
	ErrAlreadyPending  = apperr.Conflict("invitation_pending", "Ya existe una invitación pendiente para ese email")
	ErrInviteNotFound  = apperr.NotFound("invitation_not_found", "Invitación no encontrada")
	ErrTokenConsumed   = apperr.Gone("invitation_used", "La invitación ya fue aceptada")
	ErrInviteExpired   = apperr.Gone("invitation_expired", "La invitación expiró")
	ErrInviteNotActive = apperr.Conflict("invitation_not_pending", "La invitación ya no está pendiente")
)

type Manager struct {
	repo       core.Repository
	tokens     *tokenstore.Service
	dispatcher *notify.Dispatcher
	auditor    *audit.Recorder
	baseURL    string

	// now es inyectable para tests.
	now func() time.Time
}

func NewManager(repo core.Repository, tokens *tokenstore.Service, dispatcher *notify.Dispatcher, auditor *audit.Recorder, baseURL string) *Manager {
	return &Manager{
		repo:       repo,
		tokens:     tokens,
		dispatcher: dispatcher,
		auditor:    auditor,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

// SetNow fija el reloj del manager (solo tests).
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

// AcceptURL construye la URL que viaja en el email de invitación.
func (m *Manager) AcceptURL(plaintext string) string {
	return fmt.Sprintf("%s/invitations/accept?token=%s", m.baseURL, url.QueryEscape(plaintext))
}

// SendInput es la solicitud de una invitación nueva.
type SendInput struct {
	TenantID  string
	InviterID string
	Email     string
	Class     core.InviteeClass
	// Role permite pisar el rol por defecto de la clase. Vacío usa el default.
	Role              core.Role
	CustomPermissions []string
	Message           string
}

// Send valida y crea una invitación, emite su token y despacha el email.
//
// Los checks corren en orden fijo y cada fallo es distinguible: email
// inválido, clase inválida, inviter sin permiso, email ya miembro, invitación
// pendiente duplicada.
func (m *Manager) Send(ctx context.Context, in SendInput) (*core.Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.ValidEmail(email) {
		return nil, ErrBadEmail
	}
	if !core.ValidInviteeClass(in.Class) {
		return nil, ErrBadClass
	}
	role := in.Role
	if role == "" {
		role = rbac.DefaultRoleForClass(in.Class)
	}
	if !core.ValidRole(role) {
		return nil, apperr.Validation("invalid_role", "Rol inválido")
	}

	inviter, err := m.repo.GetUser(ctx, in.InviterID)
	if err != nil {
		return nil, apperr.From(err)
	}
	tenant, err := m.repo.GetTenant(ctx, in.TenantID)
	if err != nil {
		return nil, apperr.From(err)
	}
	if inviter.TenantID != tenant.ID || !rbac.CanInviteUsers(inviter, tenant.Settings) {
		return nil, ErrNotAllowed
	}

	if _, err := m.repo.GetUserByEmail(ctx, tenant.ID, email); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, apperr.From(err)
	}
	if _, err := m.repo.GetPendingInvitation(ctx, tenant.ID, email); err == nil {
		return nil, ErrAlreadyPending
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, apperr.From(err)
	}

	plaintext, token, err := m.tokens.IssueInvite(ctx, tokenstore.InvitePayload{
		Email:             email,
		TenantID:          tenant.ID,
		InviteeClass:      in.Class,
		Role:              role,
		CustomPermissions: in.CustomPermissions,
		Message:           in.Message,
		InviterID:         inviter.ID,
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	now := m.now().UTC()
	inv := &core.Invitation{
		ID:                uuid.NewString(),
		TenantID:          tenant.ID,
		Email:             email,
		InviteeClass:      in.Class,
		Role:              role,
		CustomPermissions: in.CustomPermissions,
		Message:           in.Message,
		InviterID:         inviter.ID,
		TokenID:           token.ID,
		Status:            core.InvitePending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.repo.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Carrera perdida contra otro send concurrente.
			return nil, ErrAlreadyPending
		}
		return nil, apperr.From(err)
	}

	inviterName := inviter.Name
	if inviterName == "" {
		inviterName = inviter.Email
	}
	subject, html, text := notify.InvitationMessage(in.Class, tenant.Name, inviterName, m.AcceptURL(plaintext), in.Message)
	m.dispatcher.Dispatch(ctx, email, subject, html, text)

	metrics.Invitations.WithLabelValues("sent").Inc()
	m.auditor.Record(ctx, tenant.ID, inviter.ID, "invitation.sent", map[string]any{
		"invitation_id": inv.ID,
		"email":         email,
		"class":         string(in.Class),
		"role":          string(role),
	})
	logger.From(ctx).Info("invitation sent",
		logger.Op("invite.Send"),
		logger.InvitationID(inv.ID),
		logger.TenantID(tenant.ID),
		logger.Email(email),
	)
	return inv, nil
}

// AcceptInput lleva los datos de perfil que el invitado completa al aceptar.
type AcceptInput struct {
	Token string
	Name  string
	Phone string
}

// AcceptResult es el desenlace de una aceptación.
type AcceptResult struct {
	Invitation *core.Invitation
	User       *core.User
	Tenant     *core.Tenant
	// ClientRecord solo se crea para invitaciones de clase client.
	ClientRecord *core.ClientRecord
	// SessionToken es la credencial del invitado recién aceptado.
	SessionToken string
}

// Accept canjea el token de una invitación y materializa la membresía: crea el
// usuario (o promueve al existente), el client record si aplica, y marca la
// invitación como aceptada.
//
// Un token vencido marca la invitación como expirada en el mismo paso (no hay
// sweep de fondo) y devuelve un estado terminal. Reintentar la aceptación de
// un token ya usado también es terminal.
func (m *Manager) Accept(ctx context.Context, in AcceptInput) (*AcceptResult, error) {
	token, err := m.tokens.RedeemInvite(ctx, in.Token)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			m.expireByPlaintext(ctx, in.Token)
			return nil, ErrInviteExpired
		case errors.Is(err, core.ErrTokenUsed):
			return nil, ErrTokenConsumed
		case errors.Is(err, core.ErrNotFound):
			return nil, ErrInviteNotFound
		default:
			return nil, apperr.From(err)
		}
	}

	inv, err := m.repo.GetInvitationByTokenID(ctx, token.ID)
	if err != nil {
		return nil, apperr.From(err)
	}
	if inv.Status != core.InvitePending {
		if inv.Status == core.InviteExpired {
			return nil, ErrInviteExpired
		}
		return nil, ErrInviteNotActive
	}

	tenant, err := m.repo.GetTenant(ctx, inv.TenantID)
	if err != nil {
		return nil, apperr.From(err)
	}

	user, err := m.materializeUser(ctx, inv, in)
	if err != nil {
		return nil, err
	}

	var client *core.ClientRecord
	if inv.InviteeClass == core.InviteeClient {
		client = &core.ClientRecord{
			ID:        uuid.NewString(),
			TenantID:  tenant.ID,
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			CreatedAt: m.now().UTC(),
		}
		if err := m.repo.CreateClientRecord(ctx, client); err != nil {
			return nil, apperr.From(err)
		}
	}

	upd := core.InvitationUpdate{
		Status:         ptr(core.InviteAccepted),
		AcceptedUserID: &user.ID,
	}
	if client != nil {
		upd.AcceptedClientID = &client.ID
	}
	inv, err = m.repo.UpdateInvitation(ctx, inv.ID, upd)
	if err != nil {
		return nil, apperr.From(err)
	}

	metrics.Invitations.WithLabelValues("accepted").Inc()
	m.auditor.Record(ctx, tenant.ID, user.ID, "invitation.accepted", map[string]any{
		"invitation_id": inv.ID,
		"email":         user.Email,
		"class":         string(inv.InviteeClass),
	})
	logger.From(ctx).Info("invitation accepted",
		logger.Op("invite.Accept"),
		logger.InvitationID(inv.ID),
		logger.TenantID(tenant.ID),
		logger.UserID(user.ID),
	)

	// El plaintext recién canjeado queda como credencial de sesión del
	// invitado: mismo contrato que el verify de un magic link.
	return &AcceptResult{
		Invitation:   inv,
		User:         user,
		Tenant:       tenant,
		ClientRecord: client,
		SessionToken: in.Token,
	}, nil
}

// materializeUser crea el usuario invitado o promueve al existente al rol y
// permisos de la invitación.
func (m *Manager) materializeUser(ctx context.Context, inv *core.Invitation, in AcceptInput) (*core.User, error) {
	existing, err := m.repo.GetUserByEmail(ctx, inv.TenantID, inv.Email)
	switch {
	case err == nil:
		now := m.now().UTC()
		upd := core.UserUpdate{
			Role:         &inv.Role,
			Status:       ptr(core.UserActive),
			LastActiveAt: &now,
		}
		if len(inv.CustomPermissions) > 0 {
			merged := mergePerms(existing.CustomPermissions, inv.CustomPermissions)
			upd.CustomPermissions = &merged
		}
		if in.Name != "" {
			upd.Name = &in.Name
		}
		if in.Phone != "" {
			upd.Phone = &in.Phone
		}
		u, err := m.repo.UpdateUser(ctx, existing.ID, upd)
		if err != nil {
			return nil, apperr.From(err)
		}
		return u, nil
	case errors.Is(err, core.ErrNotFound):
		now := m.now().UTC()
		u := &core.User{
			ID:                uuid.NewString(),
			TenantID:          inv.TenantID,
			Email:             inv.Email,
			Name:              in.Name,
			Phone:             in.Phone,
			Role:              inv.Role,
			Status:            core.UserActive,
			CustomPermissions: inv.CustomPermissions,
			LastActiveAt:      &now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := m.repo.CreateUser(ctx, u); err != nil {
			return nil, apperr.From(err)
		}
		return u, nil
	default:
		return nil, apperr.From(err)
	}
}

// Cancel marca una invitación pending como cancelled. El token no se toca: un
// canje posterior fallará por el status de la invitación, no por el token.
func (m *Manager) Cancel(ctx context.Context, tenantID, actorID, invitationID string) (*core.Invitation, error) {
	inv, err := m.repo.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, apperr.From(err)
	}
	if inv.TenantID != tenantID {
		// No se revela la existencia de invitaciones de otros tenants.
		return nil, ErrInviteNotFound
	}
	if inv.Status != core.InvitePending {
		return nil, ErrInviteNotActive
	}

	inv, err = m.repo.UpdateInvitation(ctx, inv.ID, core.InvitationUpdate{Status: ptr(core.InviteCancelled)})
	if err != nil {
		return nil, apperr.From(err)
	}

	metrics.Invitations.WithLabelValues("cancelled").Inc()
	m.auditor.Record(ctx, tenantID, actorID, "invitation.cancelled", map[string]any{
		"invitation_id": inv.ID,
		"email":         inv.Email,
	})
	return inv, nil
}

// Resend re-despacha el MISMO token de una invitación pending: no se emite uno
// nuevo ni se extiende la expiración. Si el token ya venció, la invitación se
// marca expirada y el resend falla.
func (m *Manager) Resend(ctx context.Context, tenantID, actorID, invitationID string) (*core.Invitation, error) {
	inv, err := m.repo.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, apperr.From(err)
	}
	if inv.TenantID != tenantID {
		return nil, ErrInviteNotFound
	}
	if inv.Status != core.InvitePending {
		return nil, ErrInviteNotActive
	}

	token, err := m.tokens.PeekInvite(ctx, inv.TokenID)
	if err != nil {
		return nil, apperr.From(err)
	}
	if m.tokens.Expired(token) {
		inv, uerr := m.repo.UpdateInvitation(ctx, inv.ID, core.InvitationUpdate{Status: ptr(core.InviteExpired)})
		if uerr == nil {
			metrics.Invitations.WithLabelValues("expired").Inc()
			m.auditor.Record(ctx, tenantID, actorID, "invitation.expired", map[string]any{
				"invitation_id": inv.ID,
			})
		}
		return nil, ErrInviteExpired
	}

	tenant, err := m.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, apperr.From(err)
	}
	inviterName := ""
	if inviter, err := m.repo.GetUser(ctx, inv.InviterID); err == nil {
		inviterName = inviter.Name
		if inviterName == "" {
			inviterName = inviter.Email
		}
	}

	subject, html, text := notify.InvitationMessage(inv.InviteeClass, tenant.Name, inviterName, m.AcceptURL(token.Secret), inv.Message)
	m.dispatcher.Dispatch(ctx, inv.Email, subject, html, text)

	metrics.Invitations.WithLabelValues("resent").Inc()
	m.auditor.Record(ctx, tenantID, actorID, "invitation.resent", map[string]any{
		"invitation_id": inv.ID,
		"email":         inv.Email,
	})
	return inv, nil
}

// expireByPlaintext marca como expirada la invitación cuyo token venció
// durante un intento de accept. Expiración lazy: este es el único punto donde
// el vencimiento del token se refleja en la invitación al aceptar.
func (m *Manager) expireByPlaintext(ctx context.Context, plaintext string) {
	token, err := m.tokens.FindInvite(ctx, plaintext)
	if err != nil {
		return
	}
	inv, err := m.repo.GetInvitationByTokenID(ctx, token.ID)
	if err != nil || inv.Status != core.InvitePending {
		return
	}
	if _, err := m.repo.UpdateInvitation(ctx, inv.ID, core.InvitationUpdate{Status: ptr(core.InviteExpired)}); err == nil {
		metrics.Invitations.WithLabelValues("expired").Inc()
		m.auditor.Record(ctx, inv.TenantID, "system", "invitation.expired", map[string]any{
			"invitation_id": inv.ID,
		})
	}
}

func mergePerms(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range append(append([]string{}, base...), extra...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

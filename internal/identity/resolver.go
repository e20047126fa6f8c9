// Package identity resuelve credenciales verificadas a un par (user, tenant),
// creando lo que falte: usuario nuevo en tenant existente, o tenant completo
// con suscripción trial y primer advisor.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/loandesk/internal/audit"
	"github.com/dropDatabas3/loandesk/internal/metrics"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/store/core"
)

type Config struct {
	// TrialDays es la duración del trial sembrado al crear un tenant.
	TrialDays int
}

type Resolver struct {
	repo    core.Repository
	auditor *audit.Recorder
	cfg     Config

	// now es inyectable para tests.
	now func() time.Time
}

func NewResolver(repo core.Repository, auditor *audit.Recorder, cfg Config) *Resolver {
	if cfg.TrialDays <= 0 {
		cfg.TrialDays = 14
	}
	return &Resolver{repo: repo, auditor: auditor, cfg: cfg, now: time.Now}
}

// SetNow fija el reloj del resolver (solo tests).
func (r *Resolver) SetNow(now func() time.Time) { r.now = now }

// Result es el desenlace de una resolución: qué user y tenant quedaron
// vigentes y si alguno se creó en esta llamada.
type Result struct {
	User      *core.User
	Tenant    *core.Tenant
	NewUser   bool
	NewTenant bool
}

// ResolveOrCreate mapea un email verificado a su usuario y workspace.
//
//   - Si tenantRef (slug o id) resuelve a un tenant existente y el email ya es
//     miembro, solo se actualiza LastActiveAt.
//   - Si el tenant existe pero el email no es miembro, se crea el usuario con
//     el rol dado (advisor por defecto).
//   - Si tenantRef no resuelve, se hace bootstrap de un tenant nuevo usando
//     tenantRef como nombre, con suscripción trial y el email como advisor.
//   - Sin tenantRef, se busca el email en todos los tenants y se elige la
//     membresía más antigua; si no hay ninguna, el bootstrap deriva el nombre
//     del workspace de la parte local del email.
func (r *Resolver) ResolveOrCreate(ctx context.Context, email, tenantRef string, role core.Role) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	tenant, err := r.resolveTenant(ctx, email, tenantRef)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		name := tenantRef
		if name == "" {
			name = workspaceNameFor(email)
		}
		return r.Bootstrap(ctx, email, name)
	}

	u, err := r.repo.GetUserByEmail(ctx, tenant.ID, email)
	switch {
	case err == nil:
		now := r.now().UTC()
		u, err = r.repo.UpdateUser(ctx, u.ID, core.UserUpdate{LastActiveAt: &now})
		if err != nil {
			return nil, err
		}
		return &Result{User: u, Tenant: tenant}, nil
	case errors.Is(err, core.ErrNotFound):
		u, err = r.createUser(ctx, tenant.ID, email, role)
		if err != nil {
			return nil, err
		}
		return &Result{User: u, Tenant: tenant, NewUser: true}, nil
	default:
		return nil, err
	}
}

func (r *Resolver) resolveTenant(ctx context.Context, email, tenantRef string) (*core.Tenant, error) {
	if tenantRef == "" {
		users, err := r.repo.FindUsersByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return nil, nil
		}
		return r.repo.GetTenant(ctx, users[0].TenantID)
	}

	t, err := r.repo.GetTenantBySlug(ctx, Slugify(tenantRef))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	t, err = r.repo.GetTenant(ctx, tenantRef)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// Bootstrap crea un workspace nuevo con suscripción trial y su primer usuario
// advisor. Si otro request gana la carrera por el slug, se reutiliza el tenant
// ya creado en vez de fallar.
func (r *Resolver) Bootstrap(ctx context.Context, email, tenantName string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	slug := Slugify(tenantName)
	if slug == "" {
		return nil, core.ErrInvalid
	}

	now := r.now().UTC()
	tenant := &core.Tenant{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(tenantName),
		Slug:   slug,
		Status: core.TenantTrial,
		Tier:   "trial",
		Settings: core.PolicySettings{
			AllowSelfRegistration: false,
			RequireApproval:       false,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	newTenant := true
	err := r.repo.CreateTenant(ctx, tenant)
	switch {
	case err == nil:
		sub := &core.Subscription{
			ID:          uuid.NewString(),
			TenantID:    tenant.ID,
			Tier:        "trial",
			Status:      "trialing",
			TrialEndsAt: now.Add(time.Duration(r.cfg.TrialDays) * 24 * time.Hour),
			CreatedAt:   now,
		}
		if err := r.repo.CreateSubscription(ctx, sub); err != nil {
			return nil, err
		}
		metrics.TenantsCreated.Inc()
		r.auditor.Record(ctx, tenant.ID, "system", "tenant.created", map[string]any{
			"slug":           tenant.Slug,
			"trial_ends_at":  sub.TrialEndsAt,
			"bootstrap_from": email,
		})
		logger.From(ctx).Info("tenant bootstrapped",
			logger.Op("identity.Bootstrap"),
			logger.TenantID(tenant.ID),
			logger.TenantSlug(tenant.Slug),
		)
	case errors.Is(err, core.ErrConflict):
		// Carrera perdida: el slug ya existe, seguimos sobre ese tenant.
		newTenant = false
		tenant, err = r.repo.GetTenantBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if u, err := r.repo.GetUserByEmail(ctx, tenant.ID, email); err == nil {
			ts := r.now().UTC()
			u, err = r.repo.UpdateUser(ctx, u.ID, core.UserUpdate{LastActiveAt: &ts})
			if err != nil {
				return nil, err
			}
			return &Result{User: u, Tenant: tenant}, nil
		} else if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
	default:
		return nil, err
	}

	u, err := r.createUser(ctx, tenant.ID, email, core.RoleAdvisor)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, Tenant: tenant, NewUser: true, NewTenant: newTenant}, nil
}

func (r *Resolver) createUser(ctx context.Context, tenantID, email string, role core.Role) (*core.User, error) {
	if role == "" {
		role = core.RoleAdvisor
	}
	now := r.now().UTC()
	u := &core.User{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Email:        email,
		Role:         role,
		Status:       core.UserActive,
		LastActiveAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	r.auditor.Record(ctx, tenantID, "system", "user.created", map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    string(u.Role),
	})
	return u, nil
}

// workspaceNameFor deriva un nombre de workspace de la parte local del email.
func workspaceNameFor(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	return local
}

package core

import "context"

// Repository es el contrato de persistencia del core. Lo implementan el
// adapter Postgres (producción) y el adapter memory (tests / desarrollo).
//
// Toda exclusión mutua viene de la garantía de escritura condicional por
// registro del store: no hay locks en memoria compartidos entre requests.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// ---- users ----
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	// GetUserByEmail busca por email dentro de un tenant (el email no es
	// único globalmente).
	GetUserByEmail(ctx context.Context, tenantID, email string) (*User, error)
	// FindUsersByEmail busca en todos los tenants, ordenado por antigüedad.
	// Lo usa el flujo OTP, que está scoped al email y no al tenant.
	FindUsersByEmail(ctx context.Context, email string) ([]*User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)

	// ---- tenants ----
	// CreateTenant es insert-if-absent sobre el slug: si ya existe un tenant
	// con ese slug devuelve ErrConflict. Esto convierte el check-then-insert
	// del sistema original en una operación atómica.
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	UpdateTenant(ctx context.Context, id string, upd TenantUpdate) (*Tenant, error)

	// ---- subscriptions ----
	CreateSubscription(ctx context.Context, s *Subscription) error

	// ---- client records ----
	CreateClientRecord(ctx context.Context, c *ClientRecord) error

	// ---- tokens ----
	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, id string) (*Token, error)
	GetTokenByHash(ctx context.Context, kind TokenKind, hash string) (*Token, error)
	// RedeemToken es un check-and-set atómico: marca used=true y devuelve el
	// payload solo si el token existe, used=false y no expiró. Debe ser un
	// update condicional, no un read seguido de write. Fallos distinguibles:
	// ErrNotFound, ErrTokenUsed, ErrTokenExpired.
	RedeemToken(ctx context.Context, kind TokenKind, hash string) (*Token, error)

	// ---- invitations ----
	// CreateInvitation devuelve ErrConflict si ya existe una invitación
	// pending para el mismo (email, tenant).
	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitation(ctx context.Context, id string) (*Invitation, error)
	GetInvitationByTokenID(ctx context.Context, tokenID string) (*Invitation, error)
	GetPendingInvitation(ctx context.Context, tenantID, email string) (*Invitation, error)
	UpdateInvitation(ctx context.Context, id string, upd InvitationUpdate) (*Invitation, error)

	// ---- audit ----
	AppendAuditLog(ctx context.Context, e *AuditLogEntry) error
}

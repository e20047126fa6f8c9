package core

import "time"

// Role es el rol de un usuario dentro de su tenant. Conjunto cerrado.
type Role string

const (
	RoleAdvisor Role = "advisor"
	RoleStaff   Role = "staff"
	RoleClient  Role = "client"
	RolePartner Role = "partner"
)

// ValidRole reporta si r pertenece al conjunto cerrado de roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdvisor, RoleStaff, RoleClient, RolePartner:
		return true
	}
	return false
}

// UserStatus es el estado de ciclo de vida de un usuario.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserPending   UserStatus = "pending"
	UserSuspended UserStatus = "suspended"
)

// User es un usuario de un workspace. El email es único por tenant, no global.
type User struct {
	ID       string
	TenantID string
	Email    string
	Name     string
	Phone    string
	Role     Role
	Status   UserStatus
	// CustomPermissions son overrides aditivos sobre el set base del rol.
	// Nunca quitan permisos.
	CustomPermissions []string
	LastActiveAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UserUpdate es una actualización parcial explícita: solo los campos no-nil
// se aplican. Reemplaza el patrón "spread condicional" del sistema original.
type UserUpdate struct {
	Name              *string
	Phone             *string
	Role              *Role
	Status            *UserStatus
	CustomPermissions *[]string
	LastActiveAt      *time.Time
}

// TenantStatus es el estado de ciclo de vida de un workspace.
type TenantStatus string

const (
	TenantTrial     TenantStatus = "trial"
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// PolicySettings son las políticas del tenant que afectan autorización.
type PolicySettings struct {
	AllowSelfRegistration bool   `json:"allow_self_registration"`
	RequireApproval       bool   `json:"require_approval"`
	BrandColor            string `json:"brand_color,omitempty"`
	LogoURL               string `json:"logo_url,omitempty"`
}

// Tenant es un workspace aislado: todos los usuarios, clientes y expedientes
// de préstamo pertenecen a exactamente un tenant.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Status    TenantStatus
	Tier      string
	Settings  PolicySettings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantUpdate es una actualización parcial de un tenant.
type TenantUpdate struct {
	Name     *string
	Status   *TenantStatus
	Tier     *string
	Settings *PolicySettings
}

// Subscription es el registro de suscripción sembrado al crear un tenant.
type Subscription struct {
	ID          string
	TenantID    string
	Tier        string
	Status      string
	TrialEndsAt time.Time
	CreatedAt   time.Time
}

// ClientRecord es el expediente de cliente (prestatario) vinculado a un
// usuario con rol client. Se crea al aceptar una invitación de clase client.
type ClientRecord struct {
	ID        string
	TenantID  string
	UserID    string
	Email     string
	Name      string
	CreatedAt time.Time
}

// TokenKind distingue los tipos de token de un solo uso.
type TokenKind string

const (
	TokenMagicLink TokenKind = "magic_link"
	TokenOTP       TokenKind = "otp"
	TokenInvite    TokenKind = "invite"
	// TokenSession se emite en el verify de OTP: un código de 6 dígitos no
	// sirve como credencial bearer, así que se cambia por un token opaco.
	TokenSession TokenKind = "session"
)

// InviteeClass determina template de email y rol por defecto de una invitación.
type InviteeClass string

const (
	InviteeClient  InviteeClass = "client"
	InviteeStaff   InviteeClass = "staff"
	InviteePartner InviteeClass = "partner"
)

// ValidInviteeClass reporta si c pertenece al conjunto cerrado de clases.
func ValidInviteeClass(c InviteeClass) bool {
	switch c {
	case InviteeClient, InviteeStaff, InviteePartner:
		return true
	}
	return false
}

// Token es un token opaco de un solo uso. Solo se persiste el hash SHA-256
// del plaintext. Los tres tipos comparten la misma forma; los campos de
// payload de invitación quedan vacíos en los demás.
//
// Invariante: Used transiciona false→true a lo sumo una vez. Un token leído
// después de ExpiresAt se trata como expirado sin importar Used.
type Token struct {
	ID        string
	Kind      TokenKind
	TokenHash string
	// Secret es el plaintext y se persiste SOLO para tokens de invitación:
	// resend re-despacha el mismo token/URL sin emitir uno nuevo, así que el
	// plaintext tiene que ser recuperable. Los demás tipos guardan solo hash.
	Secret string
	Email  string
	TenantID  string
	// TenantSlug viaja en magic links para crear el tenant de forma lazy
	// durante la verificación.
	TenantSlug string

	// Payload de invitación.
	InviteeClass      InviteeClass
	Role              Role
	CustomPermissions []string
	Message           string
	InviterID         string

	Used      bool
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// InvitationStatus es el estado de ciclo de vida de una invitación.
type InvitationStatus string

const (
	InvitePending   InvitationStatus = "pending"
	InviteAccepted  InvitationStatus = "accepted"
	InviteExpired   InvitationStatus = "expired"
	InviteCancelled InvitationStatus = "cancelled"
)

// Invitation envuelve un token de invitación con su ciclo de vida.
//
// Invariante: a lo sumo una invitación pending por (email, tenant).
type Invitation struct {
	ID                string
	TenantID          string
	Email             string
	InviteeClass      InviteeClass
	Role              Role
	CustomPermissions []string
	Message           string
	InviterID         string
	TokenID           string
	Status            InvitationStatus
	AcceptedUserID    *string
	AcceptedClientID  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// InvitationUpdate es una actualización parcial de una invitación.
type InvitationUpdate struct {
	Status           *InvitationStatus
	AcceptedUserID   *string
	AcceptedClientID *string
}

// AuditLogEntry es un registro append-only. Nunca se muta ni se borra.
type AuditLogEntry struct {
	ID        string
	TenantID  string
	ActorID   string
	Action    string
	Details   map[string]any
	CreatedAt time.Time
}

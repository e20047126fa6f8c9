// Package invites define los contratos JSON de los endpoints de invitaciones.
package invites

import (
	"time"

	dtoauth "github.com/dropDatabas3/loandesk/internal/http/dto/auth"
)

// CreateRequest crea una invitación nueva.
type CreateRequest struct {
	Email string `json:"email"`
	// Class: client | staff | partner
	Class string `json:"class"`
	// Role pisa el rol por defecto de la clase (opcional).
	Role              string   `json:"role,omitempty"`
	CustomPermissions []string `json:"custom_permissions,omitempty"`
	Message           string   `json:"message,omitempty"`
}

// InvitationPayload es la proyección pública de una invitación.
type InvitationPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Class     string    `json:"class"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcceptRequest canjea el token de una invitación, con los datos de perfil
// que el invitado completa.
type AcceptRequest struct {
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AcceptResponse es la respuesta de una aceptación exitosa.
type AcceptResponse struct {
	SessionToken string                `json:"session_token"`
	TokenType    string                `json:"token_type"`
	RedirectTo   string                `json:"redirect_to"`
	User         dtoauth.UserPayload   `json:"user"`
	Tenant       dtoauth.TenantPayload `json:"tenant"`
	Permissions  []string              `json:"permissions"`
}

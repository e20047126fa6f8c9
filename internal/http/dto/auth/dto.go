// Package auth define los contratos JSON de los endpoints de autenticación.
package auth

// LoginRequest pide un magic link. Workspace es opcional: nombre o slug del
// tenant; si no existe, se crea de forma lazy al verificar.
type LoginRequest struct {
	Email     string `json:"email"`
	Workspace string `json:"workspace,omitempty"`
}

// OTPIssueRequest pide un código de un solo uso por email.
type OTPIssueRequest struct {
	Email string `json:"email"`
}

// OTPVerifyRequest canjea un código OTP.
type OTPVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// UserPayload es la proyección pública de un usuario.
type UserPayload struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// TenantPayload es la proyección pública de un workspace.
type TenantPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
	Tier   string `json:"tier"`
}

// VerifyResponse es la respuesta de un verify exitoso (magic link u OTP).
type VerifyResponse struct {
	SessionToken string        `json:"session_token"`
	TokenType    string        `json:"token_type"`
	RedirectTo   string        `json:"redirect_to"`
	User         UserPayload   `json:"user"`
	Tenant       TenantPayload `json:"tenant"`
	Permissions  []string      `json:"permissions"`
	NewUser      bool          `json:"new_user,omitempty"`
	NewTenant    bool          `json:"new_tenant,omitempty"`
}

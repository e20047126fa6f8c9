// Package auth expone los endpoints de sign-in passwordless.
package auth

import (
	"net/http"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	dto "github.com/dropDatabas3/loandesk/internal/http/dto/auth"
	"github.com/dropDatabas3/loandesk/internal/http/helpers"
	"github.com/dropDatabas3/loandesk/internal/http/middlewares"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/session"
)

type Controller struct {
	sessions *session.Service
}

func NewController(sessions *session.Service) *Controller {
	return &Controller{sessions: sessions}
}

// Login maneja POST /v1/auth/login: emite y despacha un magic link.
// Responde 204 exista o no el email (anti-enumeración).
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := c.sessions.Login(r.Context(), req.Email, req.Workspace); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify maneja GET /v1/auth/verify?token=...: canjea el magic link y abre la
// sesión.
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		helpers.WriteError(w, r, apperr.Validation("missing_token", "Falta el parámetro token"))
		return
	}

	result, err := c.sessions.VerifyMagicLink(r.Context(), token)
	if err != nil {
		logger.From(r.Context()).Debug("magic link verify failed", logger.Err(err))
		helpers.WriteError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, verifyResponse(result))
}

// OTPIssue maneja POST /v1/auth/otp/issue. Misma política anti-enumeración
// que Login.
func (c *Controller) OTPIssue(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPIssueRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := c.sessions.IssueOTP(r.Context(), req.Email); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OTPVerify maneja POST /v1/auth/otp/verify: canjea el código y emite un
// token de sesión opaco.
func (c *Controller) OTPVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPVerifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.sessions.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		logger.From(r.Context()).Debug("otp verify failed", logger.Err(err))
		helpers.WriteError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, verifyResponse(result))
}

// Logout maneja POST /v1/auth/logout. Requiere sesión: solo invalida el cache
// del principal, el token expira solo.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	c.sessions.Logout(r.Context(), middlewares.GetSessionToken(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func verifyResponse(res *session.VerifyResult) dto.VerifyResponse {
	return dto.VerifyResponse{
		SessionToken: res.SessionToken,
		TokenType:    "Bearer",
		RedirectTo:   res.RedirectTo,
		User:         dto.NewUserPayload(res.User),
		Tenant:       dto.NewTenantPayload(res.Tenant),
		Permissions:  res.Permissions,
		NewUser:      res.NewUser,
		NewTenant:    res.NewTenant,
	}
}

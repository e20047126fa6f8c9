// Package tokenstore emite y canjea los tokens de un solo uso del sistema:
// magic links, códigos OTP, invitaciones y tokens de sesión.
//
// Solo se persiste el hash SHA-256 del plaintext. El canje es un check-and-set
// atómico delegado en el repositorio; la expiración se evalúa lazy en el canje
// (no hay sweep de fondo que purgue tokens vencidos).
package tokenstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/loandesk/internal/metrics"
	sectoken "github.com/dropDatabas3/loandesk/internal/security/token"
	"github.com/dropDatabas3/loandesk/internal/store/core"
)

const (
	opaqueBytes = 32
	otpDigits   = 6
)

// Config con los TTL por tipo de token.
type Config struct {
	MagicLinkTTL  time.Duration
	OTPTTL        time.Duration
	InvitationTTL time.Duration
}

type Service struct {
	repo core.Repository
	cfg  Config

	// now es inyectable para tests.
	now func() time.Time
}

func New(repo core.Repository, cfg Config) *Service {
	if cfg.MagicLinkTTL <= 0 {
		cfg.MagicLinkTTL = 15 * time.Minute
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// SetNow fija el reloj del servicio (solo tests).
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// InvitePayload es el payload que viaja dentro de un token de invitación.
type InvitePayload struct {
	Email             string
	TenantID          string
	InviteeClass      core.InviteeClass
	Role              core.Role
	CustomPermissions []string
	Message           string
	InviterID         string
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// otpHash liga el código al email: el mismo código emitido a dos emails
// distintos produce hashes distintos.
func otpHash(email, code string) string {
	return sectoken.SHA256Base64URL(normEmail(email) + ":" + code)
}

func (s *Service) create(ctx context.Context, t *core.Token) error {
	if err := s.repo.CreateToken(ctx, t); err != nil {
		return err
	}
	metrics.TokensIssued.WithLabelValues(string(t.Kind)).Inc()
	return nil
}

// IssueMagicLink emite un magic link. Pueden coexistir varios vigentes para
// el mismo email: dos requests de login son dos tokens.
func (s *Service) IssueMagicLink(ctx context.Context, email, tenantSlug string) (string, error) {
	plaintext, err := sectoken.GenerateOpaqueToken(opaqueBytes)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	t := &core.Token{
		ID:         uuid.NewString(),
		Kind:       core.TokenMagicLink,
		TokenHash:  sectoken.SHA256Base64URL(plaintext),
		Email:      normEmail(email),
		TenantSlug: tenantSlug,
		ExpiresAt:  now.Add(s.cfg.MagicLinkTTL),
		CreatedAt:  now,
	}
	if err := s.create(ctx, t); err != nil {
		return "", err
	}
	return plaintext, nil
}

// IssueOTP emite un código numérico de 6 dígitos scoped al email (no al
// tenant).
func (s *Service) IssueOTP(ctx context.Context, email string) (string, error) {
	code, err := sectoken.GenerateOTPCode(otpDigits)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	t := &core.Token{
		ID:        uuid.NewString(),
		Kind:      core.TokenOTP,
		TokenHash: otpHash(email, code),
		Email:     normEmail(email),
		ExpiresAt: now.Add(s.cfg.OTPTTL),
		CreatedAt: now,
	}
	if err := s.create(ctx, t); err != nil {
		return "", err
	}
	return code, nil
}

// IssueInvite emite el token de una invitación y devuelve además el registro
// para que el manager lo enlace por ID.
func (s *Service) IssueInvite(ctx context.Context, p InvitePayload) (string, *core.Token, error) {
	plaintext, err := sectoken.GenerateOpaqueToken(opaqueBytes)
	if err != nil {
		return "", nil, err
	}
	now := s.now().UTC()
	t := &core.Token{
		ID:                uuid.NewString(),
		Kind:              core.TokenInvite,
		TokenHash:         sectoken.SHA256Base64URL(plaintext),
		Secret:            plaintext,
		Email:             normEmail(p.Email),
		TenantID:          p.TenantID,
		InviteeClass:      p.InviteeClass,
		Role:              p.Role,
		CustomPermissions: p.CustomPermissions,
		Message:           p.Message,
		InviterID:         p.InviterID,
		ExpiresAt:         now.Add(s.cfg.InvitationTTL),
		CreatedAt:         now,
	}
	if err := s.create(ctx, t); err != nil {
		return "", nil, err
	}
	return plaintext, t, nil
}

// IssueSession emite el token opaco que se entrega tras verificar un OTP. El
// TTL replica el del magic link: la sesión no vive más que la credencial que
// la habría abierto por el otro camino.
func (s *Service) IssueSession(ctx context.Context, email, tenantID string) (string, error) {
	plaintext, err := sectoken.GenerateOpaqueToken(opaqueBytes)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	t := &core.Token{
		ID:        uuid.NewString(),
		Kind:      core.TokenSession,
		TokenHash: sectoken.SHA256Base64URL(plaintext),
		Email:     normEmail(email),
		TenantID:  tenantID,
		ExpiresAt: now.Add(s.cfg.MagicLinkTTL),
		CreatedAt: now,
	}
	if err := s.create(ctx, t); err != nil {
		return "", err
	}
	return plaintext, nil
}

// redeem canjea con el CAS del repositorio y cuenta el resultado.
func (s *Service) redeem(ctx context.Context, kind core.TokenKind, hash string) (*core.Token, error) {
	t, err := s.repo.RedeemToken(ctx, kind, hash)
	metrics.TokenRedemptions.WithLabelValues(string(kind), redeemOutcome(err)).Inc()
	return t, err
}

func redeemOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrTokenUsed):
		return "already_used"
	case errors.Is(err, core.ErrTokenExpired):
		return "expired"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// RedeemMagicLink canjea un magic link. Fallos: core.ErrNotFound,
// core.ErrTokenUsed, core.ErrTokenExpired. Nunca se reintenta internamente.
func (s *Service) RedeemMagicLink(ctx context.Context, plaintext string) (*core.Token, error) {
	return s.redeem(ctx, core.TokenMagicLink, sectoken.SHA256Base64URL(plaintext))
}

// RedeemOTP canjea un código OTP para un email.
func (s *Service) RedeemOTP(ctx context.Context, email, code string) (*core.Token, error) {
	return s.redeem(ctx, core.TokenOTP, otpHash(email, code))
}

// RedeemInvite canjea un token de invitación.
func (s *Service) RedeemInvite(ctx context.Context, plaintext string) (*core.Token, error) {
	return s.redeem(ctx, core.TokenInvite, sectoken.SHA256Base64URL(plaintext))
}

// FindInvite localiza un token de invitación por su plaintext sin canjearlo.
// Lo usa accept para diagnosticar expiración lazy tras un canje fallido.
func (s *Service) FindInvite(ctx context.Context, plaintext string) (*core.Token, error) {
	return s.repo.GetTokenByHash(ctx, core.TokenInvite, sectoken.SHA256Base64URL(plaintext))
}

// PeekInvite lee el token de invitación sin canjearlo. Lo usa resend para
// descubrir expiración lazy y para reconstruir la URL original.
func (s *Service) PeekInvite(ctx context.Context, tokenID string) (*core.Token, error) {
	return s.repo.GetToken(ctx, tokenID)
}

// Expired reporta si un token está vencido según el reloj del servicio.
func (s *Service) Expired(t *core.Token) bool {
	return s.now().UTC().After(t.ExpiresAt)
}

// LookupSession resuelve una credencial bearer a su token, sin canjear.
//
// El string canjeado de un magic link o invitación sigue siendo la credencial
// de sesión (comportamiento heredado del sistema original): un token de esos
// tipos es sesión válida si used=true y no expiró. Los tokens kind=session
// (camino OTP) son válidos con used=false hasta expirar.
func (s *Service) LookupSession(ctx context.Context, plaintext string) (*core.Token, error) {
	hash := sectoken.SHA256Base64URL(plaintext)
	now := s.now().UTC()

	for _, kind := range []core.TokenKind{core.TokenSession, core.TokenMagicLink, core.TokenInvite} {
		t, err := s.repo.GetTokenByHash(ctx, kind, hash)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if now.After(t.ExpiresAt) {
			return nil, core.ErrTokenExpired
		}
		if kind == core.TokenSession {
			return t, nil
		}
		// magic link / invite: solo sirven como sesión después de canjeados
		if t.Used {
			return t, nil
		}
		return nil, core.ErrNotFound
	}
	return nil, core.ErrNotFound
}

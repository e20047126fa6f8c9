// Package session es la fachada de autenticación: pide y verifica magic links
// y códigos OTP, resuelve la identidad resultante y responde las consultas de
// permisos y rutas del usuario autenticado.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	"github.com/dropDatabas3/loandesk/internal/audit"
	"github.com/dropDatabas3/loandesk/internal/cache"
	"github.com/dropDatabas3/loandesk/internal/identity"
	"github.com/dropDatabas3/loandesk/internal/notify"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/rbac"
	sectoken "github.com/dropDatabas3/loandesk/internal/security/token"
	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/tokenstore"
	"github.com/dropDatabas3/loandesk/internal/validation"
)

var (
	ErrBadEmail     = apperr.Validation("invalid_email", "Email inválido")
	ErrBadToken     = apperr.Unauthorized("invalid_token", "Token inválido o desconocido")
	ErrTokenUsed    = apperr.Gone("token_used", "El token ya fue canjeado")
	ErrTokenExpired = apperr.Gone("token_expired", "El token expiró")
	ErrBadCode      = apperr.Unauthorized("invalid_code", "Código inválido o vencido")
	ErrNoSession    = apperr.Unauthorized("invalid_session", "Sesión inválida o vencida")
)

const principalCacheTTL = 2 * time.Minute

type Config struct {
	BaseURL      string
	MagicLinkTTL time.Duration
	OTPTTL       time.Duration
}

type Service struct {
	repo       core.Repository
	tokens     *tokenstore.Service
	resolver   *identity.Resolver
	dispatcher *notify.Dispatcher
	auditor    *audit.Recorder
	cache      cache.Cache
	cfg        Config
}

func New(repo core.Repository, tokens *tokenstore.Service, resolver *identity.Resolver, dispatcher *notify.Dispatcher, auditor *audit.Recorder, c cache.Cache, cfg Config) *Service {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{
		repo:       repo,
		tokens:     tokens,
		resolver:   resolver,
		dispatcher: dispatcher,
		auditor:    auditor,
		cache:      c,
		cfg:        cfg,
	}
}

// Login emite un magic link y lo despacha por email. La respuesta es la misma
// exista o no el email (anti-enumeración): el único fallo visible es la
// sintaxis del email.
func (s *Service) Login(ctx context.Context, email, tenantName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validation.ValidEmail(email) {
		return ErrBadEmail
	}

	plaintext, err := s.tokens.IssueMagicLink(ctx, email, strings.TrimSpace(tenantName))
	if err != nil {
		return apperr.From(err)
	}

	url := s.cfg.BaseURL + "/v1/auth/verify?token=" + plaintext
	subject, html, text := notify.MagicLinkMessage(url, s.cfg.MagicLinkTTL)
	s.dispatcher.Dispatch(ctx, email, subject, html, text)

	logger.From(ctx).Info("magic link issued",
		logger.Op("session.Login"),
		logger.Email(email),
	)
	return nil
}

// VerifyResult es el desenlace de una verificación exitosa.
type VerifyResult struct {
	SessionToken string
	User         *core.User
	Tenant       *core.Tenant
	Permissions  []string
	RedirectTo   string
	NewUser      bool
	NewTenant    bool
}

// VerifyMagicLink canjea un magic link, resuelve o crea la identidad y decide
// la raíz de redirect. El plaintext recién canjeado queda como credencial de
// sesión del caller.
func (s *Service) VerifyMagicLink(ctx context.Context, plaintext string) (*VerifyResult, error) {
	token, err := s.tokens.RedeemMagicLink(ctx, plaintext)
	if err != nil {
		return nil, mapRedeemErr(err)
	}

	res, err := s.resolver.ResolveOrCreate(ctx, token.Email, token.TenantSlug, "")
	if err != nil {
		return nil, apperr.From(err)
	}

	s.auditor.Record(ctx, res.Tenant.ID, res.User.ID, "auth.signed_in", map[string]any{
		"method": "magic_link",
	})
	return s.buildResult(ctx, plaintext, res), nil
}

// IssueOTP emite un código de 6 dígitos y lo despacha por email. Misma
// política anti-enumeración que Login.
func (s *Service) IssueOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validation.ValidEmail(email) {
		return ErrBadEmail
	}

	code, err := s.tokens.IssueOTP(ctx, email)
	if err != nil {
		return apperr.From(err)
	}

	subject, html, text := notify.OTPMessage(code, s.cfg.OTPTTL)
	s.dispatcher.Dispatch(ctx, email, subject, html, text)
	return nil
}

// VerifyOTP canjea un código OTP. Un código de 6 dígitos no sirve como
// credencial bearer, así que se cambia por un token de sesión opaco.
//
// Todos los fallos de canje colapsan en invalid_code: distinguir "no existe"
// de "vencido" le regalaría un oráculo a un atacante que prueba códigos.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validation.ValidEmail(email) {
		return nil, ErrBadEmail
	}

	if _, err := s.tokens.RedeemOTP(ctx, email, code); err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrTokenUsed) || errors.Is(err, core.ErrTokenExpired) {
			return nil, ErrBadCode
		}
		return nil, apperr.From(err)
	}

	res, err := s.resolver.ResolveOrCreate(ctx, email, "", "")
	if err != nil {
		return nil, apperr.From(err)
	}

	session, err := s.tokens.IssueSession(ctx, email, res.Tenant.ID)
	if err != nil {
		return nil, apperr.From(err)
	}

	s.auditor.Record(ctx, res.Tenant.ID, res.User.ID, "auth.signed_in", map[string]any{
		"method": "otp",
	})
	return s.buildResult(ctx, session, res), nil
}

func (s *Service) buildResult(ctx context.Context, sessionToken string, res *identity.Result) *VerifyResult {
	perms := permStrings(rbac.PermissionsFor(res.User, res.Tenant.Settings))
	redirect := rbac.RedirectRouteFor(res.User.Role)
	if redirect == rbac.RouteSignIn {
		logger.From(ctx).Warn("unknown role on verify, redirecting to sign-in",
			logger.Op("session.buildResult"),
			logger.UserID(res.User.ID),
			logger.Role(string(res.User.Role)),
		)
	}
	s.cachePrincipal(sessionToken, res.User, res.Tenant)
	return &VerifyResult{
		SessionToken: sessionToken,
		User:         res.User,
		Tenant:       res.Tenant,
		Permissions:  perms,
		RedirectTo:   redirect,
		NewUser:      res.NewUser,
		NewTenant:    res.NewTenant,
	}
}

// Principal es la identidad resuelta de una credencial bearer.
type Principal struct {
	User   *core.User
	Tenant *core.Tenant
}

// Resolve mapea una credencial bearer a su principal. Pasa por el cache antes
// de tocar el store; una entrada cacheada vencida se resuelve de nuevo.
func (s *Service) Resolve(ctx context.Context, sessionToken string) (*Principal, error) {
	if p, ok := s.cachedPrincipal(sessionToken); ok {
		return p, nil
	}

	token, err := s.tokens.LookupSession(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrTokenExpired) {
			return nil, ErrNoSession
		}
		return nil, apperr.From(err)
	}

	user, tenant, err := s.subjectOf(ctx, token)
	if err != nil {
		return nil, err
	}
	s.cachePrincipal(sessionToken, user, tenant)
	return &Principal{User: user, Tenant: tenant}, nil
}

// subjectOf localiza el (user, tenant) detrás de un token de sesión válido.
func (s *Service) subjectOf(ctx context.Context, token *core.Token) (*core.User, *core.Tenant, error) {
	if token.TenantID != "" {
		tenant, err := s.repo.GetTenant(ctx, token.TenantID)
		if err != nil {
			return nil, nil, apperr.From(err)
		}
		user, err := s.repo.GetUserByEmail(ctx, tenant.ID, token.Email)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, nil, ErrNoSession
			}
			return nil, nil, apperr.From(err)
		}
		return user, tenant, nil
	}

	// Magic links llevan slug, no tenant id; y pueden no llevar nada.
	if token.TenantSlug != "" {
		tenant, err := s.repo.GetTenantBySlug(ctx, identity.Slugify(token.TenantSlug))
		if err == nil {
			user, uerr := s.repo.GetUserByEmail(ctx, tenant.ID, token.Email)
			if uerr == nil {
				return user, tenant, nil
			}
			if !errors.Is(uerr, core.ErrNotFound) {
				return nil, nil, apperr.From(uerr)
			}
		} else if !errors.Is(err, core.ErrNotFound) {
			return nil, nil, apperr.From(err)
		}
	}

	users, err := s.repo.FindUsersByEmail(ctx, token.Email)
	if err != nil {
		return nil, nil, apperr.From(err)
	}
	if len(users) == 0 {
		return nil, nil, ErrNoSession
	}
	tenant, err := s.repo.GetTenant(ctx, users[0].TenantID)
	if err != nil {
		return nil, nil, apperr.From(err)
	}
	return users[0], tenant, nil
}

// Permissions devuelve el set efectivo del principal, ordenado.
func (s *Service) Permissions(p *Principal) []string {
	return permStrings(rbac.PermissionsFor(p.User, p.Tenant.Settings))
}

// RoutesResult agrupa las rutas navegables y la raíz de redirect.
type RoutesResult struct {
	Routes     []string
	RedirectTo string
}

// Routes devuelve las rutas de UI accesibles para el principal.
func (s *Service) Routes(p *Principal) RoutesResult {
	return RoutesResult{
		Routes:     rbac.AvailableRoutes(p.User, p.Tenant.Settings),
		RedirectTo: rbac.RedirectRouteFor(p.User.Role),
	}
}

// CanAccess responde si el principal puede navegar a una ruta de UI.
func (s *Service) CanAccess(p *Principal, path string) bool {
	return rbac.CanAccessRoute(p.User, path, p.Tenant.Settings)
}

// Logout invalida la entrada cacheada de la credencial. El token subyacente
// no se toca: expira solo.
func (s *Service) Logout(ctx context.Context, sessionToken string) {
	s.cache.Delete(principalCacheKey(sessionToken))
}

// ---- cache de principal ----

type cachedPrincipal struct {
	User   *core.User   `json:"user"`
	Tenant *core.Tenant `json:"tenant"`
}

func principalCacheKey(sessionToken string) string {
	// Nunca se usa el plaintext como key: el cache puede ser Redis compartido.
	return "principal:" + sectoken.SHA256Base64URL(sessionToken)
}

func (s *Service) cachePrincipal(sessionToken string, user *core.User, tenant *core.Tenant) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(cachedPrincipal{User: user, Tenant: tenant})
	if err != nil {
		return
	}
	s.cache.Set(principalCacheKey(sessionToken), b, principalCacheTTL)
}

func (s *Service) cachedPrincipal(sessionToken string) (*Principal, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, ok := s.cache.Get(principalCacheKey(sessionToken))
	if !ok {
		return nil, false
	}
	var cp cachedPrincipal
	if err := json.Unmarshal(b, &cp); err != nil || cp.User == nil || cp.Tenant == nil {
		return nil, false
	}
	return &Principal{User: cp.User, Tenant: cp.Tenant}, true
}

func mapRedeemErr(err error) error {
	switch {
	case errors.Is(err, core.ErrTokenUsed):
		return ErrTokenUsed
	case errors.Is(err, core.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, core.ErrNotFound):
		return ErrBadToken
	default:
		return apperr.From(err)
	}
}

func permStrings(perms []rbac.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

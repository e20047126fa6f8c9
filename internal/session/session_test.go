package session

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loandesk/internal/audit"
	cmem "github.com/dropDatabas3/loandesk/internal/cache/memory"
	"github.com/dropDatabas3/loandesk/internal/identity"
	"github.com/dropDatabas3/loandesk/internal/notify"
	"github.com/dropDatabas3/loandesk/internal/rbac"
	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/store/memory"
	"github.com/dropDatabas3/loandesk/internal/tokenstore"
)

type chanSender struct {
	msgs chan string // cuerpo de texto
}

func (s *chanSender) Send(_, _, _ string, textBody string) error {
	s.msgs <- textBody
	return nil
}

func (s *chanSender) wait(t *testing.T) string {
	t.Helper()
	select {
	case m := <-s.msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no email dispatched")
		return ""
	}
}

type fixture struct {
	svc    *Service
	st     *memory.Store
	tokens *tokenstore.Service
	sender *chanSender
	now    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	st.Now = func() time.Time { return now }

	tokens := tokenstore.New(st, tokenstore.Config{})
	tokens.SetNow(func() time.Time { return now })

	auditor := audit.NewRecorder(st)
	resolver := identity.NewResolver(st, auditor, identity.Config{TrialDays: 14})
	resolver.SetNow(func() time.Time { return now })

	sender := &chanSender{msgs: make(chan string, 8)}
	svc := New(st, tokens, resolver, notify.NewDispatcher(sender), auditor, cmem.New(time.Minute), Config{
		BaseURL:      "https://app.test",
		MagicLinkTTL: 15 * time.Minute,
		OTPTTL:       10 * time.Minute,
	})
	return &fixture{svc: svc, st: st, tokens: tokens, sender: sender, now: &now}
}

func tokenFromMail(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0, "no token in mail body: %q", body)
	rest := body[i+len("token="):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

var otpRe = regexp.MustCompile(`[0-9]{6}`)

func TestLogin_RejectsBadEmailOnly(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.svc.Login(context.Background(), "not-an-email", ""), ErrBadEmail)
	// un email bien formado nunca falla, exista o no
	require.NoError(t, f.svc.Login(context.Background(), "ghost@nowhere.test", ""))
	f.sender.wait(t)
}

func TestMagicLinkFlow_BootstrapsWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Login(ctx, "Owner@Acme.com", "Acme Lending!!"))
	link := tokenFromMail(t, f.sender.wait(t))

	res, err := f.svc.VerifyMagicLink(ctx, link)
	require.NoError(t, err)
	require.True(t, res.NewTenant)
	require.True(t, res.NewUser)
	require.Equal(t, "acme-lending", res.Tenant.Slug)
	require.Equal(t, core.RoleAdvisor, res.User.Role)
	require.Equal(t, rbac.RouteAppRoot, res.RedirectTo)
	require.Contains(t, res.Permissions, string(rbac.PermWorkspaceManage))
	require.Equal(t, link, res.SessionToken)

	// el mismo link no se canjea dos veces
	_, err = f.svc.VerifyMagicLink(ctx, link)
	require.ErrorIs(t, err, ErrTokenUsed)
}

func TestMagicLinkFlow_ExistingMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Login(ctx, "owner@acme.com", "Acme"))
	first, err := f.svc.VerifyMagicLink(ctx, tokenFromMail(t, f.sender.wait(t)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Login(ctx, "owner@acme.com", "Acme"))
	second, err := f.svc.VerifyMagicLink(ctx, tokenFromMail(t, f.sender.wait(t)))
	require.NoError(t, err)
	require.False(t, second.NewUser)
	require.False(t, second.NewTenant)
	require.Equal(t, first.User.ID, second.User.ID)
}

func TestVerifyMagicLink_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Login(ctx, "a@b.co", ""))
	link := tokenFromMail(t, f.sender.wait(t))

	*f.now = f.now.Add(16 * time.Minute)
	_, err := f.svc.VerifyMagicLink(ctx, link)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyMagicLink_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.VerifyMagicLink(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrBadToken)
}

func TestOTPFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// membresía previa: el OTP resuelve contra ella
	require.NoError(t, f.svc.Login(ctx, "ana@x.co", "Ana Shop"))
	_, err := f.svc.VerifyMagicLink(ctx, tokenFromMail(t, f.sender.wait(t)))
	require.NoError(t, err)

	require.NoError(t, f.svc.IssueOTP(ctx, "ana@x.co"))
	code := otpRe.FindString(f.sender.wait(t))
	require.Len(t, code, 6)

	// código equivocado: error genérico, sin oráculo
	_, err = f.svc.VerifyOTP(ctx, "ana@x.co", "000000")
	if err == nil {
		t.Skip("generated code collided with 000000")
	}
	require.ErrorIs(t, err, ErrBadCode)

	res, err := f.svc.VerifyOTP(ctx, "ana@x.co", code)
	require.NoError(t, err)
	require.False(t, res.NewTenant)
	require.Equal(t, "ana-shop", res.Tenant.Slug)
	require.NotEqual(t, code, res.SessionToken) // el código nunca es la credencial

	// la credencial emitida resuelve a un principal
	p, err := f.svc.Resolve(ctx, res.SessionToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, p.User.ID)

	// el código es de un solo uso
	_, err = f.svc.VerifyOTP(ctx, "ana@x.co", code)
	require.ErrorIs(t, err, ErrBadCode)
}

func TestResolve_InvalidCredential(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Resolve(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestResolve_SurvivesCacheLoss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Login(ctx, "owner@acme.com", "Acme"))
	res, err := f.svc.VerifyMagicLink(ctx, tokenFromMail(t, f.sender.wait(t)))
	require.NoError(t, err)

	// logout vacía el cache; la credencial sigue siendo válida hasta expirar
	f.svc.Logout(ctx, res.SessionToken)
	p, err := f.svc.Resolve(ctx, res.SessionToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, p.User.ID)
}

func TestPermissionsAndRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Login(ctx, "owner@acme.com", "Acme"))
	res, err := f.svc.VerifyMagicLink(ctx, tokenFromMail(t, f.sender.wait(t)))
	require.NoError(t, err)

	p, err := f.svc.Resolve(ctx, res.SessionToken)
	require.NoError(t, err)

	perms := f.svc.Permissions(p)
	require.Contains(t, perms, string(rbac.PermUsersInvite))

	routes := f.svc.Routes(p)
	require.Equal(t, rbac.RouteAppRoot, routes.RedirectTo)
	require.Contains(t, routes.Routes, "/settings")

	require.True(t, f.svc.CanAccess(p, "/billing"))
	require.False(t, f.svc.CanAccess(p, "/no-such-route"))
}

func TestClientRedirectsToPortal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// sembrar un tenant con un usuario client
	now := *f.now
	tenant := &core.Tenant{ID: "44444444-4444-4444-4444-444444444444", Name: "Acme", Slug: "acme", Status: core.TenantActive, Tier: "pro", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.st.CreateTenant(ctx, tenant))
	require.NoError(t, f.st.CreateUser(ctx, &core.User{
		ID: "55555555-5555-5555-5555-555555555555", TenantID: tenant.ID,
		Email: "cli@x.co", Role: core.RoleClient, Status: core.UserActive,
		CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, f.svc.Login(ctx, "cli@x.co", "acme"))
	res, err := f.svc.VerifyMagicLink(ctx, tokenFromMail(t, f.sender.wait(t)))
	require.NoError(t, err)
	require.False(t, res.NewUser)
	require.Equal(t, rbac.RoutePortalRoot, res.RedirectTo)
	require.NotContains(t, res.Permissions, string(rbac.PermClientsRead))
}

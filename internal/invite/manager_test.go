package invite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loandesk/internal/apperr"
	"github.com/dropDatabas3/loandesk/internal/audit"
	"github.com/dropDatabas3/loandesk/internal/notify"
	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/store/memory"
	"github.com/dropDatabas3/loandesk/internal/tokenstore"
)

// chanSender captura los emails despachados. El dispatcher envía en una
// goroutine, así que los tests leen del canal con timeout.
type chanSender struct {
	msgs chan capturedMail
}

type capturedMail struct {
	To, Subject, Text string
}

func (s *chanSender) Send(to, subject, _ string, textBody string) error {
	s.msgs <- capturedMail{To: to, Subject: subject, Text: textBody}
	return nil
}

func (s *chanSender) wait(t *testing.T) capturedMail {
	t.Helper()
	select {
	case m := <-s.msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no email dispatched")
		return capturedMail{}
	}
}

type fixture struct {
	mgr    *Manager
	tokens *tokenstore.Service
	st     *memory.Store
	sender *chanSender
	now    *time.Time

	tenant  *core.Tenant
	advisor *core.User
	staff   *core.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	st.Now = func() time.Time { return now }

	tokens := tokenstore.New(st, tokenstore.Config{})
	tokens.SetNow(func() time.Time { return now })

	sender := &chanSender{msgs: make(chan capturedMail, 8)}
	mgr := NewManager(st, tokens, notify.NewDispatcher(sender), audit.NewRecorder(st), "https://app.test/")
	mgr.SetNow(func() time.Time { return now })

	f := &fixture{mgr: mgr, tokens: tokens, st: st, sender: sender, now: &now}

	ctx := context.Background()
	f.tenant = &core.Tenant{ID: "11111111-1111-1111-1111-111111111111", Name: "Acme Lending", Slug: "acme-lending", Status: core.TenantTrial, Tier: "trial", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateTenant(ctx, f.tenant))

	f.advisor = &core.User{ID: "22222222-2222-2222-2222-222222222222", TenantID: f.tenant.ID, Email: "owner@acme.com", Name: "Owner", Role: core.RoleAdvisor, Status: core.UserActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateUser(ctx, f.advisor))

	f.staff = &core.User{ID: "33333333-3333-3333-3333-333333333333", TenantID: f.tenant.ID, Email: "staff@acme.com", Role: core.RoleStaff, Status: core.UserActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateUser(ctx, f.staff))

	return f
}

func (f *fixture) send(t *testing.T, email string, class core.InviteeClass) *core.Invitation {
	t.Helper()
	inv, err := f.mgr.Send(context.Background(), SendInput{
		TenantID:  f.tenant.ID,
		InviterID: f.advisor.ID,
		Email:     email,
		Class:     class,
	})
	require.NoError(t, err)
	return inv
}

// plaintextOf recupera el token plaintext de una invitación vía el secret
// persistido (lo mismo que usa resend).
func (f *fixture) plaintextOf(t *testing.T, inv *core.Invitation) string {
	t.Helper()
	tok, err := f.st.GetToken(context.Background(), inv.TokenID)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Secret)
	return tok.Secret
}

func TestSend_HappyPath(t *testing.T) {
	f := newFixture(t)

	inv := f.send(t, "Cli@Example.com", core.InviteeClient)
	require.Equal(t, core.InvitePending, inv.Status)
	require.Equal(t, "cli@example.com", inv.Email)
	require.Equal(t, core.RoleClient, inv.Role) // default de la clase

	mail := f.sender.wait(t)
	require.Equal(t, "cli@example.com", mail.To)
	require.Contains(t, mail.Text, "https://app.test/invitations/accept?token=")
}

func TestSend_OrderedChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.Send(ctx, SendInput{TenantID: f.tenant.ID, InviterID: f.advisor.ID, Email: "not-an-email", Class: core.InviteeClient})
	require.ErrorIs(t, err, ErrBadEmail)

	_, err = f.mgr.Send(ctx, SendInput{TenantID: f.tenant.ID, InviterID: f.advisor.ID, Email: "a@b.co", Class: core.InviteeClass("vip")})
	require.ErrorIs(t, err, ErrBadClass)

	// staff no tiene users:invite
	_, err = f.mgr.Send(ctx, SendInput{TenantID: f.tenant.ID, InviterID: f.staff.ID, Email: "a@b.co", Class: core.InviteeClient})
	require.ErrorIs(t, err, ErrNotAllowed)

	// ya es miembro
	_, err = f.mgr.Send(ctx, SendInput{TenantID: f.tenant.ID, InviterID: f.advisor.ID, Email: "staff@acme.com", Class: core.InviteeStaff})
	require.ErrorIs(t, err, ErrAlreadyMember)

	// pendiente duplicada
	f.send(t, "dup@example.com", core.InviteeClient)
	_, err = f.mgr.Send(ctx, SendInput{TenantID: f.tenant.ID, InviterID: f.advisor.ID, Email: "DUP@example.com", Class: core.InviteeClient})
	require.ErrorIs(t, err, ErrAlreadyPending)
}

func TestSend_ErrorStatuses(t *testing.T) {
	var ae *apperr.Error
	require.True(t, errors.As(ErrAlreadyPending, &ae))
	require.Equal(t, 409, ae.Status)
	require.True(t, errors.As(ErrInviteExpired, &ae))
	require.Equal(t, 410, ae.Status)
	require.True(t, errors.As(ErrNotAllowed, &ae))
	require.Equal(t, 403, ae.Status)
}

func TestAccept_ClientCreatesUserAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "cli@example.com", core.InviteeClient)
	plaintext := f.plaintextOf(t, inv)

	res, err := f.mgr.Accept(ctx, AcceptInput{Token: plaintext, Name: "Cli Ent", Phone: "555-1234"})
	require.NoError(t, err)
	require.Equal(t, core.InviteAccepted, res.Invitation.Status)
	require.Equal(t, core.RoleClient, res.User.Role)
	require.Equal(t, "Cli Ent", res.User.Name)
	require.NotNil(t, res.ClientRecord)
	require.Equal(t, res.User.ID, res.ClientRecord.UserID)
	require.Equal(t, plaintext, res.SessionToken)
	require.NotNil(t, res.Invitation.AcceptedUserID)
	require.Equal(t, res.User.ID, *res.Invitation.AcceptedUserID)
	require.NotNil(t, res.Invitation.AcceptedClientID)

	// segundo accept del mismo token: terminal
	_, err = f.mgr.Accept(ctx, AcceptInput{Token: plaintext})
	require.ErrorIs(t, err, ErrTokenConsumed)
}

func TestAccept_StaffPromotesNoClientRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "new-staff@example.com", core.InviteeStaff)
	res, err := f.mgr.Accept(ctx, AcceptInput{Token: f.plaintextOf(t, inv)})
	require.NoError(t, err)
	require.Equal(t, core.RoleStaff, res.User.Role)
	require.Nil(t, res.ClientRecord)
}

func TestAccept_ExpiredFlipsInvitationLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "late@example.com", core.InviteeClient)
	plaintext := f.plaintextOf(t, inv)

	*f.now = f.now.Add(8 * 24 * time.Hour) // TTL default: 7d

	_, err := f.mgr.Accept(ctx, AcceptInput{Token: plaintext})
	require.ErrorIs(t, err, ErrInviteExpired)

	got, err := f.st.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, core.InviteExpired, got.Status)

	// reintento: mismo desenlace, sin doble transición
	_, err = f.mgr.Accept(ctx, AcceptInput{Token: plaintext})
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestAccept_UnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Accept(context.Background(), AcceptInput{Token: "garbage"})
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "cancel-me@example.com", core.InviteeClient)

	got, err := f.mgr.Cancel(ctx, f.tenant.ID, f.advisor.ID, inv.ID)
	require.NoError(t, err)
	require.Equal(t, core.InviteCancelled, got.Status)

	// cancelar dos veces no es válido
	_, err = f.mgr.Cancel(ctx, f.tenant.ID, f.advisor.ID, inv.ID)
	require.ErrorIs(t, err, ErrInviteNotActive)

	// el token quedó intacto pero el accept corta por el estado
	_, err = f.mgr.Accept(ctx, AcceptInput{Token: f.plaintextOf(t, inv)})
	require.ErrorIs(t, err, ErrInviteNotActive)
}

func TestCancel_OtherTenantLooksLikeNotFound(t *testing.T) {
	f := newFixture(t)
	inv := f.send(t, "x@example.com", core.InviteeClient)

	_, err := f.mgr.Cancel(context.Background(), "99999999-9999-9999-9999-999999999999", f.advisor.ID, inv.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestResend_RedispatchesSameToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "again@example.com", core.InviteeClient)
	first := f.sender.wait(t)

	_, err := f.mgr.Resend(ctx, f.tenant.ID, f.advisor.ID, inv.ID)
	require.NoError(t, err)
	second := f.sender.wait(t)

	// misma URL exacta: no se emitió un token nuevo
	require.Equal(t, first.Text, second.Text)
}

func TestResend_ExpiredFlipsAndFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "stale@example.com", core.InviteeClient)
	*f.now = f.now.Add(8 * 24 * time.Hour)

	_, err := f.mgr.Resend(ctx, f.tenant.ID, f.advisor.ID, inv.ID)
	require.ErrorIs(t, err, ErrInviteExpired)

	got, err := f.st.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, core.InviteExpired, got.Status)
}

func TestResend_CancelledFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "gone@example.com", core.InviteeClient)
	_, err := f.mgr.Cancel(ctx, f.tenant.ID, f.advisor.ID, inv.ID)
	require.NoError(t, err)

	_, err = f.mgr.Resend(ctx, f.tenant.ID, f.advisor.ID, inv.ID)
	require.ErrorIs(t, err, ErrInviteNotActive)
}

package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/store/memory"
)

// newFixture arma el servicio sobre el store memory con un reloj compartido y
// movible.
func newFixture(t *testing.T) (*Service, *memory.Store, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	st.Now = func() time.Time { return now }
	svc := New(st, Config{})
	svc.SetNow(func() time.Time { return now })
	return svc, st, &now
}

func TestMagicLink_SingleRedemption(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	plaintext, err := svc.IssueMagicLink(ctx, "Ana@Example.com", "acme")
	require.NoError(t, err)
	require.NotEmpty(t, plaintext)

	tok, err := svc.RedeemMagicLink(ctx, plaintext)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", tok.Email)
	require.Equal(t, "acme", tok.TenantSlug)
	require.True(t, tok.Used)
	require.NotNil(t, tok.UsedAt)

	// segundo canje del mismo token
	_, err = svc.RedeemMagicLink(ctx, plaintext)
	require.ErrorIs(t, err, core.ErrTokenUsed)
}

func TestMagicLink_UnknownToken(t *testing.T) {
	svc, _, _ := newFixture(t)
	_, err := svc.RedeemMagicLink(context.Background(), "no-such-token")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestMagicLink_ExpiryBeatsUsed(t *testing.T) {
	svc, _, now := newFixture(t)
	ctx := context.Background()

	plaintext, err := svc.IssueMagicLink(ctx, "a@b.co", "")
	require.NoError(t, err)

	*now = now.Add(16 * time.Minute) // TTL default: 15m

	// nunca se usó, pero expirado es terminal y manda sobre used
	_, err = svc.RedeemMagicLink(ctx, plaintext)
	require.ErrorIs(t, err, core.ErrTokenExpired)

	// y sigue expirado en reintentos
	_, err = svc.RedeemMagicLink(ctx, plaintext)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestMagicLink_ConcurrentIssuesCoexist(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	p1, err := svc.IssueMagicLink(ctx, "a@b.co", "")
	require.NoError(t, err)
	p2, err := svc.IssueMagicLink(ctx, "a@b.co", "")
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	// canjear uno no afecta al otro
	_, err = svc.RedeemMagicLink(ctx, p1)
	require.NoError(t, err)
	_, err = svc.RedeemMagicLink(ctx, p2)
	require.NoError(t, err)
}

func TestOTP_BoundToEmail(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	code, err := svc.IssueOTP(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	// mismo código, otro email: el hash no matchea
	_, err = svc.RedeemOTP(ctx, "eve@example.com", code)
	require.ErrorIs(t, err, core.ErrNotFound)

	tok, err := svc.RedeemOTP(ctx, "ANA@example.com", code)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", tok.Email)

	_, err = svc.RedeemOTP(ctx, "ana@example.com", code)
	require.ErrorIs(t, err, core.ErrTokenUsed)
}

func TestOTP_Expiry(t *testing.T) {
	svc, _, now := newFixture(t)
	ctx := context.Background()

	code, err := svc.IssueOTP(ctx, "a@b.co")
	require.NoError(t, err)

	*now = now.Add(11 * time.Minute) // TTL default: 10m
	_, err = svc.RedeemOTP(ctx, "a@b.co", code)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestInvite_SecretSurvivesForResend(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	plaintext, tok, err := svc.IssueInvite(ctx, InvitePayload{
		Email:        "cli@example.com",
		TenantID:     "t1",
		InviteeClass: core.InviteeClient,
		Role:         core.RoleClient,
		InviterID:    "u1",
	})
	require.NoError(t, err)
	require.Equal(t, plaintext, tok.Secret)

	peeked, err := svc.PeekInvite(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, plaintext, peeked.Secret)
	require.False(t, peeked.Used)
	require.False(t, svc.Expired(peeked))
}

func TestLookupSession(t *testing.T) {
	svc, _, now := newFixture(t)
	ctx := context.Background()

	// un magic link sin canjear no es sesión
	ml, err := svc.IssueMagicLink(ctx, "a@b.co", "")
	require.NoError(t, err)
	_, err = svc.LookupSession(ctx, ml)
	require.ErrorIs(t, err, core.ErrNotFound)

	// canjeado sí
	_, err = svc.RedeemMagicLink(ctx, ml)
	require.NoError(t, err)
	tok, err := svc.LookupSession(ctx, ml)
	require.NoError(t, err)
	require.Equal(t, core.TokenMagicLink, tok.Kind)

	// un token kind=session vale sin canje
	sess, err := svc.IssueSession(ctx, "a@b.co", "t1")
	require.NoError(t, err)
	tok, err = svc.LookupSession(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, core.TokenSession, tok.Kind)

	// y todo muere al expirar
	*now = now.Add(16 * time.Minute)
	_, err = svc.LookupSession(ctx, ml)
	require.ErrorIs(t, err, core.ErrTokenExpired)
	_, err = svc.LookupSession(ctx, sess)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

func newStore() (*Store, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.Now = func() time.Time { return now }
	return s, &now
}

func TestCreateTenant_SlugIsUnique(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.CreateTenant(ctx, &core.Tenant{ID: "t1", Slug: "acme"}))
	err := s.CreateTenant(ctx, &core.Tenant{ID: "t2", Slug: "acme"})
	require.ErrorIs(t, err, core.ErrConflict)
}

func TestCreateUser_EmailUniquePerTenantNotGlobal(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &core.User{ID: "u1", TenantID: "t1", Email: "a@b.co"}))
	// mismo email, case distinto, mismo tenant → conflicto
	err := s.CreateUser(ctx, &core.User{ID: "u2", TenantID: "t1", Email: "A@B.CO"})
	require.ErrorIs(t, err, core.ErrConflict)
	// mismo email en otro tenant → válido
	require.NoError(t, s.CreateUser(ctx, &core.User{ID: "u3", TenantID: "t2", Email: "a@b.co"}))
}

func TestUpdateUser_PartialFields(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &core.User{ID: "u1", TenantID: "t1", Email: "a@b.co", Name: "Ana", Role: core.RoleStaff}))

	newName := "Ana María"
	u, err := s.UpdateUser(ctx, "u1", core.UserUpdate{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "Ana María", u.Name)
	// lo no tocado queda igual
	require.Equal(t, core.RoleStaff, u.Role)
	require.Equal(t, "a@b.co", u.Email)

	_, err = s.UpdateUser(ctx, "ghost", core.UserUpdate{Name: &newName})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedeemToken_Semantics(t *testing.T) {
	s, now := newStore()
	ctx := context.Background()

	tok := &core.Token{
		ID: "tok1", Kind: core.TokenMagicLink, TokenHash: "h1",
		Email: "a@b.co", ExpiresAt: now.Add(15 * time.Minute), CreatedAt: *now,
	}
	require.NoError(t, s.CreateToken(ctx, tok))

	// hash duplicado para el mismo kind → conflicto
	err := s.CreateToken(ctx, &core.Token{ID: "tok2", Kind: core.TokenMagicLink, TokenHash: "h1", ExpiresAt: now.Add(time.Minute)})
	require.ErrorIs(t, err, core.ErrConflict)
	// mismo hash con otro kind convive
	require.NoError(t, s.CreateToken(ctx, &core.Token{ID: "tok3", Kind: core.TokenOTP, TokenHash: "h1", ExpiresAt: now.Add(time.Minute)}))

	_, err = s.RedeemToken(ctx, core.TokenMagicLink, "nope")
	require.ErrorIs(t, err, core.ErrNotFound)

	got, err := s.RedeemToken(ctx, core.TokenMagicLink, "h1")
	require.NoError(t, err)
	require.True(t, got.Used)
	require.Equal(t, *now, got.UsedAt.UTC())

	_, err = s.RedeemToken(ctx, core.TokenMagicLink, "h1")
	require.ErrorIs(t, err, core.ErrTokenUsed)

	// pasada la expiración, expirado manda incluso sobre used
	*now = now.Add(time.Hour)
	_, err = s.RedeemToken(ctx, core.TokenMagicLink, "h1")
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestCreateInvitation_SinglePending(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.CreateInvitation(ctx, &core.Invitation{ID: "i1", TenantID: "t1", Email: "a@b.co", Status: core.InvitePending}))
	err := s.CreateInvitation(ctx, &core.Invitation{ID: "i2", TenantID: "t1", Email: "A@b.co", Status: core.InvitePending})
	require.ErrorIs(t, err, core.ErrConflict)

	// resuelta la primera, entra una nueva pending
	st := core.InviteCancelled
	_, err = s.UpdateInvitation(ctx, "i1", core.InvitationUpdate{Status: &st})
	require.NoError(t, err)
	require.NoError(t, s.CreateInvitation(ctx, &core.Invitation{ID: "i3", TenantID: "t1", Email: "a@b.co", Status: core.InvitePending}))

	// otro tenant no compite
	require.NoError(t, s.CreateInvitation(ctx, &core.Invitation{ID: "i4", TenantID: "t2", Email: "a@b.co", Status: core.InvitePending}))
}

func TestReadsReturnCopies(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	require.NoError(t, s.CreateTenant(ctx, &core.Tenant{ID: "t1", Slug: "acme", Name: "Acme"}))
	a, err := s.GetTenant(ctx, "t1")
	require.NoError(t, err)
	a.Name = "Mutated"

	b, err := s.GetTenant(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "Acme", b.Name)
}

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loandesk/internal/audit"
	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/store/memory"
)

func newResolver(t *testing.T) (*Resolver, *memory.Store) {
	t.Helper()
	st := memory.New()
	r := NewResolver(st, audit.NewRecorder(st), Config{TrialDays: 14})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.SetNow(func() time.Time { return now })
	return r, st
}

func TestBootstrap_CreatesTenantTrialAndAdvisor(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	res, err := r.Bootstrap(ctx, "Owner@Acme.com", "Acme Lending!!")
	require.NoError(t, err)
	require.True(t, res.NewTenant)
	require.True(t, res.NewUser)

	require.Equal(t, "acme-lending", res.Tenant.Slug)
	require.Equal(t, "Acme Lending!!", res.Tenant.Name)
	require.Equal(t, core.TenantTrial, res.Tenant.Status)
	require.Equal(t, "trial", res.Tenant.Tier)

	require.Equal(t, "owner@acme.com", res.User.Email)
	require.Equal(t, core.RoleAdvisor, res.User.Role)
	require.Equal(t, core.UserActive, res.User.Status)
	require.NotNil(t, res.User.LastActiveAt)

	// auditoría del bootstrap
	actions := map[string]bool{}
	for _, e := range st.AuditEntries() {
		actions[e.Action] = true
	}
	require.True(t, actions["tenant.created"])
	require.True(t, actions["user.created"])
}

func TestBootstrap_SlugRaceReusesTenant(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	first, err := r.Bootstrap(ctx, "a@acme.com", "Acme Lending")
	require.NoError(t, err)

	// mismo slug, otro email: pierde la carrera y se suma al tenant existente
	second, err := r.Bootstrap(ctx, "b@acme.com", "acme   lending")
	require.NoError(t, err)
	require.False(t, second.NewTenant)
	require.True(t, second.NewUser)
	require.Equal(t, first.Tenant.ID, second.Tenant.ID)
}

func TestBootstrap_EmptySlugRejected(t *testing.T) {
	r, _ := newResolver(t)
	_, err := r.Bootstrap(context.Background(), "a@b.co", "!!!")
	require.ErrorIs(t, err, core.ErrInvalid)
}

func TestResolveOrCreate_ExistingMemberOnlyTouchesLastActive(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	boot, err := r.Bootstrap(ctx, "owner@acme.com", "Acme")
	require.NoError(t, err)

	later := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	r.SetNow(func() time.Time { return later })

	res, err := r.ResolveOrCreate(ctx, "owner@acme.com", "acme", "")
	require.NoError(t, err)
	require.False(t, res.NewUser)
	require.False(t, res.NewTenant)
	require.Equal(t, boot.User.ID, res.User.ID)
	require.Equal(t, core.RoleAdvisor, res.User.Role)
	require.Equal(t, later, res.User.LastActiveAt.UTC())
}

func TestResolveOrCreate_NewUserInExistingTenant(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	boot, err := r.Bootstrap(ctx, "owner@acme.com", "Acme")
	require.NoError(t, err)

	res, err := r.ResolveOrCreate(ctx, "new@acme.com", "acme", core.RoleStaff)
	require.NoError(t, err)
	require.True(t, res.NewUser)
	require.False(t, res.NewTenant)
	require.Equal(t, boot.Tenant.ID, res.Tenant.ID)
	require.Equal(t, core.RoleStaff, res.User.Role)
}

func TestResolveOrCreate_UnknownSlugBootstraps(t *testing.T) {
	r, _ := newResolver(t)

	res, err := r.ResolveOrCreate(context.Background(), "solo@firm.com", "Solo Firm", "")
	require.NoError(t, err)
	require.True(t, res.NewTenant)
	require.Equal(t, "solo-firm", res.Tenant.Slug)
	require.Equal(t, core.RoleAdvisor, res.User.Role)
}

func TestResolveOrCreate_NoTenantRefFindsOldestMembership(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	first, err := r.Bootstrap(ctx, "ana@x.co", "First Shop")
	require.NoError(t, err)

	// segunda membresía del mismo email en otro tenant, más nueva
	later := first.User.CreatedAt.Add(time.Hour)
	r.SetNow(func() time.Time { return later })
	_, err = r.Bootstrap(ctx, "ana@x.co", "Second Shop")
	require.NoError(t, err)

	res, err := r.ResolveOrCreate(ctx, "ana@x.co", "", "")
	require.NoError(t, err)
	require.Equal(t, first.Tenant.ID, res.Tenant.ID)
}

func TestResolveOrCreate_NoTenantRefNoUserDerivesWorkspaceFromEmail(t *testing.T) {
	r, _ := newResolver(t)

	res, err := r.ResolveOrCreate(context.Background(), "john.doe@x.co", "", "")
	require.NoError(t, err)
	require.True(t, res.NewTenant)
	require.Equal(t, "john-doe", res.Tenant.Slug)
}

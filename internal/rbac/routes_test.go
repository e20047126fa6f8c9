package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

func TestCanAccessRoute(t *testing.T) {
	policy := core.PolicySettings{}
	staff := userWith(core.RoleStaff)
	client := userWith(core.RoleClient)

	// ruta desconocida → deny, siempre
	require.False(t, CanAccessRoute(userWith(core.RoleAdvisor), "/secret", policy))

	// ruta sin permisos declarados → cualquier autenticado
	require.True(t, CanAccessRoute(client, RouteAppRoot, policy))
	require.False(t, CanAccessRoute(nil, RouteAppRoot, policy))

	// semántica OR: staff tiene billing:read, no billing:manage, y alcanza
	require.True(t, CanAccessRoute(staff, "/billing", policy))
	require.False(t, CanAccessRoute(staff, "/settings", policy))
	require.False(t, CanAccessRoute(client, "/clients", policy))
}

func TestAvailableRoutes(t *testing.T) {
	policy := core.PolicySettings{}

	advisor := AvailableRoutes(userWith(core.RoleAdvisor), policy)
	require.Len(t, advisor, len(KnownRoutes))

	client := AvailableRoutes(userWith(core.RoleClient), policy)
	require.Contains(t, client, RoutePortalRoot)
	require.Contains(t, client, "/documents")
	require.NotContains(t, client, "/team")
	require.NotContains(t, client, "/billing")
}

func TestRedirectRouteFor(t *testing.T) {
	cases := []struct {
		role core.Role
		want string
	}{
		{core.RoleAdvisor, RouteAppRoot},
		{core.RoleStaff, RouteAppRoot},
		{core.RolePartner, RouteAppRoot},
		{core.RoleClient, RoutePortalRoot},
		{core.Role("ghost"), RouteSignIn},
		{core.Role(""), RouteSignIn},
	}
	for _, c := range cases {
		require.Equal(t, c.want, RedirectRouteFor(c.role), "role %q", c.role)
	}
}

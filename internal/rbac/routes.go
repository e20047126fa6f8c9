package rbac

import "github.com/dropDatabas3/loandesk/internal/store/core"

// Route es una ruta de UI con su set de permisos aceptables.
// Semántica OR: basta con tener UNO de los permisos declarados. Una ruta sin
// permisos declarados es pública para cualquier usuario autenticado.
type Route struct {
	Path        string
	Permissions []Permission
}

// Raíces de redirect post-login.
const (
	RouteAppRoot    = "/dashboard"
	RoutePortalRoot = "/portal"
	RouteSignIn     = "/sign-in"
)

// KnownRoutes es la lista completa de rutas de la aplicación.
var KnownRoutes = []Route{
	{Path: RouteAppRoot},
	{Path: "/clients", Permissions: []Permission{PermClientsRead}},
	{Path: "/loan-files", Permissions: []Permission{PermLoanFilesRead}},
	{Path: "/documents", Permissions: []Permission{PermDocumentsRead}},
	{Path: "/tasks", Permissions: []Permission{PermTasksRead}},
	{Path: "/messages", Permissions: []Permission{PermMessagesRead}},
	{Path: "/reports", Permissions: []Permission{PermReportsRead}},
	{Path: "/billing", Permissions: []Permission{PermBillingRead, PermBillingManage}},
	{Path: "/team", Permissions: []Permission{PermUsersInvite, PermUsersManage}},
	{Path: "/widgets", Permissions: []Permission{PermWidgetsManage}},
	{Path: "/settings", Permissions: []Permission{PermWorkspaceManage}},
	{Path: RoutePortalRoot},
}

var routesByPath = func() map[string]Route {
	m := make(map[string]Route, len(KnownRoutes))
	for _, r := range KnownRoutes {
		m[r.Path] = r
	}
	return m
}()

// CanAccessRoute: ruta desconocida → deny; sin permisos declarados → permitida
// a cualquier autenticado; si no, OR sobre los declarados.
func CanAccessRoute(u *core.User, path string, policy core.PolicySettings) bool {
	r, ok := routesByPath[path]
	if !ok {
		return false
	}
	if len(r.Permissions) == 0 {
		return u != nil
	}
	held := make(map[Permission]struct{})
	for _, p := range PermissionsFor(u, policy) {
		held[p] = struct{}{}
	}
	for _, p := range r.Permissions {
		if _, ok := held[p]; ok {
			return true
		}
	}
	return false
}

// AvailableRoutes filtra KnownRoutes por CanAccessRoute.
func AvailableRoutes(u *core.User, policy core.PolicySettings) []string {
	var out []string
	for _, r := range KnownRoutes {
		if CanAccessRoute(u, r.Path, policy) {
			out = append(out, r.Path)
		}
	}
	return out
}

// RedirectRouteFor decide la raíz post-login por rol. Un rol fuera del enum
// es un error de lógica: cae a sign-in y el caller lo loguea como warning.
func RedirectRouteFor(role core.Role) string {
	switch role {
	case core.RoleAdvisor, core.RoleStaff, core.RolePartner:
		return RouteAppRoot
	case core.RoleClient:
		return RoutePortalRoot
	default:
		return RouteSignIn
	}
}

package rbac

import (
	"sort"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

// PermissionsFor resuelve el set efectivo de un usuario:
//
//  1. set base del rol
//  2. ∪ overrides custom del usuario (estrictamente aditivos; un override
//     desconocido al enum se ignora)
//  3. si rol == client y la política tiene requireApproval, se filtran todos
//     los permisos de escritura (create/update/delete)
//
// El resultado está ordenado para que sea estable en respuestas y tests.
func PermissionsFor(u *core.User, policy core.PolicySettings) []Permission {
	if u == nil {
		return nil
	}

	set := make(map[Permission]struct{})
	for _, p := range rolePermissions[u.Role] {
		set[p] = struct{}{}
	}
	for _, s := range u.CustomPermissions {
		p := Permission(s)
		if Valid(p) {
			set[p] = struct{}{}
		}
	}

	if u.Role == core.RoleClient && policy.RequireApproval {
		for p := range set {
			if p.IsWrite() {
				delete(set, p)
			}
		}
	}

	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPermission es el test de membresía contra el set resuelto.
func HasPermission(u *core.User, perm Permission, policy core.PolicySettings) bool {
	for _, p := range PermissionsFor(u, policy) {
		if p == perm {
			return true
		}
	}
	return false
}

// Predicados derivados.

// IsTenantAdmin: rol advisor Y tiene workspace:manage.
func IsTenantAdmin(u *core.User, policy core.PolicySettings) bool {
	return u != nil && u.Role == core.RoleAdvisor && HasPermission(u, PermWorkspaceManage, policy)
}

// CanInviteUsers: tiene users:invite.
func CanInviteUsers(u *core.User, policy core.PolicySettings) bool {
	return HasPermission(u, PermUsersInvite, policy)
}

// CanManageBilling: tiene billing:manage.
func CanManageBilling(u *core.User, policy core.PolicySettings) bool {
	return HasPermission(u, PermBillingManage, policy)
}

// DefaultRoleForClass mapea clase de invitado → rol por defecto.
func DefaultRoleForClass(c core.InviteeClass) core.Role {
	switch c {
	case core.InviteeStaff:
		return core.RoleStaff
	case core.InviteePartner:
		return core.RolePartner
	default:
		return core.RoleClient
	}
}

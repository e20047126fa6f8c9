// Package rbac resuelve permisos de forma pura: {rol, overrides, política del
// tenant} → set de permisos, y set de permisos → accesibilidad de rutas.
// No tiene estado ni efectos; rol o ruta desconocidos resuelven a "deny".
package rbac

import "strings"

// Permission es un par resource:action de un conjunto cerrado.
type Permission string

const (
	PermClientsCreate Permission = "clients:create"
	PermClientsRead   Permission = "clients:read"
	PermClientsUpdate Permission = "clients:update"
	PermClientsDelete Permission = "clients:delete"

	PermLoanFilesCreate Permission = "loanfiles:create"
	PermLoanFilesRead   Permission = "loanfiles:read"
	PermLoanFilesUpdate Permission = "loanfiles:update"
	PermLoanFilesDelete Permission = "loanfiles:delete"

	PermDocumentsCreate Permission = "documents:create"
	PermDocumentsRead   Permission = "documents:read"
	PermDocumentsUpdate Permission = "documents:update"
	PermDocumentsDelete Permission = "documents:delete"

	PermTasksCreate Permission = "tasks:create"
	PermTasksRead   Permission = "tasks:read"
	PermTasksUpdate Permission = "tasks:update"
	PermTasksDelete Permission = "tasks:delete"

	PermMessagesCreate Permission = "messages:create"
	PermMessagesRead   Permission = "messages:read"

	PermBillingRead   Permission = "billing:read"
	PermBillingManage Permission = "billing:manage"

	PermReportsRead Permission = "reports:read"

	PermWorkspaceManage Permission = "workspace:manage"

	PermUsersInvite Permission = "users:invite"
	PermUsersManage Permission = "users:manage"

	PermWidgetsManage Permission = "widgets:manage"
)

// AllPermissions es el conjunto cerrado completo.
var AllPermissions = []Permission{
	PermClientsCreate, PermClientsRead, PermClientsUpdate, PermClientsDelete,
	PermLoanFilesCreate, PermLoanFilesRead, PermLoanFilesUpdate, PermLoanFilesDelete,
	PermDocumentsCreate, PermDocumentsRead, PermDocumentsUpdate, PermDocumentsDelete,
	PermTasksCreate, PermTasksRead, PermTasksUpdate, PermTasksDelete,
	PermMessagesCreate, PermMessagesRead,
	PermBillingRead, PermBillingManage,
	PermReportsRead,
	PermWorkspaceManage,
	PermUsersInvite, PermUsersManage,
	PermWidgetsManage,
}

var known = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(AllPermissions))
	for _, p := range AllPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// Valid reporta si p pertenece al conjunto cerrado.
func Valid(p Permission) bool {
	_, ok := known[p]
	return ok
}

// Resource devuelve la parte resource del permiso.
func (p Permission) Resource() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// Action devuelve la parte action del permiso.
func (p Permission) Action() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[i+1:]
	}
	return ""
}

// IsWrite reporta si la acción es create, update o delete. Es el filtro que
// aplica la política requireApproval al rol client.
func (p Permission) IsWrite() bool {
	switch p.Action() {
	case "create", "update", "delete":
		return true
	}
	return false
}

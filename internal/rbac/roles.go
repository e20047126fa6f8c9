package rbac

import "github.com/dropDatabas3/loandesk/internal/store/core"

// rolePermissions es la tabla estática rol → set base. Se construye una vez y
// nunca se muta: overrides y política del tenant se aplican como
// transformaciones puras encima.
var rolePermissions = map[core.Role][]Permission{
	// advisor: superset completo, incluye administración del workspace.
	core.RoleAdvisor: AllPermissions,

	// staff: CRUD operativo, billing y reports de solo lectura, sin derechos
	// de workspace/usuarios/widgets.
	core.RoleStaff: {
		PermClientsCreate, PermClientsRead, PermClientsUpdate, PermClientsDelete,
		PermLoanFilesCreate, PermLoanFilesRead, PermLoanFilesUpdate, PermLoanFilesDelete,
		PermDocumentsCreate, PermDocumentsRead, PermDocumentsUpdate, PermDocumentsDelete,
		PermTasksCreate, PermTasksRead, PermTasksUpdate, PermTasksDelete,
		PermMessagesCreate, PermMessagesRead,
		PermBillingRead,
		PermReportsRead,
	},

	// partner: lectura/actualización, nunca create ni delete.
	core.RolePartner: {
		PermClientsRead, PermClientsUpdate,
		PermLoanFilesRead, PermLoanFilesUpdate,
		PermDocumentsRead,
		PermMessagesCreate, PermMessagesRead,
		PermReportsRead,
	},

	// client: portal de solo lectura más mensajería.
	core.RoleClient: {
		PermLoanFilesRead,
		PermDocumentsRead,
		PermMessagesCreate, PermMessagesRead,
	},
}

// BasePermissions devuelve una copia del set base del rol. Rol desconocido →
// set vacío (deny).
func BasePermissions(role core.Role) []Permission {
	base, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	return append([]Permission(nil), base...)
}

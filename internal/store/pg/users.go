package pg

import (
	"context"
	"strings"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

const userCols = `id, tenant_id, email, name, phone, role, status, custom_permissions, last_active_at, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	const q = `
INSERT INTO app_user (id, tenant_id, email, name, phone, role, status, custom_permissions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9);`
	_, err := s.pool.Exec(ctx, q,
		u.ID, u.TenantID, strings.ToLower(u.Email), u.Name, u.Phone,
		string(u.Role), string(u.Status), u.CustomPermissions, u.CreatedAt,
	)
	return mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	const q = `SELECT ` + userCols + ` FROM app_user WHERE id = $1;`
	return s.scanUser(ctx, q, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, tenantID, email string) (*core.User, error) {
	const q = `SELECT ` + userCols + ` FROM app_user WHERE tenant_id = $1 AND lower(email) = lower($2);`
	return s.scanUser(ctx, q, tenantID, email)
}

func (s *Store) FindUsersByEmail(ctx context.Context, email string) ([]*core.User, error) {
	const q = `SELECT ` + userCols + ` FROM app_user WHERE lower(email) = lower($1) ORDER BY created_at;`
	rows, err := s.pool.Query(ctx, q, email)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*core.User
	for rows.Next() {
		var u core.User
		var role, status string
		if err := rows.Scan(
			&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Phone, &role, &status,
			&u.CustomPermissions, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		u.Role = core.Role(role)
		u.Status = core.UserStatus(status)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *Store) scanUser(ctx context.Context, q string, args ...any) (*core.User, error) {
	var u core.User
	var role, status string
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Phone, &role, &status,
		&u.CustomPermissions, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	u.Role = core.Role(role)
	u.Status = core.UserStatus(status)
	return &u, nil
}

// UpdateUser aplica una actualización parcial con COALESCE sobre NULLs: los
// campos nil del update no tocan la fila.
func (s *Store) UpdateUser(ctx context.Context, id string, upd core.UserUpdate) (*core.User, error) {
	const q = `
UPDATE app_user SET
    name               = COALESCE($2, name),
    phone              = COALESCE($3, phone),
    role               = COALESCE($4, role),
    status             = COALESCE($5, status),
    custom_permissions = COALESCE($6, custom_permissions),
    last_active_at     = COALESCE($7, last_active_at),
    updated_at         = now()
WHERE id = $1
RETURNING ` + userCols + `;`

	var role, status *string
	if upd.Role != nil {
		v := string(*upd.Role)
		role = &v
	}
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	var perms *[]string
	if upd.CustomPermissions != nil {
		perms = upd.CustomPermissions
	}

	var u core.User
	var roleOut, statusOut string
	err := s.pool.QueryRow(ctx, q, id, upd.Name, upd.Phone, role, status, perms, upd.LastActiveAt).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Phone, &roleOut, &statusOut,
		&u.CustomPermissions, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	u.Role = core.Role(roleOut)
	u.Status = core.UserStatus(statusOut)
	return &u, nil
}

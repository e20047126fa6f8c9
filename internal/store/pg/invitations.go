package pg

import (
	"context"
	"strings"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

const invitationCols = `id, tenant_id, email, invitee_class, role, custom_permissions, message,
       inviter_id, token_id, status, accepted_user_id, accepted_client_id, created_at, updated_at`

// CreateInvitation: el índice único parcial sobre (tenant_id, email) con
// status='pending' garantiza la invariante de una sola invitación pendiente.
func (s *Store) CreateInvitation(ctx context.Context, inv *core.Invitation) error {
	const q = `
INSERT INTO invitation (id, tenant_id, email, invitee_class, role, custom_permissions,
                        message, inviter_id, token_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11);`
	_, err := s.pool.Exec(ctx, q,
		inv.ID, inv.TenantID, strings.ToLower(inv.Email), string(inv.InviteeClass),
		string(inv.Role), inv.CustomPermissions, inv.Message, inv.InviterID,
		inv.TokenID, string(inv.Status), inv.CreatedAt,
	)
	return mapErr(err)
}

func (s *Store) GetInvitation(ctx context.Context, id string) (*core.Invitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM invitation WHERE id = $1;`
	return s.scanInvitation(ctx, q, id)
}

func (s *Store) GetInvitationByTokenID(ctx context.Context, tokenID string) (*core.Invitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM invitation WHERE token_id = $1;`
	return s.scanInvitation(ctx, q, tokenID)
}

func (s *Store) GetPendingInvitation(ctx context.Context, tenantID, email string) (*core.Invitation, error) {
	const q = `SELECT ` + invitationCols + ` FROM invitation
 WHERE tenant_id = $1 AND lower(email) = lower($2) AND status = 'pending';`
	return s.scanInvitation(ctx, q, tenantID, email)
}

func (s *Store) UpdateInvitation(ctx context.Context, id string, upd core.InvitationUpdate) (*core.Invitation, error) {
	const q = `
UPDATE invitation SET
    status             = COALESCE($2, status),
    accepted_user_id   = COALESCE($3, accepted_user_id),
    accepted_client_id = COALESCE($4, accepted_client_id),
    updated_at         = now()
WHERE id = $1
RETURNING ` + invitationCols + `;`

	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	return s.scanInvitation(ctx, q, id, status, upd.AcceptedUserID, upd.AcceptedClientID)
}

func (s *Store) scanInvitation(ctx context.Context, q string, args ...any) (*core.Invitation, error) {
	var inv core.Invitation
	var class, role, status string
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &class, &role, &inv.CustomPermissions,
		&inv.Message, &inv.InviterID, &inv.TokenID, &status,
		&inv.AcceptedUserID, &inv.AcceptedClientID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	inv.InviteeClass = core.InviteeClass(class)
	inv.Role = core.Role(role)
	inv.Status = core.InvitationStatus(status)
	return &inv, nil
}

package pg

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

// AppendAuditLog escribe un registro append-only. No existe update ni delete
// sobre audit_log.
func (s *Store) AppendAuditLog(ctx context.Context, e *core.AuditLogEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO audit_log (id, tenant_id, actor_id, action, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err = s.pool.Exec(ctx, q, e.ID, nullIfEmpty(e.TenantID), e.ActorID, e.Action, details, e.CreatedAt)
	return mapErr(err)
}

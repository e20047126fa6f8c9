// Package audit escribe el log de auditoría append-only.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/store/core"
)

// Recorder persiste entradas de auditoría a través del repositorio.
// Un fallo del store degrada a una línea de log: la operación de negocio ya
// se completó y la auditoría nunca la revierte.
type Recorder struct {
	repo core.Repository
}

func NewRecorder(repo core.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record escribe una entrada. actorID puede ser "system" en flujos sin actor
// autenticado (bootstrap, verify).
func (r *Recorder) Record(ctx context.Context, tenantID, actorID, action string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	e := &core.AuditLogEntry{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.repo.AppendAuditLog(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed",
			logger.Op("audit.Record"),
			logger.String("action", action),
			logger.TenantID(tenantID),
			logger.Err(err),
		)
	}
}

package pg

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

const tenantCols = `id, name, slug, status, tier, settings, created_at, updated_at`

// CreateTenant inserta el tenant; la unicidad del slug la resuelve el índice
// único (ErrConflict en violación), no un check previo.
func (s *Store) CreateTenant(ctx context.Context, t *core.Tenant) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO tenant (id, name, slug, status, tier, settings, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7);`
	_, err = s.pool.Exec(ctx, q, t.ID, t.Name, t.Slug, string(t.Status), t.Tier, settings, t.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetTenant(ctx context.Context, id string) (*core.Tenant, error) {
	const q = `SELECT ` + tenantCols + ` FROM tenant WHERE id = $1;`
	return s.scanTenant(ctx, q, id)
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*core.Tenant, error) {
	const q = `SELECT ` + tenantCols + ` FROM tenant WHERE slug = $1;`
	return s.scanTenant(ctx, q, slug)
}

func (s *Store) scanTenant(ctx context.Context, q string, args ...any) (*core.Tenant, error) {
	var t core.Tenant
	var status string
	var settings []byte
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&t.ID, &t.Name, &t.Slug, &status, &t.Tier, &settings, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Status = core.TenantStatus(status)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, id string, upd core.TenantUpdate) (*core.Tenant, error) {
	const q = `
UPDATE tenant SET
    name       = COALESCE($2, name),
    status     = COALESCE($3, status),
    tier       = COALESCE($4, tier),
    settings   = COALESCE($5, settings),
    updated_at = now()
WHERE id = $1
RETURNING ` + tenantCols + `;`

	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	var settings []byte
	if upd.Settings != nil {
		b, err := json.Marshal(upd.Settings)
		if err != nil {
			return nil, err
		}
		settings = b
	}

	var t core.Tenant
	var statusOut string
	var settingsOut []byte
	err := s.pool.QueryRow(ctx, q, id, upd.Name, status, upd.Tier, settings).Scan(
		&t.ID, &t.Name, &t.Slug, &statusOut, &t.Tier, &settingsOut, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Status = core.TenantStatus(statusOut)
	if len(settingsOut) > 0 {
		if err := json.Unmarshal(settingsOut, &t.Settings); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *core.Subscription) error {
	const q = `
INSERT INTO subscription (id, tenant_id, tier, status, trial_ends_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := s.pool.Exec(ctx, q, sub.ID, sub.TenantID, sub.Tier, sub.Status, sub.TrialEndsAt, sub.CreatedAt)
	return mapErr(err)
}

func (s *Store) CreateClientRecord(ctx context.Context, c *core.ClientRecord) error {
	const q = `
INSERT INTO client_record (id, tenant_id, user_id, email, name, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := s.pool.Exec(ctx, q, c.ID, c.TenantID, c.UserID, c.Email, c.Name, c.CreatedAt)
	return mapErr(err)
}

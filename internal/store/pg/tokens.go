package pg

import (
	"context"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

const tokenCols = `id, kind, token_hash, secret, email, tenant_id, tenant_slug, invitee_class, role,
       custom_permissions, message, inviter_id, used, used_at, expires_at, created_at`

func (s *Store) CreateToken(ctx context.Context, t *core.Token) error {
	const q = `
INSERT INTO auth_token (id, kind, token_hash, secret, email, tenant_id, tenant_slug, invitee_class,
                        role, custom_permissions, message, inviter_id, used, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13, $14);`
	_, err := s.pool.Exec(ctx, q,
		t.ID, string(t.Kind), t.TokenHash, t.Secret, t.Email, nullIfEmpty(t.TenantID), t.TenantSlug,
		string(t.InviteeClass), string(t.Role), t.CustomPermissions, t.Message,
		nullIfEmpty(t.InviterID), t.ExpiresAt, t.CreatedAt,
	)
	return mapErr(err)
}

func (s *Store) GetToken(ctx context.Context, id string) (*core.Token, error) {
	const q = `SELECT ` + tokenCols + ` FROM auth_token WHERE id = $1;`
	return s.scanToken(ctx, q, id)
}

func (s *Store) GetTokenByHash(ctx context.Context, kind core.TokenKind, hash string) (*core.Token, error) {
	const q = `SELECT ` + tokenCols + ` FROM auth_token WHERE kind = $1 AND token_hash = $2;`
	return s.scanToken(ctx, q, string(kind), hash)
}

// RedeemToken hace el check-and-set en un solo UPDATE condicional: dos canjes
// concurrentes del mismo token no pueden "ganar" ambos.
func (s *Store) RedeemToken(ctx context.Context, kind core.TokenKind, hash string) (*core.Token, error) {
	const q = `
UPDATE auth_token
   SET used = true, used_at = now()
 WHERE kind = $1 AND token_hash = $2
   AND used = false
   AND expires_at > now()
RETURNING ` + tokenCols + `;`
	t, err := s.scanToken(ctx, q, string(kind), hash)
	if err == nil {
		return t, nil
	}
	if err != core.ErrNotFound {
		return nil, err
	}

	// Falló el CAS: diagnosticar por qué para un error distinguible.
	const diag = `SELECT used, expires_at <= now() FROM auth_token WHERE kind = $1 AND token_hash = $2;`
	var used, expired bool
	if derr := s.pool.QueryRow(ctx, diag, string(kind), hash).Scan(&used, &expired); derr != nil {
		return nil, mapErr(derr)
	}
	// La expiración manda sobre used.
	if expired {
		return nil, core.ErrTokenExpired
	}
	if used {
		return nil, core.ErrTokenUsed
	}
	return nil, core.ErrNotFound
}

func (s *Store) scanToken(ctx context.Context, q string, args ...any) (*core.Token, error) {
	var t core.Token
	var kind, class, role string
	var tenantID, inviterID *string
	err := s.pool.QueryRow(ctx, q, args...).Scan(
		&t.ID, &kind, &t.TokenHash, &t.Secret, &t.Email, &tenantID, &t.TenantSlug, &class, &role,
		&t.CustomPermissions, &t.Message, &inviterID, &t.Used, &t.UsedAt, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Kind = core.TokenKind(kind)
	t.InviteeClass = core.InviteeClass(class)
	t.Role = core.Role(role)
	t.TenantID = deref(tenantID)
	t.InviterID = deref(inviterID)
	return &t, nil
}

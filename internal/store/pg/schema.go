package pg

import "context"

// schema es el DDL completo. Idempotente: se puede aplicar sobre una base
// existente sin efecto.
const schema = `
CREATE TABLE IF NOT EXISTS tenant (
    id          uuid PRIMARY KEY,
    name        text NOT NULL,
    slug        text NOT NULL,
    status      text NOT NULL,
    tier        text NOT NULL DEFAULT 'trial',
    settings    jsonb NOT NULL DEFAULT '{}',
    created_at  timestamptz NOT NULL DEFAULT now(),
    updated_at  timestamptz NOT NULL DEFAULT now()
);
-- insert-if-absent sobre el slug: la unicidad la garantiza el índice, no un
-- check-then-insert en la aplicación.
CREATE UNIQUE INDEX IF NOT EXISTS tenant_slug_key ON tenant (slug);

CREATE TABLE IF NOT EXISTS app_user (
    id                  uuid PRIMARY KEY,
    tenant_id           uuid NOT NULL REFERENCES tenant(id),
    email               text NOT NULL,
    name                text NOT NULL DEFAULT '',
    phone               text NOT NULL DEFAULT '',
    role                text NOT NULL,
    status              text NOT NULL,
    custom_permissions  text[] NOT NULL DEFAULT '{}',
    last_active_at      timestamptz,
    created_at          timestamptz NOT NULL DEFAULT now(),
    updated_at          timestamptz NOT NULL DEFAULT now()
);
-- email único por tenant, no global
CREATE UNIQUE INDEX IF NOT EXISTS app_user_tenant_email_key
    ON app_user (tenant_id, lower(email));

CREATE TABLE IF NOT EXISTS subscription (
    id             uuid PRIMARY KEY,
    tenant_id      uuid NOT NULL REFERENCES tenant(id),
    tier           text NOT NULL,
    status         text NOT NULL,
    trial_ends_at  timestamptz NOT NULL,
    created_at     timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS client_record (
    id          uuid PRIMARY KEY,
    tenant_id   uuid NOT NULL REFERENCES tenant(id),
    user_id     uuid NOT NULL REFERENCES app_user(id),
    email       text NOT NULL,
    name        text NOT NULL DEFAULT '',
    created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auth_token (
    id                  uuid PRIMARY KEY,
    kind                text NOT NULL,
    token_hash          text NOT NULL,
    secret              text NOT NULL DEFAULT '',
    email               text NOT NULL,
    tenant_id           uuid,
    tenant_slug         text NOT NULL DEFAULT '',
    invitee_class       text NOT NULL DEFAULT '',
    role                text NOT NULL DEFAULT '',
    custom_permissions  text[] NOT NULL DEFAULT '{}',
    message             text NOT NULL DEFAULT '',
    inviter_id          text,
    used                boolean NOT NULL DEFAULT false,
    used_at             timestamptz,
    expires_at          timestamptz NOT NULL,
    created_at          timestamptz NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS auth_token_kind_hash_key ON auth_token (kind, token_hash);

CREATE TABLE IF NOT EXISTS invitation (
    id                  uuid PRIMARY KEY,
    tenant_id           uuid NOT NULL REFERENCES tenant(id),
    email               text NOT NULL,
    invitee_class       text NOT NULL,
    role                text NOT NULL,
    custom_permissions  text[] NOT NULL DEFAULT '{}',
    message             text NOT NULL DEFAULT '',
    inviter_id          uuid NOT NULL,
    token_id            uuid NOT NULL,
    status              text NOT NULL,
    accepted_user_id    uuid,
    accepted_client_id  uuid,
    created_at          timestamptz NOT NULL DEFAULT now(),
    updated_at          timestamptz NOT NULL DEFAULT now()
);
-- a lo sumo una invitación pending por (email, tenant)
CREATE UNIQUE INDEX IF NOT EXISTS invitation_single_pending_key
    ON invitation (tenant_id, lower(email)) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS invitation_token_id_idx ON invitation (token_id);

CREATE TABLE IF NOT EXISTS audit_log (
    id          uuid PRIMARY KEY,
    tenant_id   uuid,
    actor_id    text NOT NULL DEFAULT '',
    action      text NOT NULL,
    details     jsonb NOT NULL DEFAULT '{}',
    created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_log_tenant_idx ON audit_log (tenant_id, created_at);
`

// Migrate aplica el DDL embebido. Lo usa el subcomando migrate.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

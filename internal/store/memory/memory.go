// Package memory implementa core.Repository sobre maps con mutex.
// Se usa en tests y como driver de desarrollo (storage.driver: memory).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/loandesk/internal/store/core"
)

type Store struct {
	mu sync.Mutex

	users         map[string]*core.User
	tenants       map[string]*core.Tenant
	subscriptions map[string]*core.Subscription
	clients       map[string]*core.ClientRecord
	tokens        map[string]*core.Token // key: kind + "\x00" + hash
	invitations   map[string]*core.Invitation
	auditLog      []*core.AuditLogEntry

	// Now es inyectable para tests de expiración. Default: time.Now.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		users:         map[string]*core.User{},
		tenants:       map[string]*core.Tenant{},
		subscriptions: map[string]*core.Subscription{},
		clients:       map[string]*core.ClientRecord{},
		tokens:        map[string]*core.Token{},
		invitations:   map[string]*core.Invitation{},
		Now:           time.Now,
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

func tokenKey(kind core.TokenKind, hash string) string {
	return string(kind) + "\x00" + hash
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return core.ErrConflict
	}
	for _, ex := range s.users {
		if ex.TenantID == u.TenantID && normEmail(ex.Email) == normEmail(u.Email) {
			return core.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, tenantID, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && normEmail(u.Email) == normEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) FindUsersByEmail(ctx context.Context, email string) ([]*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.User
	for _, u := range s.users {
		if normEmail(u.Email) == normEmail(email) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd core.UserUpdate) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.CustomPermissions != nil {
		u.CustomPermissions = append([]string(nil), (*upd.CustomPermissions)...)
	}
	if upd.LastActiveAt != nil {
		t := *upd.LastActiveAt
		u.LastActiveAt = &t
	}
	u.UpdatedAt = s.Now()
	cp := *u
	return &cp, nil
}

// ---- tenants ----

func (s *Store) CreateTenant(ctx context.Context, t *core.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.tenants {
		if ex.Slug == t.Slug {
			return core.ErrConflict
		}
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*core.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*core.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) UpdateTenant(ctx context.Context, id string, upd core.TenantUpdate) (*core.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Tier != nil {
		t.Tier = *upd.Tier
	}
	if upd.Settings != nil {
		t.Settings = *upd.Settings
	}
	t.UpdatedAt = s.Now()
	cp := *t
	return &cp, nil
}

// ---- subscriptions ----

func (s *Store) CreateSubscription(ctx context.Context, sub *core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

// ---- client records ----

func (s *Store) CreateClientRecord(ctx context.Context, c *core.ClientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

// ---- tokens ----

func (s *Store) CreateToken(ctx context.Context, t *core.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Varios tokens vigentes pueden coexistir para el mismo sujeto; solo el
	// hash exacto debe ser único.
	if _, ok := s.tokens[tokenKey(t.Kind, t.TokenHash)]; ok {
		return core.ErrConflict
	}
	cp := *t
	s.tokens[tokenKey(t.Kind, t.TokenHash)] = &cp
	return nil
}

func (s *Store) GetToken(ctx context.Context, id string) (*core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetTokenByHash(ctx context.Context, kind core.TokenKind, hash string) (*core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenKey(kind, hash)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) RedeemToken(ctx context.Context, kind core.TokenKind, hash string) (*core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenKey(kind, hash)]
	if !ok {
		return nil, core.ErrNotFound
	}
	now := s.Now()
	// La expiración manda sobre el flag used: un token vencido es terminal
	// aunque nunca se haya canjeado.
	if now.After(t.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	if t.Used {
		return nil, core.ErrTokenUsed
	}
	t.Used = true
	t.UsedAt = &now
	cp := *t
	return &cp, nil
}

// ---- invitations ----

func (s *Store) CreateInvitation(ctx context.Context, inv *core.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.invitations {
		if ex.TenantID == inv.TenantID && normEmail(ex.Email) == normEmail(inv.Email) && ex.Status == core.InvitePending {
			return core.ErrConflict
		}
	}
	cp := *inv
	s.invitations[inv.ID] = &cp
	return nil
}

func (s *Store) GetInvitation(ctx context.Context, id string) (*core.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *Store) GetInvitationByTokenID(ctx context.Context, tokenID string) (*core.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.TokenID == tokenID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetPendingInvitation(ctx context.Context, tenantID, email string) (*core.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.TenantID == tenantID && normEmail(inv.Email) == normEmail(email) && inv.Status == core.InvitePending {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) UpdateInvitation(ctx context.Context, id string, upd core.InvitationUpdate) (*core.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if upd.Status != nil {
		inv.Status = *upd.Status
	}
	if upd.AcceptedUserID != nil {
		v := *upd.AcceptedUserID
		inv.AcceptedUserID = &v
	}
	if upd.AcceptedClientID != nil {
		v := *upd.AcceptedClientID
		inv.AcceptedClientID = &v
	}
	inv.UpdatedAt = s.Now()
	cp := *inv
	return &cp, nil
}

// ---- audit ----

func (s *Store) AppendAuditLog(ctx context.Context, e *core.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.auditLog = append(s.auditLog, &cp)
	return nil
}

// AuditEntries devuelve una copia del log de auditoría (solo para tests).
func (s *Store) AuditEntries() []*core.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.AuditLogEntry, 0, len(s.auditLog))
	for _, e := range s.auditLog {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

package auth

import "github.com/dropDatabas3/loandesk/internal/store/core"

func NewUserPayload(u *core.User) UserPayload {
	return UserPayload{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   string(u.Role),
		Status: string(u.Status),
	}
}

func NewTenantPayload(t *core.Tenant) TenantPayload {
	return TenantPayload{
		ID:     t.ID,
		Name:   t.Name,
		Slug:   t.Slug,
		Status: string(t.Status),
		Tier:   t.Tier,
	}
}

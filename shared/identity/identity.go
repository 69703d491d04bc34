package identity

import (
	"context"
	"slices"

	"meetroom/shared/constant"
)

// Identity is the already-authenticated caller of an operation.
type Identity struct {
	ID      string `json:"id"`
	LoginID string `json:"login_id"`
	IsAdmin bool   `json:"is_admin"`
}

var adminRoles = []string{constant.RoleAdmin, constant.RoleSuperAdmin}

func New(id, loginID, role string) Identity {
	return Identity{
		ID:      id,
		LoginID: loginID,
		IsAdmin: slices.Contains(adminRoles, role),
	}
}

// FromContext rebuilds the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	if userID == constant.Empty {
		return Identity{}, false
	}

	email, _ := ctx.Value(constant.ContextKeyUserEmail).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return New(userID, email, role), true
}

// WithInternal marks ctx as a call from a trusted service holding the API key.
func WithInternal(ctx context.Context) context.Context {
	return context.WithValue(ctx, constant.ContextKeyInternal, true)
}

func Internal(ctx context.Context) bool {
	internal, _ := ctx.Value(constant.ContextKeyInternal).(bool)

	return internal
}

// Owns reports whether the identity created the given requester record.
func (i Identity) Owns(requesterID string) bool {
	return i.ID != constant.Empty && i.ID == requesterID
}

// Package authz centralises ownership and role decisions for order access.
package authz

import "github.com/noah-isme/backend-printhub/internal/common"

// Action enumerates the operations guarded by ownership checks.
type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Staff roles can act on any order. Updates and deletes are admin-only for
// non-owners.
func staffCan(role string, action Action) bool {
	switch role {
	case "admin":
		return true
	case "employee":
		return action == ActionView || action == ActionUpdate
	default:
		return false
	}
}

// Decide reports whether the caller may perform action on a resource owned
// by ownerID. An empty ownerID marks a guest-owned resource, which only
// staff can touch through authenticated routes.
func Decide(caller common.Identity, ownerID string, action Action) error {
	if caller.UserID == "" {
		return common.ErrUnauthenticated("")
	}
	if ownerID != "" && caller.UserID == ownerID {
		return nil
	}
	if staffCan(caller.Role, action) {
		return nil
	}
	return common.ErrForbidden()
}

package policy

import "github.com/noah-isme/topfive-api/internal/models"

// CanViewUser hides admin accounts from non-admin callers.
func CanViewUser(actor models.Actor, target *models.User) bool {
	if target == nil {
		return false
	}
	if actor.IsPrivileged() {
		return true
	}
	return target.Role != models.RoleAdmin
}

// CanManageUsers gates account creation and updates.
func CanManageUsers(actor models.Actor) bool {
	return actor.IsPrivileged()
}

// CanDeleteUser allows admins to delete anyone but themselves.
func CanDeleteUser(actor models.Actor, targetID string) bool {
	return actor.IsPrivileged() && actor.ID != targetID
}

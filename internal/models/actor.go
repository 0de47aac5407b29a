package models

// Actor is the authenticated caller on whose behalf an operation runs. It is
// built once at the transport boundary and passed explicitly to services.
type Actor struct {
	ID        string
	Role      UserRole
	IP        string
	UserAgent string
	// System marks scheduled jobs and CLI runs that act without a request.
	System bool
}

// IsPrivileged reports whether the actor may moderate suggestions.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// SystemActor is used for scheduled jobs that run without a request.
func SystemActor(id string) Actor {
	return Actor{ID: id, Role: RoleAdmin, UserAgent: "topfive-scheduler", System: true}
}

package domain

import "time"

// Role is the organization role of a user.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleDispatcher Role = "DISPATCHER"
	RoleAccountant Role = "ACCOUNTANT"
	RoleDriver     Role = "DRIVER"
	RoleCustomer   Role = "CUSTOMER"
)

// User represents a member of an organization. Dispatchers are users.
type User struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	Role           Role
	Active         bool
	CreatedAt      time.Time
	DeletedAt      time.Time
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID         string
	OrganizationID string
	Role           Role
}

// Authenticated reports whether the actor carries a session and an organization.
func (a Actor) Authenticated() bool {
	return a.UserID != "" && a.OrganizationID != ""
}

package service

import "freight/internal/domain"

// Capability names an action a role may perform.
type Capability string

const (
	CapLoadsView         Capability = "loads.view"
	CapLoadsEdit         Capability = "loads.edit"
	CapLoadsDelete       Capability = "loads.delete"
	CapSettlementsView   Capability = "settlements.view"
	CapSettlementsCreate Capability = "settlements.create"
	CapSettlementsEdit   Capability = "settlements.edit"
	CapSettlementsDelete Capability = "settlements.delete"
	CapAdvancesView      Capability = "advances.view"
	CapAdvancesCreate    Capability = "advances.create"
	CapAdvancesDelete    Capability = "advances.delete"
)

// PermissionEvaluator answers whether a role holds a capability.
type PermissionEvaluator interface {
	HasCapability(role domain.Role, capability Capability) bool
}

// RolePermissions is the static role matrix.
type RolePermissions map[domain.Role]map[Capability]bool

// DefaultPermissions returns the built-in role matrix. SUPER_ADMIN is
// granted everything and is not listed.
func DefaultPermissions() RolePermissions {
	all := []Capability{
		CapLoadsView, CapLoadsEdit, CapLoadsDelete,
		CapSettlementsView, CapSettlementsCreate, CapSettlementsEdit, CapSettlementsDelete,
		CapAdvancesView, CapAdvancesCreate, CapAdvancesDelete,
	}
	grant := func(caps ...Capability) map[Capability]bool {
		m := make(map[Capability]bool, len(caps))
		for _, c := range caps {
			m[c] = true
		}
		return m
	}
	return RolePermissions{
		domain.RoleAdmin:      grant(all...),
		domain.RoleDispatcher: grant(CapLoadsView, CapLoadsEdit, CapSettlementsView),
		domain.RoleAccountant: grant(CapLoadsView,
			CapSettlementsView, CapSettlementsCreate, CapSettlementsEdit, CapSettlementsDelete,
			CapAdvancesView, CapAdvancesCreate, CapAdvancesDelete),
		domain.RoleDriver:   grant(CapLoadsView),
		domain.RoleCustomer: grant(CapLoadsView),
	}
}

// HasCapability implements PermissionEvaluator.
func (p RolePermissions) HasCapability(role domain.Role, capability Capability) bool {
	if role == domain.RoleSuperAdmin {
		return true
	}
	return p[role][capability]
}

// authorize checks the session and then the capability.
func authorize(perms PermissionEvaluator, actor domain.Actor, capability Capability) error {
	if !actor.Authenticated() {
		return unauthorized()
	}
	if !perms.HasCapability(actor.Role, capability) {
		return forbidden(capability)
	}
	return nil
}

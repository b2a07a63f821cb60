// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "slices"

// # Account Roles

// Role represents the authorization level granted to an account.
type Role string

const (
	// Default role for workers browsing and applying to shifts
	RoleNormal Role = "normal"

	// Employer accounts that publish events and hire
	RoleCompany Role = "company"

	// Field leads who coordinate workers on site
	RoleTeamLeader Role = "team_leader"

	// Platform operators
	RoleAdmin Role = "admin"
)

// Roles returns every known role.
func Roles() []Role {
	return []Role{RoleNormal, RoleCompany, RoleTeamLeader, RoleAdmin}
}

// SelfAssignableRoles returns the roles an account may pick at registration.
func SelfAssignableRoles() []Role {
	return []Role{RoleNormal, RoleCompany, RoleTeamLeader}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(Roles(), r)
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	return slices.Contains(allowed, r)
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

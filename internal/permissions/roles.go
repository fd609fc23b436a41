package permissions

import "github.com/collabflow/collabflow/internal/models"

// RoleSet is the explicit set of membership roles an operation accepts. Checks
// compare against set literals rather than a numeric hierarchy so reordering
// roles can never silently widen a grant.
type RoleSet map[models.TeamRole]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...models.TeamRole) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports whether the role belongs to the set.
func (s RoleSet) Contains(role models.TeamRole) bool {
	_, ok := s[role]
	return ok
}

// Allowed-role sets per team operation.
var (
	// TeamUpdate permits metadata changes.
	TeamUpdate = NewRoleSet(models.RoleOwner, models.RoleAdmin)
	// TeamDelete permits removing the team entirely.
	TeamDelete = NewRoleSet(models.RoleOwner)
	// InviteCreate permits issuing invite links.
	InviteCreate = NewRoleSet(models.RoleOwner)
)

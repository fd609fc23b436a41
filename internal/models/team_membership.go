package models

import "time"

// TeamRole labels a membership's permission level within a team.
type TeamRole string

// Membership roles. Operations compare against explicit allowed-role sets, not a
// numeric order.
const (
	RoleOwner  TeamRole = "OWNER"
	RoleAdmin  TeamRole = "ADMIN"
	RoleMember TeamRole = "MEMBER"
)

// Valid reports whether the role is one of the known membership roles.
func (r TeamRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// TeamMembership links a user to a team with a role. Identity is the (team,
// user) pair, so a user can hold at most one membership per team.
type TeamMembership struct {
	TeamID   string    `gorm:"primaryKey;type:uuid" json:"team_id"`
	UserID   string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	Role     TeamRole  `gorm:"not null" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

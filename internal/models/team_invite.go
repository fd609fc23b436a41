package models

import "time"

// TeamInvite is a time-bound, single-use invite link token. At most one invite
// per team is active at any instant; creating a new one supersedes the rest.
type TeamInvite struct {
	BaseModel

	TeamID      string    `gorm:"type:uuid;not null;index" json:"team_id"`
	InvitedByID string    `gorm:"type:uuid;not null" json:"invited_by"`
	Token       string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`

	Team      *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	InvitedBy *User `gorm:"foreignKey:InvitedByID" json:"-"`
}

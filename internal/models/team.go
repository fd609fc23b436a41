package models

// Team owns its membership set; the set is the source of truth for access control.
type Team struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	Memberships []TeamMembership `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Invites     []TeamInvite     `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
}

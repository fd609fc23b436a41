package database

import (
	"gorm.io/gorm"

	"github.com/collabflow/collabflow/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMembership{},
		&models.TeamInvite{},
		&models.RefreshToken{},
		&models.AuditLog{},
	)
}

package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/studyhall/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
// Posts are migrated before replies so the reply foreign key has a target.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(
		&models.User{},
		&models.InvitationCode{},
		&models.Post{},
		&models.Reply{},
		&models.AuditLog{},
	)
}

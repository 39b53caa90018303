package models

import "time"

// Post is a forum thread starter. Posts are soft-deleted through IsDeleted and never removed.
type Post struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorUsername string    `gorm:"size:64;not null;index" json:"author_username" validate:"required"`
	Title          string    `gorm:"size:120;not null" json:"title"`
	Body           string    `gorm:"size:5000;not null" json:"body"`
	Thread         Thread    `gorm:"size:32;not null;index" json:"thread" validate:"thread"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;index" json:"updated_at"`
	IsDeleted      bool      `gorm:"not null;default:false;index" json:"is_deleted"`
}

package models

import "time"

// Reply answers a post. Replies are removed with a hard delete.
type Reply struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID         uint      `gorm:"not null;index" json:"post_id"`
	Post           *Post     `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	AuthorUsername string    `gorm:"size:64;not null;index" json:"author_username" validate:"required"`
	Body           string    `gorm:"size:3000;not null" json:"body"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

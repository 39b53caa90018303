package models

import "time"

// InvitationCode grants one registration for an email address and role until ExpiresAt.
type InvitationCode struct {
	Code      string    `gorm:"primaryKey;size:32" json:"code"`
	Email     string    `gorm:"column:email_address;size:255;not null;index" json:"email_address" validate:"required,max=255"`
	Role      Role      `gorm:"size:16;not null" json:"role" validate:"required,role"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiredAt reports whether the code is no longer redeemable at now.
// A code expires at the exact instant of ExpiresAt.
func (c InvitationCode) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

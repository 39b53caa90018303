package models

import "time"

// User is an account. Password holds a bcrypt hash, never the submitted secret.
type User struct {
	Username           string    `gorm:"primaryKey;size:64" json:"username" validate:"required,max=64"`
	Password           string    `gorm:"not null" json:"-" validate:"required"`
	FirstName          string    `gorm:"size:64" json:"first_name" validate:"max=64"`
	MiddleName         string    `gorm:"size:64" json:"middle_name" validate:"max=64"`
	LastName           string    `gorm:"size:64" json:"last_name" validate:"max=64"`
	PreferredFirstName string    `gorm:"size:64" json:"preferred_first_name" validate:"max=64"`
	Email              string    `gorm:"column:email_address;size:255;index" json:"email_address" validate:"max=255"`
	Roles              RoleSet   `gorm:"embedded" json:"roles"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DisplayName prefers the preferred first name over the first name.
func (u User) DisplayName() string {
	name := u.PreferredFirstName
	if name == "" {
		name = u.FirstName
	}
	if name == "" {
		return u.Username
	}
	if u.LastName != "" {
		return name + " " + u.LastName
	}
	return name
}

// ProfileField names a user column that can be edited through the profile form.
type ProfileField string

const (
	FieldFirstName          ProfileField = "first_name"
	FieldMiddleName         ProfileField = "middle_name"
	FieldLastName           ProfileField = "last_name"
	FieldPreferredFirstName ProfileField = "preferred_first_name"
	FieldEmail              ProfileField = "email_address"
)

// ProfileFields lists the editable profile columns.
func ProfileFields() []ProfileField {
	return []ProfileField{FieldFirstName, FieldMiddleName, FieldLastName, FieldPreferredFirstName, FieldEmail}
}

// Valid reports whether the field is one of the editable profile columns.
func (f ProfileField) Valid() bool {
	for _, candidate := range ProfileFields() {
		if f == candidate {
			return true
		}
	}
	return false
}

package models

import "strings"

// Role names one of the three independent account capabilities.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleStudent Role = "Student"
	RoleStaff   Role = "Staff"
)

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleStudent, RoleStaff}
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(value string) (Role, bool) {
	for _, r := range Roles() {
		if strings.EqualFold(strings.TrimSpace(value), string(r)) {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is exactly one of the known role names.
func (r Role) Valid() bool {
	for _, candidate := range Roles() {
		if r == candidate {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// RoleSet holds the role flags of a user. Flags are independent so a user may hold
// none, some or all of them.
type RoleSet struct {
	Admin   bool `gorm:"column:admin_role;not null;default:false" json:"admin"`
	Student bool `gorm:"column:role1;not null;default:false" json:"student"`
	Staff   bool `gorm:"column:role2;not null;default:false" json:"staff"`
}

// RoleSetOf returns a set holding exactly the given roles.
func RoleSetOf(roles ...Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		set = set.With(r, true)
	}
	return set
}

// Has reports whether the role flag is set.
func (s RoleSet) Has(role Role) bool {
	switch role {
	case RoleAdmin:
		return s.Admin
	case RoleStudent:
		return s.Student
	case RoleStaff:
		return s.Staff
	default:
		return false
	}
}

// With returns a copy with the role flag set to enabled. Unknown roles leave the set unchanged.
func (s RoleSet) With(role Role, enabled bool) RoleSet {
	switch role {
	case RoleAdmin:
		s.Admin = enabled
	case RoleStudent:
		s.Student = enabled
	case RoleStaff:
		s.Staff = enabled
	}
	return s
}

// Count returns how many flags are set.
func (s RoleSet) Count() int {
	n := 0
	for _, r := range Roles() {
		if s.Has(r) {
			n++
		}
	}
	return n
}

// Names returns the held roles in display order.
func (s RoleSet) Names() []string {
	names := make([]string, 0, 3)
	for _, r := range Roles() {
		if s.Has(r) {
			names = append(names, string(r))
		}
	}
	return names
}

func (s RoleSet) String() string {
	return strings.Join(s.Names(), ", ")
}

// Column returns the storage column backing the role flag.
func (r Role) Column() string {
	switch r {
	case RoleAdmin:
		return "admin_role"
	case RoleStudent:
		return "role1"
	case RoleStaff:
		return "role2"
	default:
		return ""
	}
}

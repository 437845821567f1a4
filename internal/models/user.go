package models

import "time"

type UserRole string

const (
	UserRoleUser       UserRole = "USER"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPER_ADMIN"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin, UserRoleSuperAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusBlocked
}

type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        []byte
	Role                UserRole
	Status              UserStatus
	IsVerified          bool
	NeedsPasswordChange bool
	PhoneNumber         *string
	ProfileImage        *string
	CustomerID          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a named capability label shared by many accounts
type Role struct {
	ID   int64
	Name string
}

// Account represents a customer or staff identity
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash *string
	FullName     string
	Phone        *string
	DateOfBirth  *time.Time
	Gender       *string
	IsSeller     bool
	Role         *Role
	IsSuperuser  bool
	IsActive     bool
	IsVerified   bool
	AuthProvider *string
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleName returns the account's role name, or "" when no role is assigned.
func (a Account) RoleName() string {
	if a.Role == nil {
		return ""
	}
	return a.Role.Name
}

// IsAdmin reports whether the account may use management endpoints:
// superusers always, otherwise accounts whose role is "admin" in any letter case.
func (a Account) IsAdmin() bool {
	return a.IsSuperuser || strings.EqualFold(a.RoleName(), "admin")
}

// NewAccount carries the fields needed to insert an account row
type NewAccount struct {
	Email        string
	PasswordHash *string
	FullName     string
	IsSuperuser  bool
	IsActive     bool
	AuthProvider *string
	AvatarURL    *string
}

// OneTimePasscode is the single live verification code of an account.
// Only the salted hash of the code is stored.
type OneTimePasscode struct {
	AccountID uuid.UUID
	CodeHash  string
	CreatedAt time.Time
}

// ExpiresAt returns the instant after which the code is no longer accepted.
func (p OneTimePasscode) ExpiresAt(window time.Duration) time.Time {
	return p.CreatedAt.Add(window)
}

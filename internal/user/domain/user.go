package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
	// MaxNameLength bounds user display names.
	MaxNameLength = 100
)

// User is the core user entity. PasswordHash is a bcrypt hash and never leaves the service.
// CreatedBy and UpdatedBy hold the acting user's id, or "" when the change had no caller (seeding).
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	UpdatedBy    string
}

// Role is a named role that can be granted to users.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// HasRole reports whether the user holds the role named name (case-insensitive).
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

// ValidateEmail checks the shape of a normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return errors.New("email is invalid")
	}
	return nil
}

// ValidateName checks a user display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return errors.New("name is too long")
	}
	return nil
}

// ValidatePassword checks the plaintext password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// ValidateRoleName checks a role name.
func ValidateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("role name is required")
	}
	if len(name) > 64 {
		return errors.New("role name is too long")
	}
	return nil
}

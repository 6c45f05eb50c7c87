package domain

import (
	"strings"
	"testing"
)

func TestUserValidate(t *testing.T) {
	valid := func() *User {
		return &User{Name: "Demo", Email: "demo@x.com", PasswordHash: "$2a$04$hash"}
	}
	testCases := []struct {
		name   string
		mutate func(*User)
		ok     bool
	}{
		{"valid", func(*User) {}, true},
		{"missing name", func(u *User) { u.Name = "  " }, false},
		{"name too long", func(u *User) { u.Name = strings.Repeat("a", MaxNameLength+1) }, false},
		{"name at limit", func(u *User) { u.Name = strings.Repeat("é", MaxNameLength) }, true},
		{"missing email", func(u *User) { u.Email = "" }, false},
		{"no at sign", func(u *User) { u.Email = "demo.x.com" }, false},
		{"nothing before at", func(u *User) { u.Email = "@x.com" }, false},
		{"nothing after at", func(u *User) { u.Email = "demo@" }, false},
		{"missing hash", func(u *User) { u.PasswordHash = "" }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := valid()
			tc.mutate(u)
			err := u.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Demo@Aviater.COM "); got != "demo@aviater.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345"); err == nil {
		t.Error("5 characters must be rejected")
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Errorf("6 characters must be accepted: %v", err)
	}
}

func TestHasRole(t *testing.T) {
	u := &User{Roles: []Role{{Name: "Admin"}}}
	if !u.HasRole("admin") {
		t.Error("HasRole should match case-insensitively")
	}
	if u.HasRole("Developer") {
		t.Error("HasRole must not match absent roles")
	}
}

func TestValidateRoleName(t *testing.T) {
	if err := ValidateRoleName(" "); err == nil {
		t.Error("blank role name must be rejected")
	}
	if err := ValidateRoleName("Developer"); err != nil {
		t.Errorf("ValidateRoleName: %v", err)
	}
}

package domain

// Credential is the read-only login record of a user.
type Credential struct {
	UserID       string
	Email        string
	Name         string
	PasswordHash string
}

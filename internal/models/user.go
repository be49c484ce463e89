package models

import "time"

// User is the credential record shared by the login, registration and
// session-check flows. PasswordHash is nil for legacy records that never
// completed signup.
type User struct {
	ID                  string
	Email               string
	FullName            string
	PasswordHash        []byte
	FailedLoginAttempts int
	AccountLocked       bool
	IsAdmin             bool
	EmailVerified       bool
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasPassword reports whether the record carries a usable hash.
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// Profile is the projection returned to clients. It never carries the hash.
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	EmailVerified bool   `json:"emailVerified"`
	IsAdmin       bool   `json:"isAdmin"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
	}
}
